// SPDX-License-Identifier: EPL-2.0

package asset

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/ik5/dawcore/timeline"
)

// Audio is a decoded audio asset. Data is interleaved stereo at the engine
// rate; it is nil when the asset could not be loaded.
type Audio struct {
	Name string
	// Hash is the xxhash64 of the encoded file the asset was decoded from.
	Hash       uint64
	SampleRate int
	Data       []float32
}

// Loaded reports whether the asset carries sample data.
func (a *Audio) Loaded() bool { return a != nil && a.Data != nil }

// Frames returns the asset length in stereo frames.
func (a *Audio) Frames() int {
	if a == nil {
		return 0
	}
	return len(a.Data) / 2
}

// Hash computes the content hash stored for an encoded file.
func Hash(content []byte) uint64 { return xxhash.Sum64(content) }

// Midi is a MIDI asset: notes in asset relative ticks.
type Midi struct {
	Notes []timeline.Note
}

// NewMidi validates notes and returns the asset.
func NewMidi(notes []timeline.Note) (*Midi, error) {
	for i, n := range notes {
		if n.End <= n.Start {
			return nil, fmt.Errorf("%w: note %d spans %s..%s", ErrInvalidNote, i, n.Start, n.End)
		}
	}
	return &Midi{Notes: notes}, nil
}

// Table indexes the audio and MIDI assets of a project. Assets are
// immutable once added; a Table shared with the audio thread is never
// modified, the control side edits a Clone instead.
type Table struct {
	audios []*Audio
	midis  []*Midi
}

// NewTable returns an empty table.
func NewTable() *Table { return &Table{} }

// AddAudio appends a and returns its index. a may be unloaded.
func (t *Table) AddAudio(a *Audio) int {
	t.audios = append(t.audios, a)
	return len(t.audios) - 1
}

// AddMidi appends m and returns its index.
func (t *Table) AddMidi(m *Midi) int {
	t.midis = append(t.midis, m)
	return len(t.midis) - 1
}

// SetAudio replaces the asset at index i, e.g. after a missing file is
// located.
func (t *Table) SetAudio(i int, a *Audio) error {
	if i < 0 || i >= len(t.audios) {
		return fmt.Errorf("%w: audio index %d", timeline.ErrUnknownAsset, i)
	}
	t.audios[i] = a
	return nil
}

func (t *Table) AudioCount() int { return len(t.audios) }
func (t *Table) MidiCount() int  { return len(t.midis) }

// AudioAt returns the asset entry at i.
func (t *Table) AudioAt(i int) (*Audio, bool) {
	if i < 0 || i >= len(t.audios) {
		return nil, false
	}
	return t.audios[i], true
}

// MidiAt returns the asset entry at i.
func (t *Table) MidiAt(i int) (*Midi, bool) {
	if i < 0 || i >= len(t.midis) {
		return nil, false
	}
	return t.midis[i], true
}

// Audio implements timeline.Assets.
func (t *Table) Audio(i int) ([]float32, bool) {
	a, ok := t.AudioAt(i)
	if !ok {
		return nil, false
	}
	if a == nil {
		return nil, true
	}
	return a.Data, true
}

// Midi implements timeline.Assets.
func (t *Table) Midi(i int) ([]timeline.Note, bool) {
	m, ok := t.MidiAt(i)
	if !ok {
		return nil, false
	}
	if m == nil {
		return nil, true
	}
	return m.Notes, true
}

// Clone copies the index. Asset data is shared.
func (t *Table) Clone() *Table {
	return &Table{
		audios: append([]*Audio(nil), t.audios...),
		midis:  append([]*Midi(nil), t.midis...),
	}
}

var _ timeline.Assets = (*Table)(nil)
