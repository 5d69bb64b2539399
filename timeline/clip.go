// SPDX-License-Identifier: EPL-2.0

package timeline

// ClipKind selects which asset table a clip indexes.
type ClipKind uint8

const (
	AudioClip ClipKind = iota + 1
	MidiClip
)

func (k ClipKind) String() string {
	switch k {
	case AudioClip:
		return "audio"
	case MidiClip:
		return "midi"
	default:
		return "unknown"
	}
}

// Clip is a timeline placement of an audio or MIDI asset.
type Clip struct {
	Kind     ClipKind
	Asset    int
	Position ClipPosition
}

// NewAudioClip places audio asset index at pos.
func NewAudioClip(index int, pos ClipPosition) Clip {
	return Clip{Kind: AudioClip, Asset: index, Position: pos}
}

// NewMidiClip places MIDI asset index at pos.
func NewMidiClip(index int, pos ClipPosition) Clip {
	return Clip{Kind: MidiClip, Asset: index, Position: pos}
}

// Note is one MIDI note of a MIDI asset, in asset-relative ticks.
type Note struct {
	Key      uint8
	Velocity float32
	Start    MusicalTime
	End      MusicalTime
}

// Assets resolves asset indices for rendering and validation. ok reports
// whether the index exists; a nil slice with ok set marks an asset that
// failed to load and renders as silence.
type Assets interface {
	// Audio returns interleaved stereo samples at the engine rate.
	Audio(index int) (data []float32, ok bool)
	Midi(index int) (notes []Note, ok bool)
}
