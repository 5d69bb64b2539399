// SPDX-License-Identifier: EPL-2.0

package timeline

import (
	"fmt"
	"slices"

	"github.com/ik5/dawcore/event"
)

// ClipHandle identifies a clip across edits.
type ClipHandle uint64

type placed struct {
	handle ClipHandle
	clip   Clip
}

// Track is an ordered list of clips feeding one channel. Clips keep their
// insertion order; overlaps are allowed and mixed.
type Track struct {
	channel int
	clips   []placed
}

// Timeline owns every track and clip of a project. It is a control side
// structure and is not safe for concurrent use.
type Timeline struct {
	meter      Meter
	sampleRate int
	assets     Assets
	tracks     []*Track
	next       ClipHandle
	where      map[ClipHandle]int
}

// New creates an empty timeline resolving assets through assets and
// rendering at sampleRate.
func New(assets Assets, sampleRate int) *Timeline {
	return &Timeline{
		meter:      DefaultMeter(),
		sampleRate: sampleRate,
		assets:     assets,
		where:      make(map[ClipHandle]int),
	}
}

func (t *Timeline) Meter() Meter    { return t.meter }
func (t *Timeline) SampleRate() int { return t.sampleRate }
func (t *Timeline) Assets() Assets  { return t.assets }
func (t *Timeline) TrackCount() int { return len(t.tracks) }

// End is the latest clip end over every track, zero when empty.
func (t *Timeline) End() MusicalTime {
	var end MusicalTime
	for _, tr := range t.tracks {
		for _, p := range tr.clips {
			end = max(end, p.clip.Position.GlobalEnd)
		}
	}

	return end
}

// SetMeter replaces the tempo and time signature. Clips keep their
// musical positions, so a slower tempo stretches audio clips over more
// frames; a meter under which an audio clip would overrun its asset is
// rejected and the old one stays.
func (t *Timeline) SetMeter(m Meter) error {
	if err := m.Validate(); err != nil {
		return err
	}

	old := t.meter
	t.meter = m
	for ti, tr := range t.tracks {
		for ci, p := range tr.clips {
			if p.clip.Kind != AudioClip {
				continue
			}
			if err := t.check(p.clip); err != nil {
				t.meter = old
				return fmt.Errorf("track %d clip %d: %w", ti, ci, err)
			}
		}
	}

	return nil
}

// AddTrack appends an empty track routed to channel.
func (t *Timeline) AddTrack(channel int) int {
	t.tracks = append(t.tracks, &Track{channel: channel})
	return len(t.tracks) - 1
}

// TrackChannel returns the channel a track feeds.
func (t *Timeline) TrackChannel(track int) (int, error) {
	tr, err := t.track(track)
	if err != nil {
		return 0, err
	}

	return tr.channel, nil
}

// SetTrackChannel reroutes a track.
func (t *Timeline) SetTrackChannel(track, channel int) error {
	tr, err := t.track(track)
	if err != nil {
		return err
	}
	tr.channel = channel

	return nil
}

// Clips returns a copy of the track's clips in insertion order.
func (t *Timeline) Clips(track int) ([]Clip, error) {
	tr, err := t.track(track)
	if err != nil {
		return nil, err
	}

	out := make([]Clip, len(tr.clips))
	for i, p := range tr.clips {
		out[i] = p.clip
	}

	return out, nil
}

// Handles returns the track's clip handles in insertion order.
func (t *Timeline) Handles(track int) ([]ClipHandle, error) {
	tr, err := t.track(track)
	if err != nil {
		return nil, err
	}

	out := make([]ClipHandle, len(tr.clips))
	for i, p := range tr.clips {
		out[i] = p.handle
	}

	return out, nil
}

// Clip looks a clip up by handle.
func (t *Timeline) Clip(h ClipHandle) (Clip, bool) {
	tr, i, err := t.locate(h)
	if err != nil {
		return Clip{}, false
	}

	return t.tracks[tr].clips[i].clip, true
}

// InsertClip appends c to track after validating its position against
// the asset it references.
func (t *Timeline) InsertClip(track int, c Clip) (ClipHandle, error) {
	tr, err := t.track(track)
	if err != nil {
		return 0, err
	}
	if err := t.check(c); err != nil {
		return 0, err
	}

	t.next++
	h := t.next
	tr.clips = append(tr.clips, placed{handle: h, clip: c})
	t.where[h] = track

	return h, nil
}

// MoveClip shifts a clip to start at globalStart, keeping its length.
func (t *Timeline) MoveClip(h ClipHandle, globalStart MusicalTime) error {
	return t.update(h, func(p ClipPosition) (ClipPosition, error) {
		return p.Move(globalStart)
	})
}

// TrimClip sets all three edges of a clip at once.
func (t *Timeline) TrimClip(h ClipHandle, clipStart, globalStart, globalEnd MusicalTime) error {
	return t.update(h, func(ClipPosition) (ClipPosition, error) {
		return NewClipPosition(globalStart, globalEnd, clipStart)
	})
}

// RemoveClip deletes a clip. Remaining clips keep their order.
func (t *Timeline) RemoveClip(h ClipHandle) error {
	tr, i, err := t.locate(h)
	if err != nil {
		return err
	}

	t.tracks[tr].clips = slices.Delete(t.tracks[tr].clips, i, i+1)
	delete(t.where, h)

	return nil
}

// Region is the contribution of one track to one block.
type Region struct {
	// Audio is interleaved stereo, Frames*2 samples.
	Audio []float32
	// Events are ordered by frame.
	Events []event.Note
}

// RenderRegion renders track over [blockStart, blockStart+frames). It
// allocates its result and is meant for the control side; the engine uses
// Render directly on preallocated buffers.
func (t *Timeline) RenderRegion(track int, blockStart int64, frames int) (Region, error) {
	tr, err := t.track(track)
	if err != nil {
		return Region{}, err
	}
	if frames < 0 {
		return Region{}, fmt.Errorf("negative block length %d", frames)
	}

	clips := make([]Clip, len(tr.clips))
	for i, p := range tr.clips {
		clips[i] = p.clip
	}

	audio := make([]float32, frames*2)
	events := event.NewBuffer(eventCapacity(clips, t.assets))

	Render(audio, events, clips, t.assets, t.meter, t.sampleRate, blockStart, frames, false)
	events.Sort()

	return Region{Audio: audio, Events: events.Events()}, nil
}

// eventCapacity bounds how many events clips can emit in one block.
func eventCapacity(clips []Clip, assets Assets) int {
	n := 0
	for _, c := range clips {
		if c.Kind != MidiClip {
			continue
		}
		notes, _ := assets.Midi(c.Asset)
		n += 2 * len(notes)
	}

	return n
}

func (t *Timeline) track(i int) (*Track, error) {
	if i < 0 || i >= len(t.tracks) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTrack, i)
	}

	return t.tracks[i], nil
}

func (t *Timeline) locate(h ClipHandle) (int, int, error) {
	tr, ok := t.where[h]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %d", ErrUnknownClip, h)
	}
	for i, p := range t.tracks[tr].clips {
		if p.handle == h {
			return tr, i, nil
		}
	}

	return 0, 0, fmt.Errorf("%w: %d", ErrUnknownClip, h)
}

func (t *Timeline) update(h ClipHandle, fn func(ClipPosition) (ClipPosition, error)) error {
	tr, i, err := t.locate(h)
	if err != nil {
		return err
	}

	c := t.tracks[tr].clips[i].clip
	pos, err := fn(c.Position)
	if err != nil {
		return err
	}
	c.Position = pos
	if err := t.check(c); err != nil {
		return err
	}
	t.tracks[tr].clips[i].clip = c

	return nil
}

// check validates a clip against its asset. Audio clips may not play past
// the end of their asset; MIDI clips may be longer than their notes.
func (t *Timeline) check(c Clip) error {
	if err := c.Position.Validate(); err != nil {
		return err
	}

	switch c.Kind {
	case AudioClip:
		data, ok := t.assets.Audio(c.Asset)
		if !ok {
			return fmt.Errorf("%w: audio %d", ErrUnknownAsset, c.Asset)
		}
		if data == nil {
			// absent asset, renders silence
			return nil
		}

		avail := int64(len(data)/2) - t.meter.Frames(c.Position.ClipStart, t.sampleRate)
		need := t.meter.Frames(c.Position.GlobalEnd, t.sampleRate) - t.meter.Frames(c.Position.GlobalStart, t.sampleRate)
		if need > avail {
			return fmt.Errorf("%w: needs %d frames, %d available", ErrClipOverrun, need, max(avail, 0))
		}
	case MidiClip:
		if _, ok := t.assets.Midi(c.Asset); !ok {
			return fmt.Errorf("%w: midi %d", ErrUnknownAsset, c.Asset)
		}
	default:
		return fmt.Errorf("%w: clip kind %d", ErrUnknownAsset, c.Kind)
	}

	return nil
}
