// SPDX-License-Identifier: EPL-2.0

package asset

import (
	"fmt"
	"io"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/ik5/dawcore/timeline"
)

// ReadSMF imports the notes of a Standard MIDI File as a MIDI asset.
//
// Every track is merged and channels are ignored. Tick positions are
// rescaled from the file resolution to timeline.TicksPerBeat; tempo
// changes are ignored since clips live in musical time. A note still held
// at the end of its track ends there, and a note shorter than one tick
// after rescaling lasts one tick.
func ReadSMF(r io.Reader) (*Midi, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("reading SMF: %w", err)
	}

	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok || ticks.Resolution() == 0 {
		return nil, ErrNotMetric
	}
	res := uint64(ticks.Resolution())
	scale := func(abs uint64) timeline.MusicalTime {
		return timeline.MusicalTime(abs * timeline.TicksPerBeat / res)
	}

	type held struct {
		start uint64
		vel   uint8
	}

	var notes []timeline.Note
	for _, track := range s.Tracks {
		// per channel and key, a stack of started notes
		open := make(map[[2]uint8][]held)
		var abs uint64

		end := func(k [2]uint8, at uint64) {
			stack := open[k]
			if len(stack) == 0 {
				return
			}
			h := stack[0]
			open[k] = stack[1:]

			n := timeline.Note{
				Key:      k[1],
				Velocity: float32(h.vel) / 127,
				Start:    scale(h.start),
				End:      scale(at),
			}
			if n.End <= n.Start {
				n.End = n.Start + 1
			}
			notes = append(notes, n)
		}

		for _, ev := range track {
			abs += uint64(ev.Delta)
			msg := midi.Message(ev.Message)

			var ch, key, vel uint8
			switch {
			case msg.GetNoteStart(&ch, &key, &vel):
				k := [2]uint8{ch, key}
				open[k] = append(open[k], held{start: abs, vel: vel})
			case msg.GetNoteEnd(&ch, &key):
				end([2]uint8{ch, key}, abs)
			}
		}

		for k := range open {
			for len(open[k]) > 0 {
				end(k, abs)
			}
		}
	}

	slices.SortStableFunc(notes, func(a, b timeline.Note) int {
		if a.Start != b.Start {
			return int(a.Start) - int(b.Start)
		}
		return int(a.Key) - int(b.Key)
	})

	return NewMidi(notes)
}
