// SPDX-License-Identifier: EPL-2.0

package builtin

import (
	"fmt"
	"math"

	"github.com/ik5/dawcore/event"
	"github.com/ik5/dawcore/plugin"
)

const SineID = "dawcore.sine"

// Sine parameters.
const (
	SineLevel uint32 = iota
	SineRelease
)

const maxVoices = 16

type voice struct {
	key    uint8
	active bool
	phase  float64
	inc    float64
	amp    float64
	// release counts down once the note ended; zero while held
	release int
	age     uint64
}

// Sine is a polyphonic sine instrument driven by note events.
type Sine struct {
	p          *params
	sampleRate float64
	voices     [maxVoices]voice
	clock      uint64
}

// NewSine returns a sine instrument.
func NewSine() (plugin.Processor, error) {
	return &Sine{p: newParams([]plugin.Param{
		{ID: SineLevel, Name: "level", Min: 0, Max: 1, Default: 0.5},
		{ID: SineRelease, Name: "release ms", Min: 0, Max: 2000, Default: 5},
	})}, nil
}

func (s *Sine) Info() plugin.Info {
	return plugin.Info{ID: SineID, Name: "Sine", Vendor: "dawcore", Version: "1.0.0"}
}

func (s *Sine) Ports() plugin.Ports           { return plugin.Ports{AudioOut: 2, NoteIn: true} }
func (s *Sine) Params() []plugin.Param        { return s.p.decl }
func (s *Sine) SetParam(id uint32, v float64) { s.p.set(id, v) }
func (s *Sine) Param(id uint32) float64       { return s.p.get(id) }
func (s *Sine) SaveState() ([]byte, error)    { return s.p.save(), nil }
func (s *Sine) RestoreState(b []byte) error   { return s.p.restore(b) }
func (s *Sine) Close() error                  { return nil }

func (s *Sine) Activate(sampleRate, _ int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate %d", sampleRate)
	}
	s.sampleRate = float64(sampleRate)
	return nil
}

func (s *Sine) Reset() {
	s.voices = [maxVoices]voice{}
}

func (s *Sine) Process(b *plugin.Block) error {
	level := s.p.get(SineLevel)
	release := int(s.p.get(SineRelease) * s.sampleRate / 1000)

	next := 0
	for f := range b.Frames {
		for next < len(b.Events) && b.Events[next].Frame <= f {
			s.apply(&b.Events[next], release)
			next++
		}

		var sum float64
		for i := range s.voices {
			v := &s.voices[i]
			if !v.active {
				continue
			}
			g := v.amp
			if v.release > 0 {
				g *= float64(v.release) / float64(max(release, 1))
				v.release--
				if v.release == 0 {
					v.active = false
				}
			}
			sum += math.Sin(v.phase) * g
			v.phase += v.inc
			if v.phase >= 2*math.Pi {
				v.phase -= 2 * math.Pi
			}
		}

		out := float32(sum * level)
		b.Out[2*f] = out
		b.Out[2*f+1] = out
	}
	return nil
}

func (s *Sine) apply(e *event.Note, release int) {
	if key, vel, ok := e.Start(); ok {
		v := s.steal(key)
		s.clock++
		*v = voice{
			key:    key,
			active: true,
			inc:    2 * math.Pi * keyFrequency(key) / s.sampleRate,
			amp:    float64(vel) / 127,
			age:    s.clock,
		}
		return
	}

	key, ok := e.End()
	if !ok {
		return
	}
	for i := range s.voices {
		v := &s.voices[i]
		if !v.active || v.key != key || v.release > 0 {
			continue
		}
		if release == 0 {
			v.active = false
		} else {
			v.release = release
		}
	}
}

// steal returns the voice to start key on: a voice already holding key,
// a free one or the oldest.
func (s *Sine) steal(key uint8) *voice {
	var free, oldest *voice
	for i := range s.voices {
		v := &s.voices[i]
		switch {
		case v.active && v.key == key:
			return v
		case !v.active:
			if free == nil {
				free = v
			}
		case oldest == nil || v.age < oldest.age:
			oldest = v
		}
	}
	if free != nil {
		return free
	}
	return oldest
}

func keyFrequency(key uint8) float64 {
	return 440 * math.Pow(2, (float64(key)-69)/12)
}
