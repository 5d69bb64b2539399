// SPDX-License-Identifier: EPL-2.0

package project

import (
	"errors"
	"fmt"

	"github.com/ik5/dawcore/timeline"
)

// ErrCorrupt reports a snapshot that does not parse or whose indices do
// not line up.
var ErrCorrupt = errors.New("corrupt project snapshot")

// Project is the persisted form of a session: asset tables, tracks and the
// mixer graph. Every list keeps insertion order.
type Project struct {
	Meter    timeline.Meter
	Audios   []Audio
	Midis    [][]timeline.Note
	Tracks   []Track
	Channels []Channel
}

// Audio references an audio file by name and content hash.
type Audio struct {
	Name string
	Hash uint64
}

// Track is a list of clips feeding one channel.
type Track struct {
	Clips   []timeline.Clip
	Channel int
}

// Channel is one mixer node. Channel 0 is the master.
type Channel struct {
	Connections []int
	Plugins     []Plugin
	Volume      float32
	Pan         float32
}

// Plugin is one chain slot.
type Plugin struct {
	ID []byte
	// State is nil when the slot has none.
	State   []byte
	Mix     float32
	Enabled bool
}

// Validate checks every index and range a loader relies on. Cycles are
// left to the graph.
func (p *Project) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrCorrupt}, args...)...))
	}

	if err := p.Meter.Validate(); err != nil {
		bad("%v", err)
	}
	for m, notes := range p.Midis {
		for i, n := range notes {
			if n.End <= n.Start {
				bad("midi %d note %d ends before it starts", m, i)
			}
			if n.Key > 127 {
				bad("midi %d note %d key %d", m, i, n.Key)
			}
			if !(n.Velocity >= 0 && n.Velocity <= 1) {
				bad("midi %d note %d velocity %v", m, i, n.Velocity)
			}
		}
	}
	if len(p.Channels) == 0 {
		bad("no master channel")
	}
	for t, tr := range p.Tracks {
		if tr.Channel < 0 || tr.Channel >= len(p.Channels) {
			bad("track %d feeds channel %d of %d", t, tr.Channel, len(p.Channels))
		}
		for c, clip := range tr.Clips {
			if err := clip.Position.Validate(); err != nil {
				bad("track %d clip %d: %v", t, c, err)
			}
			var n int
			switch clip.Kind {
			case timeline.AudioClip:
				n = len(p.Audios)
			case timeline.MidiClip:
				n = len(p.Midis)
			default:
				bad("track %d clip %d has no kind", t, c)
				continue
			}
			if clip.Asset < 0 || clip.Asset >= n {
				bad("track %d clip %d: %s index %d of %d", t, c, clip.Kind, clip.Asset, n)
			}
		}
	}
	for ci, ch := range p.Channels {
		for _, to := range ch.Connections {
			if to < 0 || to >= len(p.Channels) {
				bad("channel %d connects to %d of %d", ci, to, len(p.Channels))
			}
		}
		if !(ch.Volume >= 0) {
			bad("channel %d volume %v", ci, ch.Volume)
		}
		if !(ch.Pan >= -1 && ch.Pan <= 1) {
			bad("channel %d pan %v", ci, ch.Pan)
		}
		for pi, pl := range ch.Plugins {
			if !(pl.Mix >= 0 && pl.Mix <= 1) {
				bad("channel %d plugin %d mix %v", ci, pi, pl.Mix)
			}
		}
	}

	return errors.Join(errs...)
}
