// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"time"

	"github.com/ik5/dawcore/asset"
	"github.com/ik5/dawcore/event"
	"github.com/ik5/dawcore/graph"
	"github.com/ik5/dawcore/timeline"
)

// Program is everything one block renders from: a compiled graph, the
// tracks, the asset table and the meter. It is built on the control
// thread and handed over whole, so a block never sees half an edit.
type Program struct {
	seq        uint64
	plan       *graph.Plan
	tracks     []programTrack
	assets     timeline.Assets
	meter      timeline.Meter
	sampleRate int

	// held are the keys each channel's instrument has sounding; release
	// are keys owed a note-off at the start of the next block.
	held    []event.KeySet
	release []event.KeySet
}

type programTrack struct {
	channel int
	clips   []timeline.Clip
}

// Seq is the controller sequence number of the program.
func (p *Program) Seq() uint64 { return p.seq }

// Plan returns the compiled graph.
func (p *Program) Plan() *graph.Plan { return p.plan }

func newProgram(seq uint64, plan *graph.Plan, tl *timeline.Timeline, assets *asset.Table) *Program {
	p := &Program{
		seq:        seq,
		plan:       plan,
		assets:     assets.Clone(),
		meter:      tl.Meter(),
		sampleRate: tl.SampleRate(),
		held:       make([]event.KeySet, plan.Channels()),
		release:    make([]event.KeySet, plan.Channels()),
	}
	for i := range tl.TrackCount() {
		ch, _ := tl.TrackChannel(i)
		clips, _ := tl.Clips(i)
		if ch < 0 || ch >= plan.Channels() || len(clips) == 0 {
			continue
		}
		p.tracks = append(p.tracks, programTrack{channel: ch, clips: clips})
	}
	return p
}

type commandKind uint8

const (
	cmdProgram commandKind = iota + 1
	cmdClear
	cmdPlay
	cmdStop
	cmdSeek
	cmdVolume
	cmdPan
	cmdEnabled
	cmdMix
	cmdParam
)

// command is a control message. It is passed by value through the ring.
type command struct {
	kind    commandKind
	program *Program
	seq     uint64
	frame   int64
	channel int
	slot    int
	param   uint32
	value   float64
	enabled bool
}

// ReportKind tells what a Report carries.
type ReportKind uint8

const (
	// ReportPosition is sent after every played block.
	ReportPosition ReportKind = iota + 1
	// ReportState is sent when the transport state changes.
	ReportState
	// ReportApplied is sent when a program or a clear took effect.
	ReportApplied
	// ReportFault carries a plugin fault.
	ReportFault
	// ReportMeter carries the peaks of one channel.
	ReportMeter
	// ReportBlockTooLarge asks for buffers of Frames frames.
	ReportBlockTooLarge
)

func (k ReportKind) String() string {
	switch k {
	case ReportPosition:
		return "position"
	case ReportState:
		return "state"
	case ReportApplied:
		return "applied"
	case ReportFault:
		return "fault"
	case ReportMeter:
		return "meter"
	case ReportBlockTooLarge:
		return "block too large"
	default:
		return "unknown"
	}
}

// Report is a message from the audio thread. Dropped is the running count
// of reports lost to a full ring. Position and state reports carry the
// Seq and Version of the live program too.
type Report struct {
	Kind     ReportKind
	Position int64
	State    State
	Seq      uint64
	Version  uint64
	Frames   int
	Took     time.Duration
	Fault    graph.Fault
	Channel  int
	PeakL    float32
	PeakR    float32
	Dropped  uint64
}
