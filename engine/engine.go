// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"sync/atomic"
	"time"

	"github.com/ik5/dawcore/event"
	"github.com/ik5/dawcore/graph"
	"github.com/ik5/dawcore/ring"
	"github.com/ik5/dawcore/timeline"
)

// DefaultMeterInterval is the number of played blocks between peak
// reports.
const DefaultMeterInterval = 8

// Engine is the audio thread side. Process is its only entry point; it
// never allocates, locks or blocks, apart from what hosted plugins do.
type Engine struct {
	commands *ring.Ring[command]
	reports  *ring.Ring[Report]

	program  *Program
	applied  uint64
	state    State
	position int64
	chase    bool
	dropped  uint64

	meterEvery int
	blocks     int
	tooLarge   int
	sink       faultSink

	// halt stops the transport at the next drain when a stop could not be
	// queued.
	halt atomic.Bool
}

type faultSink struct{ e *Engine }

func (s *faultSink) Fault(f graph.Fault) {
	s.e.report(Report{Kind: ReportFault, Fault: f, Position: s.e.position})
}

func newEngine(commands, reports int, meterEvery int) *Engine {
	e := &Engine{
		commands:   ring.New[command](commands),
		reports:    ring.New[Report](reports),
		meterEvery: max(meterEvery, 1),
	}
	e.sink.e = e
	return e
}

// Process renders the next block into out, interleaved stereo. out may be
// any length; a block longer than the loaded program supports is split
// and reported once so the controller can grow its buffers.
func (e *Engine) Process(out []float32) {
	start := time.Now()

	e.drain()
	clear(out)

	frames := len(out) / 2
	if e.state != Playing || e.program == nil || frames == 0 {
		return
	}

	plan := e.program.plan
	limit := plan.MaxFrames()
	if frames > limit && frames != e.tooLarge {
		e.tooLarge = frames
		e.report(Report{Kind: ReportBlockTooLarge, Frames: frames, Position: e.position})
	}
	for done := 0; done < frames; {
		n := min(frames-done, limit)
		e.render(out[done*2:(done+n)*2], n)
		done += n
	}

	e.blocks++
	if e.blocks%e.meterEvery == 0 {
		for ch := range plan.Channels() {
			l, r := plan.Peak(ch)
			e.report(Report{Kind: ReportMeter, Channel: ch, PeakL: l, PeakR: r, Position: e.position})
		}
		plan.ResetPeaks()
	}

	e.report(Report{
		Kind:     ReportPosition,
		Position: e.position,
		State:    e.state,
		Seq:      e.applied,
		Version:  plan.Version(),
		Frames:   frames,
		Took:     time.Since(start),
	})
}

// render runs one sub-block of at most MaxFrames frames.
func (e *Engine) render(out []float32, frames int) {
	p := e.program
	plan := p.plan
	n := frames * 2

	plan.Begin(frames)
	for ch := range p.release {
		if !p.release[ch].Empty() {
			p.release[ch].Release(plan.Events(ch), 0)
			p.release[ch] = event.KeySet{}
		}
	}
	for i := range p.tracks {
		t := &p.tracks[i]
		timeline.Render(plan.Input(t.channel)[:n], plan.Events(t.channel), t.clips, p.assets, p.meter,
			p.sampleRate, e.position, frames, e.chase)
	}
	plan.Run(out, frames, &e.sink)
	for ch := range p.held {
		p.held[ch].Track(plan.Events(ch).Events())
	}

	e.position += int64(frames)
	e.chase = false
}

// drain applies every pending command in order. Transport effects are
// folded so the block that follows sees only the final state.
func (e *Engine) drain() {
	prev := e.state
	reset, seeked := false, false

	for {
		c, ok := e.commands.Pop()
		if !ok {
			break
		}

		switch c.kind {
		case cmdProgram:
			e.swap(c.program)
			e.applied = c.program.seq
			e.report(Report{Kind: ReportApplied, Seq: c.program.seq, Version: c.program.plan.Version()})
		case cmdClear:
			e.program = nil
			e.applied = c.seq
			e.state = Stopped
			e.report(Report{Kind: ReportApplied, Seq: c.seq})
		case cmdPlay:
			// without a program there is nothing to play
			if e.state != Playing && e.program != nil {
				e.state = Playing
				e.chase = true
			}
		case cmdStop:
			if e.state != Stopped {
				e.state = Stopped
				reset = true
			}
		case cmdSeek:
			// Seeking resolves here; the transport keeps its state.
			e.position = max(c.frame, 0)
			reset, seeked = true, true
		case cmdVolume, cmdPan, cmdEnabled, cmdMix, cmdParam:
			e.tweak(&c)
		}
	}

	if e.halt.Swap(false) && e.state != Stopped {
		e.state = Stopped
		reset = true
	}

	if reset {
		if p := e.program; p != nil {
			p.plan.Reset()
			clear(p.held)
			clear(p.release)
		}
		e.chase = true
	}
	if e.state != prev || seeked {
		var version uint64
		if e.program != nil {
			version = e.program.plan.Version()
		}
		e.report(Report{Kind: ReportState, State: e.state, Position: e.position, Seq: e.applied, Version: version})
	}
}

// swap installs p. Keys the old program left sounding stay held when p
// still has them on at the playhead; the rest get a note-off at the start
// of the next block.
func (e *Engine) swap(p *Program) {
	old := e.program
	e.program = p
	e.tooLarge = 0
	if old == nil {
		return
	}

	for i := range p.tracks {
		t := &p.tracks[i]
		timeline.Sounding(&p.held[t.channel], t.clips, p.assets, p.meter, p.sampleRate, e.position)
	}
	for ch := range p.held {
		var was event.KeySet
		if ch < len(old.held) {
			was = old.held[ch].Union(old.release[ch])
		}
		p.release[ch] = was.Minus(p.held[ch])
		p.held[ch] = was.Intersect(p.held[ch])
	}
}

func (e *Engine) tweak(c *command) {
	if e.program == nil {
		return
	}
	plan := e.program.plan
	switch c.kind {
	case cmdVolume:
		plan.SetVolume(c.channel, float32(c.value))
	case cmdPan:
		plan.SetPan(c.channel, float32(c.value))
	case cmdEnabled:
		plan.SetEnabled(c.channel, c.slot, c.enabled)
	case cmdMix:
		plan.SetMix(c.channel, c.slot, float32(c.value))
	case cmdParam:
		plan.SetParam(c.channel, c.slot, c.param, c.value)
	}
}

func (e *Engine) report(r Report) {
	r.Dropped = e.dropped
	if !e.reports.Push(r) {
		e.dropped++
	}
}
