// SPDX-License-Identifier: EPL-2.0

package graph

import (
	"time"

	"github.com/ik5/dawcore/event"
	"github.com/ik5/dawcore/plugin"
	"github.com/ik5/dawcore/utils"
)

// EventCapacity is how many note events one channel holds per block.
const EventCapacity = 1024

// FaultKind classifies a Fault.
type FaultKind uint8

const (
	// FaultProcess is a plugin that failed or panicked. Its stage output
	// was silence for the block.
	FaultProcess FaultKind = iota + 1
	// FaultOverrun is a plugin that took longer than its budget.
	FaultOverrun
)

// Fault is a problem met while running a plan. It is a plain value so the
// audio thread can queue it without allocating.
type Fault struct {
	Kind     FaultKind
	Channel  Index
	Slot     int
	Instance string
	// Err and Panic come from the plugin for FaultProcess.
	Err   error
	Panic any
	// Took is the measured call duration for FaultOverrun.
	Took   time.Duration
	Budget time.Duration
}

// FaultSink receives faults on the audio thread. Implementations must not
// block or allocate.
type FaultSink interface {
	Fault(f Fault)
}

type slotPlan struct {
	handle  *plugin.Handle
	enabled bool
	mix     float32
	noteOut bool
}

type channelPlan struct {
	volume float32
	gainL  float32
	gainR  float32
	inputs []int
	slots  []slotPlan

	in  []float32
	a   []float32
	b   []float32
	out []float32

	events *event.Buffer
	noteA  *event.Buffer
	noteB  *event.Buffer

	peakL float32
	peakR float32
}

// Plan is a compiled, immutable in shape snapshot of a Graph for the audio
// thread. Its buffers are sized for blocks of up to MaxFrames; running it
// never allocates. Only the tweak methods change it, and only from the
// audio thread.
type Plan struct {
	version    uint64
	maxFrames  int
	sampleRate int
	budget     float64
	order      []int
	channels   []channelPlan
}

// Compile snapshots the graph for blocks of up to maxFrames. budget is the
// share of a block's duration one plugin call may take before it is
// reported. Compile allocates and runs on the control thread.
func (g *Graph) Compile(maxFrames int, budget float64) *Plan {
	order := g.Order()

	p := &Plan{
		version:    g.version,
		maxFrames:  maxFrames,
		sampleRate: g.host.SampleRate(),
		budget:     budget,
		order:      make([]int, len(order)),
		channels:   make([]channelPlan, len(g.channels)),
	}
	for i, o := range order {
		p.order[i] = int(o)
	}

	n := maxFrames * 2
	for i, c := range g.channels {
		cp := &p.channels[i]
		cp.volume = c.volume
		cp.gainL, cp.gainR = utils.PanGains(c.pan)
		cp.in = make([]float32, n)
		cp.a = make([]float32, n)
		cp.b = make([]float32, n)
		cp.out = make([]float32, n)
		cp.events = event.NewBuffer(EventCapacity)
		cp.noteA = event.NewBuffer(EventCapacity)
		cp.noteB = event.NewBuffer(EventCapacity)

		for _, s := range c.slots {
			sp := slotPlan{enabled: s.Enabled, mix: s.Mix}
			if s.Loaded() {
				sp.handle = s.Handle
				sp.noteOut = s.Handle.Ports().NoteOut
			}
			cp.slots = append(cp.slots, sp)
		}
	}
	for from, c := range g.channels {
		for _, to := range c.conns {
			p.channels[to].inputs = append(p.channels[to].inputs, from)
		}
	}

	return p
}

// Version is the graph version the plan was compiled from.
func (p *Plan) Version() uint64 { return p.version }

// MaxFrames is the largest block Run accepts.
func (p *Plan) MaxFrames() int { return p.maxFrames }

// Channels returns the channel count.
func (p *Plan) Channels() int { return len(p.channels) }

// Input returns the buffer tracks render channel ch into, interleaved
// stereo of MaxFrames frames. It is cleared by Begin.
func (p *Plan) Input(ch int) []float32 { return p.channels[ch].in }

// Events returns the note events tracks send to channel ch. Run sorts
// them.
func (p *Plan) Events(ch int) *event.Buffer { return p.channels[ch].events }

// Begin clears the inputs for a block of frames.
func (p *Plan) Begin(frames int) {
	n := frames * 2
	for i := range p.channels {
		clear(p.channels[i].in[:n])
		p.channels[i].events.Reset()
	}
}

// Run mixes one block and adds the master output to out, which holds
// frames interleaved stereo frames. frames must not exceed MaxFrames.
func (p *Plan) Run(out []float32, frames int, sink FaultSink) {
	if frames <= 0 {
		return
	}
	n := frames * 2
	limit := time.Duration(p.budget * float64(frames) / float64(max(p.sampleRate, 1)) * float64(time.Second))

	for _, ci := range p.order {
		c := &p.channels[ci]
		in := c.in[:n]
		for _, u := range c.inputs {
			up := p.channels[u].out[:n]
			for i := range in {
				in[i] += up[i]
			}
		}

		c.events.Sort()
		cur := in
		events := c.events.Events()
		// which note output buffer events currently come from
		var evSrc *event.Buffer
		for si := range c.slots {
			s := &c.slots[si]
			if s.handle == nil || !s.enabled {
				continue
			}

			dst := c.a[:n]
			if &cur[0] == &dst[0] {
				dst = c.b[:n]
			}
			var noteOut *event.Buffer
			if s.noteOut {
				noteOut = c.noteA
				if evSrc == c.noteA {
					noteOut = c.noteB
				}
				noteOut.Reset()
			}

			start := time.Now()
			err := s.handle.Process(cur, dst, events, noteOut, frames)
			took := time.Since(start)

			if err != nil {
				clear(dst)
				if sink != nil {
					f := Fault{Kind: FaultProcess, Channel: Index(ci), Slot: si, Instance: s.handle.Instance()}
					if pe, ok := err.(*plugin.ProcessError); ok {
						f.Err, f.Panic = pe.Err, pe.Panic
					} else {
						f.Err = err
					}
					sink.Fault(f)
				}
			} else if s.mix < 1 {
				dry, wet := 1-s.mix, s.mix
				for i := range dst {
					dst[i] = cur[i]*dry + dst[i]*wet
				}
			}

			if limit > 0 && took > limit && sink != nil {
				sink.Fault(Fault{
					Kind: FaultOverrun, Channel: Index(ci), Slot: si,
					Instance: s.handle.Instance(), Took: took, Budget: limit,
				})
			}

			if noteOut != nil {
				noteOut.Sort()
				events = noteOut.Events()
				evSrc = noteOut
			}
			cur = dst
		}

		o := c.out[:n]
		gl, gr := c.gainL*c.volume, c.gainR*c.volume
		pl, pr := c.peakL, c.peakR
		for i := 0; i < n; i += 2 {
			l, r := cur[i]*gl, cur[i+1]*gr
			o[i], o[i+1] = l, r
			pl = max(pl, abs(l))
			pr = max(pr, abs(r))
		}
		c.peakL, c.peakR = pl, pr
	}

	master := p.channels[Master].out[:n]
	for i := range master {
		out[i] += master[i]
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// Output returns the last block output of channel ch after pan and
// volume.
func (p *Plan) Output(ch int, frames int) []float32 { return p.channels[ch].out[:frames*2] }

// Peak returns the largest absolute sample per side since the last
// ResetPeaks.
func (p *Plan) Peak(ch int) (left, right float32) {
	c := &p.channels[ch]
	return c.peakL, c.peakR
}

// ResetPeaks starts a new metering window.
func (p *Plan) ResetPeaks() {
	for i := range p.channels {
		p.channels[i].peakL, p.channels[i].peakR = 0, 0
	}
}

// Reset drops the time dependent state of every plugin and the meters.
func (p *Plan) Reset() {
	for i := range p.channels {
		for _, s := range p.channels[i].slots {
			if s.handle != nil {
				s.handle.Reset()
			}
		}
	}
	p.ResetPeaks()
}

func (p *Plan) valid(ch, slot int) bool {
	return ch >= 0 && ch < len(p.channels) && slot >= 0 && slot < len(p.channels[ch].slots)
}

// SetVolume changes a channel gain in place.
func (p *Plan) SetVolume(ch int, v float32) {
	if ch >= 0 && ch < len(p.channels) {
		p.channels[ch].volume = v
	}
}

// SetPan changes a channel pan in place.
func (p *Plan) SetPan(ch int, pan float32) {
	if ch >= 0 && ch < len(p.channels) {
		p.channels[ch].gainL, p.channels[ch].gainR = utils.PanGains(pan)
	}
}

// SetEnabled bypasses or re-enables a slot in place.
func (p *Plan) SetEnabled(ch, slot int, enabled bool) {
	if p.valid(ch, slot) {
		p.channels[ch].slots[slot].enabled = enabled
	}
}

// SetMix changes a slot dry/wet balance in place.
func (p *Plan) SetMix(ch, slot int, mix float32) {
	if p.valid(ch, slot) {
		p.channels[ch].slots[slot].mix = mix
	}
}

// SetParam forwards a parameter change to a slot plugin.
func (p *Plan) SetParam(ch, slot int, id uint32, v float64) {
	if p.valid(ch, slot) {
		if h := p.channels[ch].slots[slot].handle; h != nil {
			_ = h.SetParam(id, v)
		}
	}
}
