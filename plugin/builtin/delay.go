// SPDX-License-Identifier: EPL-2.0

package builtin

import (
	"fmt"

	"github.com/ik5/dawcore/plugin"
)

const DelayID = "dawcore.delay"

// Delay parameters.
const (
	DelayTime uint32 = iota
	DelayFeedback
)

const maxDelayMs = 2000

// Delay is a stereo feedback delay. Its output is the input plus the
// echoes.
type Delay struct {
	p          *params
	sampleRate int
	line       []float32
	write      int
}

// NewDelay returns a delay at 250 ms.
func NewDelay() (plugin.Processor, error) {
	return &Delay{p: newParams([]plugin.Param{
		{ID: DelayTime, Name: "time ms", Min: 1, Max: maxDelayMs, Default: 250},
		{ID: DelayFeedback, Name: "feedback", Min: 0, Max: 0.95, Default: 0.35},
	})}, nil
}

func (d *Delay) Info() plugin.Info {
	return plugin.Info{ID: DelayID, Name: "Delay", Vendor: "dawcore", Version: "1.0.0"}
}

func (d *Delay) Ports() plugin.Ports           { return plugin.Ports{AudioIn: 2, AudioOut: 2} }
func (d *Delay) Params() []plugin.Param        { return d.p.decl }
func (d *Delay) SetParam(id uint32, v float64) { d.p.set(id, v) }
func (d *Delay) Param(id uint32) float64       { return d.p.get(id) }
func (d *Delay) SaveState() ([]byte, error)    { return d.p.save(), nil }
func (d *Delay) RestoreState(b []byte) error   { return d.p.restore(b) }
func (d *Delay) Close() error                  { return nil }

func (d *Delay) Activate(sampleRate, _ int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate %d", sampleRate)
	}
	d.sampleRate = sampleRate
	// one extra frame so the longest delay never reads the frame being
	// written
	d.line = make([]float32, 2*(sampleRate*maxDelayMs/1000+1))
	d.write = 0
	return nil
}

func (d *Delay) Reset() {
	clear(d.line)
	d.write = 0
}

func (d *Delay) Process(b *plugin.Block) error {
	frames := len(d.line) / 2
	lag := max(1, int(d.p.get(DelayTime)*float64(d.sampleRate)/1000))
	lag = min(lag, frames-1)
	fb := float32(d.p.get(DelayFeedback))

	for f := range b.Frames {
		r := d.write - lag
		if r < 0 {
			r += frames
		}
		for c := range 2 {
			in := b.In[2*f+c]
			echo := d.line[2*r+c]
			b.Out[2*f+c] = in + echo
			d.line[2*d.write+c] = in + echo*fb
		}
		d.write++
		if d.write == frames {
			d.write = 0
		}
	}
	return nil
}
