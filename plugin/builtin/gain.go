// SPDX-License-Identifier: EPL-2.0

package builtin

import (
	"github.com/ik5/dawcore/plugin"
	"github.com/ik5/dawcore/utils"
)

const GainID = "dawcore.gain"

// Gain parameters.
const (
	GainDB uint32 = iota
)

// Gain scales its input by a gain in dB.
type Gain struct {
	p *params
}

// NewGain returns a gain at 0 dB.
func NewGain() (plugin.Processor, error) {
	return &Gain{p: newParams([]plugin.Param{
		{ID: GainDB, Name: "gain", Min: -96, Max: 24, Default: 0},
	})}, nil
}

func (g *Gain) Info() plugin.Info {
	return plugin.Info{ID: GainID, Name: "Gain", Vendor: "dawcore", Version: "1.0.0"}
}

func (g *Gain) Ports() plugin.Ports           { return plugin.Ports{AudioIn: 2, AudioOut: 2} }
func (g *Gain) Params() []plugin.Param        { return g.p.decl }
func (g *Gain) Activate(_, _ int) error       { return nil }
func (g *Gain) Reset()                        {}
func (g *Gain) SetParam(id uint32, v float64) { g.p.set(id, v) }
func (g *Gain) Param(id uint32) float64       { return g.p.get(id) }
func (g *Gain) SaveState() ([]byte, error)    { return g.p.save(), nil }
func (g *Gain) RestoreState(b []byte) error   { return g.p.restore(b) }
func (g *Gain) Close() error                  { return nil }

func (g *Gain) Process(b *plugin.Block) error {
	k := utils.DBToAmp(float32(g.p.get(GainDB)))
	n := b.Frames * 2
	for i, v := range b.In[:n] {
		b.Out[i] = v * k
	}
	return nil
}
