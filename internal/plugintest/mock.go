// SPDX-License-Identifier: EPL-2.0

// Package plugintest provides processors for tests of code hosting
// plugins.
package plugintest

import (
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/ik5/dawcore/plugin"
)

// ErrMockProcess is returned by Process once Fail was set.
var ErrMockProcess = errors.New("mock process failure")

// ErrMockState is returned by RestoreState for blobs it did not produce.
var ErrMockState = errors.New("mock state rejected")

// ParamScale is the only parameter of a Mock: a factor applied to its
// output.
const ParamScale uint32 = 0

// Mock is a configurable processor. Without an input port it emits
// Constant on both channels; with one it copies its input. Either way the
// result is multiplied by the scale parameter.
type Mock struct {
	ID       string
	Layout   plugin.Ports
	Constant float32

	// Panic makes Process panic; Fail makes it return ErrMockProcess.
	Panic atomic.Bool
	Fail  atomic.Bool
	// Delay is slept inside Process, for budget tests.
	Delay atomic.Int64

	// ActivateErr is returned by Activate.
	ActivateErr error

	scale     atomic.Uint64
	Processed atomic.Int64
	Resets    atomic.Int64
	Closed    atomic.Bool
	// LastEvents counts the note events seen by the last Process.
	LastEvents atomic.Int64
}

// NewEffect returns a stereo in, stereo out mock.
func NewEffect(id string) *Mock {
	m := &Mock{ID: id, Layout: plugin.Ports{AudioIn: 2, AudioOut: 2, NoteIn: true}}
	m.scale.Store(math.Float64bits(1))
	return m
}

// NewGenerator returns a mock without audio input emitting value.
func NewGenerator(id string, value float32) *Mock {
	m := &Mock{ID: id, Layout: plugin.Ports{AudioOut: 2, NoteIn: true}, Constant: value}
	m.scale.Store(math.Float64bits(1))
	return m
}

// Factory returns a factory handing out m itself.
func (m *Mock) Factory() plugin.Factory {
	return func() (plugin.Processor, error) { return m, nil }
}

func (m *Mock) Info() plugin.Info   { return plugin.Info{ID: m.ID, Name: m.ID, Vendor: "test"} }
func (m *Mock) Ports() plugin.Ports { return m.Layout }

func (m *Mock) Params() []plugin.Param {
	return []plugin.Param{{ID: ParamScale, Name: "scale", Min: 0, Max: 4, Default: 1}}
}

func (m *Mock) Activate(_, _ int) error { return m.ActivateErr }

func (m *Mock) Process(b *plugin.Block) error {
	m.Processed.Add(1)
	m.LastEvents.Store(int64(len(b.Events)))
	if d := m.Delay.Load(); d > 0 {
		time.Sleep(time.Duration(d))
	}
	if m.Panic.Load() {
		panic("mock processor panic")
	}
	if m.Fail.Load() {
		return ErrMockProcess
	}

	k := float32(math.Float64frombits(m.scale.Load()))
	n := b.Frames * 2
	if b.In == nil {
		for i := range b.Out[:n] {
			b.Out[i] = m.Constant * k
		}
		return nil
	}
	for i, v := range b.In[:n] {
		b.Out[i] = v * k
	}
	return nil
}

func (m *Mock) Reset() { m.Resets.Add(1) }

func (m *Mock) SetParam(id uint32, v float64) {
	if id == ParamScale {
		m.scale.Store(math.Float64bits(v))
	}
}

func (m *Mock) Param(id uint32) float64 {
	if id == ParamScale {
		return math.Float64frombits(m.scale.Load())
	}
	return 0
}

// SaveState encodes the scale as eight big endian bytes.
func (m *Mock) SaveState() ([]byte, error) {
	v := m.scale.Load()
	out := make([]byte, 8)
	for i := range out {
		out[i] = byte(v >> (56 - 8*i))
	}
	return out, nil
}

func (m *Mock) RestoreState(b []byte) error {
	if len(b) != 8 {
		return ErrMockState
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	m.scale.Store(v)
	return nil
}

func (m *Mock) Close() error {
	m.Closed.Store(true)
	return nil
}
