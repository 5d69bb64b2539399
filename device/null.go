// SPDX-License-Identifier: EPL-2.0

package device

import (
	"sync"
	"time"
)

// Null is an output without hardware. It calls the renderer at the pace
// a device of its format would and discards the audio, or hands it to a
// sink.
type Null struct {
	cfg      Config
	engine   int
	maxBlock int
	sink     func([]float32)

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewNull creates a null output. sink, when not nil, receives every
// buffer on the callback goroutine and must not keep it.
func NewNull(cfg Config, engineRate, maxBlock int, sink func([]float32)) *Null {
	if cfg.FramesPerBuffer <= 0 {
		cfg.FramesPerBuffer = 512
	}
	return &Null{cfg: cfg, engine: engineRate, maxBlock: maxBlock, sink: sink}
}

func (n *Null) SampleRate() int      { return n.cfg.SampleRate }
func (n *Null) Channels() int        { return n.cfg.Channels }
func (n *Null) FramesPerBuffer() int { return n.cfg.FramesPerBuffer }

// Start runs the callback loop on its own goroutine.
func (n *Null) Start(r Renderer) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stop != nil {
		return ErrRunning
	}

	a, err := NewAdapter(r, n.engine, n.cfg.SampleRate, n.cfg.Channels, n.maxBlock)
	if err != nil {
		return err
	}

	n.stop, n.done = make(chan struct{}), make(chan struct{})
	period := time.Duration(n.cfg.FramesPerBuffer) * time.Second / time.Duration(n.cfg.SampleRate)
	go n.loop(a, period, n.stop, n.done)
	return nil
}

func (n *Null) loop(a *Adapter, period time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	buf := make([]float32, n.cfg.FramesPerBuffer*n.cfg.Channels)
	t := time.NewTicker(period)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.C:
		}
		a.Process(buf)
		if n.sink != nil {
			n.sink(buf)
		}
	}
}

// Stop ends the loop and waits for the callback in flight.
func (n *Null) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stop == nil {
		return nil
	}
	close(n.stop)
	<-n.done
	n.stop, n.done = nil, nil
	return nil
}

// Close stops the loop.
func (n *Null) Close() error { return n.Stop() }

var _ Output = (*Null)(nil)
