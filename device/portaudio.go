// SPDX-License-Identifier: EPL-2.0

package device

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudio plays through the default output device of PortAudio.
type PortAudio struct {
	mu       sync.Mutex
	stream   *portaudio.Stream
	cfg      Config
	engine   int
	maxBlock int
	adapter  *Adapter
	name     string
}

// OpenPortAudio initializes PortAudio and checks the default output
// device. Rendering starts with Start. engineRate is the rate of the
// Renderer; maxBlock bounds the blocks the engine is called with when
// resampling.
func OpenPortAudio(cfg Config, engineRate, maxBlock int) (*PortAudio, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: initialize portaudio: %w", ErrUnavailable, err)
	}
	d, err := portaudio.DefaultOutputDevice()
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: default output: %w", ErrUnavailable, err)
	}
	if cfg.Channels > d.MaxOutputChannels {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: %d, %s has %d", ErrChannels, cfg.Channels, d.Name, d.MaxOutputChannels)
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = int(d.DefaultSampleRate)
	}

	return &PortAudio{cfg: cfg, engine: engineRate, maxBlock: maxBlock, name: d.Name}, nil
}

// Name is the device name.
func (p *PortAudio) Name() string { return p.name }

func (p *PortAudio) SampleRate() int      { return p.cfg.SampleRate }
func (p *PortAudio) Channels() int        { return p.cfg.Channels }
func (p *PortAudio) FramesPerBuffer() int { return p.cfg.FramesPerBuffer }

// Start opens a stream whose callback renders from r.
func (p *PortAudio) Start(r Renderer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream != nil {
		return ErrRunning
	}

	a, err := NewAdapter(r, p.engine, p.cfg.SampleRate, p.cfg.Channels, p.maxBlock)
	if err != nil {
		return err
	}
	s, err := portaudio.OpenDefaultStream(0, p.cfg.Channels, float64(p.cfg.SampleRate), p.cfg.FramesPerBuffer, a.Process)
	if err != nil {
		return fmt.Errorf("%w: open stream: %w", ErrUnavailable, err)
	}
	if err := s.Start(); err != nil {
		_ = s.Close()
		return fmt.Errorf("%w: start stream: %w", ErrUnavailable, err)
	}
	p.stream, p.adapter = s, a
	return nil
}

// Stop stops the stream. The callback in flight completes first.
func (p *PortAudio) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil {
		return nil
	}

	err := p.stream.Stop()
	if cerr := p.stream.Close(); err == nil {
		err = cerr
	}
	p.stream, p.adapter = nil, nil
	if err != nil {
		return fmt.Errorf("%w: stop stream: %w", ErrUnavailable, err)
	}
	return nil
}

// Close stops the stream and terminates PortAudio.
func (p *PortAudio) Close() error {
	err := p.Stop()
	if terr := portaudio.Terminate(); err == nil && terr != nil {
		err = fmt.Errorf("terminate portaudio: %w", terr)
	}
	return err
}

var _ Output = (*PortAudio)(nil)
