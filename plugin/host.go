// SPDX-License-Identifier: EPL-2.0

package plugin

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Host resolves plugin identifiers to activated handles. It runs on the
// control thread.
type Host struct {
	sampleRate int
	maxFrames  int
	logger     *slog.Logger
	native     *NativeLoader

	mtx       sync.Mutex
	factories map[string]Factory
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithLogger sets the host logger.
func WithLogger(logger *slog.Logger) HostOption {
	return func(h *Host) { h.logger = logger }
}

// WithSearchPaths enables loading native plugin modules from dirs.
func WithSearchPaths(dirs ...string) HostOption {
	return func(h *Host) { h.native = NewNativeLoader(dirs...) }
}

// NewHost returns a host activating plugins at sampleRate for blocks of
// up to maxFrames.
func NewHost(sampleRate, maxFrames int, opts ...HostOption) *Host {
	h := &Host{
		sampleRate: sampleRate,
		maxFrames:  maxFrames,
		logger:     slog.Default(),
		factories:  make(map[string]Factory),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// SampleRate is the rate plugins are activated at.
func (h *Host) SampleRate() int { return h.sampleRate }

// MaxFrames is the largest block plugins are activated for.
func (h *Host) MaxFrames() int { return h.maxFrames }

// Register makes id resolvable through f. A later registration of the
// same id wins.
func (h *Host) Register(id string, f Factory) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	h.factories[id] = f
}

// Registered lists the registered identifiers.
func (h *Host) Registered() []string {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	out := make([]string, 0, len(h.factories))
	for id := range h.factories {
		out = append(out, id)
	}
	return out
}

// Load instantiates the plugin named by the opaque id, checks its port
// layout and activates it. Registered factories are tried first, then the
// native module search paths. Every failure is a *LoadError.
func (h *Host) Load(id []byte) (*Handle, error) {
	start := time.Now()
	name := string(id)

	f, err := h.resolve(name)
	if err != nil {
		return nil, &LoadError{ID: name, Err: err}
	}

	proc, err := f()
	if err != nil {
		return nil, &LoadError{ID: name, Err: err}
	}

	if err := negotiate(proc.Ports()); err != nil {
		proc.Close()
		return nil, &LoadError{ID: name, Err: err}
	}

	if err := proc.Activate(h.sampleRate, h.maxFrames); err != nil {
		proc.Close()
		return nil, &LoadError{ID: name, Err: fmt.Errorf("activating: %w", err)}
	}

	handle := newHandle(id, proc)
	h.logger.Debug("plugin loaded",
		"id", name,
		"instance", handle.Instance(),
		"name", handle.Info().Name,
		"duration", time.Since(start),
	)

	return handle, nil
}

func (h *Host) resolve(name string) (Factory, error) {
	h.mtx.Lock()
	f, ok := h.factories[name]
	h.mtx.Unlock()
	if ok {
		return f, nil
	}

	if h.native == nil {
		return nil, ErrNotFound
	}
	return h.native.Lookup(name)
}

// negotiate accepts stereo output with either no audio input or a stereo
// input.
func negotiate(p Ports) error {
	var errs []error
	if p.AudioOut != 2 {
		errs = append(errs, fmt.Errorf("%w: %d output channels, want 2", ErrPortMismatch, p.AudioOut))
	}
	if p.AudioIn != 0 && p.AudioIn != 2 {
		errs = append(errs, fmt.Errorf("%w: %d input channels, want 0 or 2", ErrPortMismatch, p.AudioIn))
	}
	return errors.Join(errs...)
}
