// SPDX-License-Identifier: EPL-2.0

// Package device connects an engine to an audio output.
//
// An Output calls a Renderer from its own callback thread. The Adapter in
// between converts the engine's interleaved stereo at the engine rate to
// the device's channel count and rate, using the cubic resampler from the
// audio package when the rates differ. Nothing on that path allocates
// once running.
package device

import (
	"errors"
)

var (
	ErrUnavailable = errors.New("audio output unavailable")
	ErrRunning     = errors.New("audio output already running")
	ErrChannels    = errors.New("unsupported output channel count")
)

// Renderer fills out with interleaved stereo at the engine rate.
// *engine.Engine implements it.
type Renderer interface {
	Process(out []float32)
}

// Output is an audio device driving a Renderer.
type Output interface {
	// Start begins calling r. It fails with ErrRunning when already
	// started.
	Start(r Renderer) error
	// Stop stops calling r and waits for the callback in flight.
	Stop() error
	// Close releases the device.
	Close() error

	SampleRate() int
	Channels() int
	// FramesPerBuffer is the nominal callback size; zero when the device
	// picks it.
	FramesPerBuffer() int
}

// Config selects the output format.
type Config struct {
	SampleRate      int
	Channels        int
	FramesPerBuffer int
}
