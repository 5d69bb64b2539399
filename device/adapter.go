// SPDX-License-Identifier: EPL-2.0

package device

import (
	"fmt"

	"github.com/ik5/dawcore/audio"
)

// Adapter renders device buffers from an engine running at another rate or
// channel count.
type Adapter struct {
	r          Renderer
	engineRate int
	deviceRate int
	channels   int

	// stereo holds one chunk at the device rate
	stereo    []float32
	maxFrames int

	src       *engineSource
	resampler *audio.Resampler
}

// NewAdapter converts from r at engineRate to channels at deviceRate.
// Device buffers are processed in chunks of at most maxFrames frames;
// with differing rates the engine is called with blocks of maxFrames.
func NewAdapter(r Renderer, engineRate, deviceRate, channels, maxFrames int) (*Adapter, error) {
	if channels < 1 {
		return nil, fmt.Errorf("%w: %d", ErrChannels, channels)
	}
	if engineRate <= 0 || deviceRate <= 0 || maxFrames <= 0 {
		return nil, fmt.Errorf("%w: rates %d/%d, block %d", ErrUnavailable, engineRate, deviceRate, maxFrames)
	}

	a := &Adapter{
		r:          r,
		engineRate: engineRate,
		deviceRate: deviceRate,
		channels:   channels,
		stereo:     make([]float32, maxFrames*2),
		maxFrames:  maxFrames,
	}
	if engineRate != deviceRate {
		a.src = &engineSource{r: r, rate: engineRate, buf: make([]float32, maxFrames*2)}
		a.resampler = audio.NewResampler(a.src, deviceRate)
	}
	return a, nil
}

// Resampling reports whether the rates differ.
func (a *Adapter) Resampling() bool { return a.resampler != nil }

// Process fills out, interleaved with the device channel count.
func (a *Adapter) Process(out []float32) {
	frames := len(out) / a.channels
	for done := 0; done < frames; {
		n := min(frames-done, a.maxFrames)
		st := a.stereo[:n*2]
		if a.resampler == nil {
			a.r.Process(st)
		} else if got, _ := a.resampler.ReadSamples(st); got < len(st) {
			clear(st[got:])
		}
		a.spread(out[done*a.channels:(done+n)*a.channels], st)
		done += n
	}
	clear(out[frames*a.channels:])
}

// spread maps stereo onto the device channels: mono gets the average,
// extra channels stay silent.
func (a *Adapter) spread(dst, stereo []float32) {
	switch a.channels {
	case 1:
		for i := range dst {
			dst[i] = (stereo[i*2] + stereo[i*2+1]) * 0.5
		}
	case 2:
		copy(dst, stereo)
	default:
		clear(dst)
		for f := 0; f*2 < len(stereo); f++ {
			dst[f*a.channels] = stereo[f*2]
			dst[f*a.channels+1] = stereo[f*2+1]
		}
	}
}

// engineSource exposes a Renderer as an endless audio.Source, rendering
// one block at a time.
type engineSource struct {
	r    Renderer
	rate int
	buf  []float32
	pos  int
	fill int
}

func (s *engineSource) SampleRate() int { return s.rate }
func (s *engineSource) Channels() int   { return 2 }
func (s *engineSource) BufSize() int    { return len(s.buf) }
func (s *engineSource) Close() error    { return nil }

func (s *engineSource) ReadSamples(dst []float32) (int, error) {
	if len(dst)%2 != 0 {
		return 0, audio.ErrInvalidDstSize
	}
	n := 0
	for n < len(dst) {
		if s.pos == s.fill {
			s.r.Process(s.buf)
			s.pos, s.fill = 0, len(s.buf)
		}
		c := copy(dst[n:], s.buf[s.pos:s.fill])
		s.pos += c
		n += c
	}
	return n, nil
}

var _ audio.Source = (*engineSource)(nil)
