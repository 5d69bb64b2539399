// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"

	"github.com/ik5/dawcore/utils"
)

// Resampler streams from src to a target sample rate using cubic
// interpolation. It works on interleaved samples and preserves the channel
// count. A one-pole low-pass runs on the input when downsampling.
//
// After the first read it does not allocate, which makes it usable on the
// device callback path as well as for asset loading.
type Resampler struct {
	src      Source
	dstRate  float64
	ratio    float64 // source frames per output frame
	channels int

	// four frame window for cubic interpolation:
	// frames[0] = t-1, frames[1] = t0, frames[2] = t+1, frames[3] = t+2
	frames   [4][]float32
	hasFrame [4]bool
	primed   bool
	seeded   bool

	// fractional position between frames[1] and frames[2]
	pos float64

	srcBuf []float32
	eof    bool

	filterState []float32
	useFilter   bool
	filterAlpha float32
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()
	ratio := float64(src.SampleRate()) / float64(dstRate)

	r := &Resampler{
		src:         src,
		dstRate:     float64(dstRate),
		ratio:       ratio,
		channels:    channels,
		srcBuf:      make([]float32, channels),
		useFilter:   ratio > 1.0,
		filterAlpha: 0.5,
		filterState: make([]float32, channels),
	}

	for i := range r.frames {
		r.frames[i] = make([]float32, channels)
	}

	return r
}

func (r *Resampler) SampleRate() int { return int(r.dstRate) }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

// Ratio returns how many source frames are consumed per output frame.
func (r *Resampler) Ratio() float64 { return r.ratio }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("closing resampler source: %w", err)
	}

	return nil
}

// Reset drops the interpolation history so the next read starts fresh
// from the source's current position.
func (r *Resampler) Reset() {
	r.hasFrame = [4]bool{}
	r.primed = false
	r.pos = 0
	r.eof = false
	r.seeded = false
	clear(r.filterState)
}

// readFrame pulls one frame from the source into dst, applying the
// anti-aliasing filter when enabled.
func (r *Resampler) readFrame(dst []float32) (bool, error) {
	if r.eof {
		return false, nil
	}

	n, err := r.src.ReadSamples(r.srcBuf)
	got := n >= r.channels
	if got {
		if r.useFilter && !r.seeded {
			// seed with the first frame to avoid a warm-up ramp
			copy(r.filterState, r.srcBuf)
			r.seeded = true
		}
		copy(dst, r.srcBuf)
		if r.useFilter {
			for c := range r.channels {
				dst[c] = r.filterAlpha*dst[c] + (1-r.filterAlpha)*r.filterState[c]
				r.filterState[c] = dst[c]
			}
		}
	}

	if err == io.EOF {
		r.eof = true
		return got, nil
	}
	if err != nil {
		return got, fmt.Errorf("resampler source: %w", err)
	}

	return got, nil
}

// prime fills the window. frames[0] repeats the first frame so the first
// output lands exactly on it.
func (r *Resampler) prime() error {
	got, err := r.readFrame(r.frames[1])
	if err != nil {
		return err
	}
	if !got {
		return io.EOF
	}

	copy(r.frames[0], r.frames[1])
	r.hasFrame[0], r.hasFrame[1] = true, true

	for i := 2; i < 4; i++ {
		got, err := r.readFrame(r.frames[i])
		if err != nil {
			return err
		}
		r.hasFrame[i] = got
	}

	r.primed = true
	r.pos = 0

	return nil
}

// advance shifts the window by one source frame.
func (r *Resampler) advance() error {
	copy(r.frames[0], r.frames[1])
	copy(r.frames[1], r.frames[2])
	copy(r.frames[2], r.frames[3])
	r.hasFrame[0], r.hasFrame[1], r.hasFrame[2] = r.hasFrame[1], r.hasFrame[2], r.hasFrame[3]

	got, err := r.readFrame(r.frames[3])
	r.hasFrame[3] = got

	return err
}

// ReadSamples produces dst samples at the target rate. len(dst) must be a
// multiple of the channel count. The stream ends once the window no longer
// holds two frames to interpolate between.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	if !r.primed {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	framesNeeded := len(dst) / r.channels
	written := 0

	for written < framesNeeded {
		for r.pos >= 1.0 {
			r.pos -= 1.0
			if err := r.advance(); err != nil {
				return written * r.channels, err
			}
		}

		if !r.hasFrame[1] || !r.hasFrame[2] {
			return r.finish(written)
		}

		alpha := float32(r.pos)
		base := written * r.channels
		for c := range r.channels {
			y3 := r.frames[3][c]
			if !r.hasFrame[3] {
				y3 = r.frames[2][c]
			}
			dst[base+c] = utils.CubicInterpolate(r.frames[0][c], r.frames[1][c], r.frames[2][c], y3, alpha)
		}

		written++
		r.pos += r.ratio
	}

	return written * r.channels, nil
}

func (r *Resampler) finish(written int) (int, error) {
	return written * r.channels, io.EOF
}
