// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// StereoMixer adapts a mono or stereo source to interleaved stereo, the
// layout every engine buffer uses. Mono is duplicated to both sides.
// Layouts with more channels fold their first two channels and average the
// rest into both sides.
type StereoMixer struct {
	src Source
	tmp []float32
}

func NewStereoMixer(src Source) *StereoMixer {
	return &StereoMixer{
		src: src,
		tmp: make([]float32, 4096),
	}
}

func (m *StereoMixer) SampleRate() int { return m.src.SampleRate() }
func (m *StereoMixer) Channels() int   { return 2 }
func (m *StereoMixer) BufSize() int    { return m.src.BufSize() }
func (m *StereoMixer) Close() error {
	if err := m.src.Close(); err != nil {
		return fmt.Errorf("closing stereo mixer source: %w", err)
	}

	return nil
}

func (m *StereoMixer) ReadSamples(dst []float32) (int, error) {
	if len(dst)%2 != 0 {
		return 0, ErrInvalidDstSize
	}
	if len(dst) == 0 {
		return 0, nil
	}

	channels := m.src.Channels()
	if channels == 2 {
		return m.src.ReadSamples(dst)
	}
	if channels < 1 {
		return 0, ErrChannelCount
	}

	frames := len(dst) / 2
	need := frames * channels
	if cap(m.tmp) < need {
		m.tmp = make([]float32, max(need, 8192))
	}
	in := m.tmp[:need]

	n, err := m.src.ReadSamples(in)
	if n == 0 {
		return 0, err
	}
	got := n / channels

	if channels == 1 {
		for f := range got {
			dst[2*f] = in[f]
			dst[2*f+1] = in[f]
		}
		return got * 2, err
	}

	inv := float32(1.0) / float32(channels-1)
	for f := range got {
		base := f * channels
		var rest float32
		for c := 2; c < channels; c++ {
			rest += in[base+c]
		}
		rest *= inv
		dst[2*f] = in[base] + rest
		dst[2*f+1] = in[base+1] + rest
	}

	return got * 2, err
}
