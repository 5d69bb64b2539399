// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
)

// ReadAll drains src in chunks of bufferSize samples and returns every
// sample read. The source is not closed.
func ReadAll(src Source, bufferSize int) ([]float32, error) {
	channels := src.Channels()
	if channels < 1 {
		return nil, ErrChannelCount
	}
	if bufferSize < channels {
		bufferSize = 4096
	}
	bufferSize -= bufferSize % channels

	out := make([]float32, 0, bufferSize*4)
	buf := make([]float32, bufferSize)

	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)

		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading samples: %w", err)
		}
		if n == 0 {
			// a source that returns nothing and no error would spin
			return out, nil
		}
	}
}

// ToStereo converts src into interleaved stereo at targetRate and collects
// the whole stream.
//
// The pipeline is:
//  1. Resample to targetRate with cubic interpolation
//  2. Adapt the channel layout to stereo
//  3. Read everything into memory
func ToStereo(src Source, targetRate int, bufferSize int) ([]float32, error) {
	var s Source = src
	if src.SampleRate() != targetRate {
		s = NewResampler(s, targetRate)
	}
	s = NewStereoMixer(s)

	data, err := ReadAll(s, bufferSize)
	if err != nil {
		return nil, fmt.Errorf("converting to stereo at %d Hz: %w", targetRate, err)
	}

	return data, nil
}
