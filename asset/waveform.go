// SPDX-License-Identifier: EPL-2.0

package asset

import (
	"fmt"
	"math"

	"github.com/ik5/dawcore/audio"
)

const (
	// Levels is the number of detail levels in a Summary.
	Levels = 13
	// chunkFrames is how many frames one level 0 entry covers.
	chunkFrames = 8
)

// MinMax is the envelope of a span of samples, mapped from [-1, 1] to
// [0, 1] so it can be uploaded as an unsigned texture.
type MinMax struct {
	Min float32
	Max float32
}

// Summary is a min/max pyramid of an audio asset. Level 0 covers 8 frames
// per entry; each further level merges two entries of the one below.
type Summary struct {
	levels [Levels][]MinMax
}

// Level returns the entries at level i, ready for upload. The slice is
// shared and must not be modified.
func (s *Summary) Level(i int) []MinMax {
	if i < 0 || i >= Levels {
		return nil
	}
	return s.levels[i]
}

// FramesPerEntry returns how many source frames one entry of level i
// covers.
func FramesPerEntry(i int) int { return chunkFrames << i }

// Summarize builds the summary of a decoded asset. An unloaded asset gives
// an empty summary.
func Summarize(a *Audio) (*Summary, error) {
	if !a.Loaded() {
		return &Summary{}, nil
	}
	return SummarizeSource(audio.NewBuffer(a.Data, a.SampleRate, 2))
}

// SummarizeSource drains src through a mono downmix and builds its
// summary.
func SummarizeSource(src audio.Source) (*Summary, error) {
	mono, err := audio.ReadAll(audio.NewMonoMixer(src), decodeBufferSize)
	if err != nil {
		return nil, fmt.Errorf("summarizing waveform: %w", err)
	}
	return summarize(mono), nil
}

func summarize(mono []float32) *Summary {
	s := &Summary{}

	base := make([]MinMax, 0, (len(mono)+chunkFrames-1)/chunkFrames)
	for off := 0; off < len(mono); off += chunkFrames {
		lo, hi := float32(math.Inf(1)), float32(math.Inf(-1))
		for _, v := range mono[off:min(off+chunkFrames, len(mono))] {
			lo = min(lo, v)
			hi = max(hi, v)
		}
		base = append(base, MinMax{Min: lo*0.5 + 0.5, Max: hi*0.5 + 0.5})
	}
	s.levels[0] = base

	for i := 1; i < Levels; i++ {
		prev := s.levels[i-1]
		cur := make([]MinMax, 0, (len(prev)+1)/2)
		for j := 0; j < len(prev); j += 2 {
			m := prev[j]
			if j+1 < len(prev) {
				m.Min = min(m.Min, prev[j+1].Min)
				m.Max = max(m.Max, prev[j+1].Max)
			}
			cur = append(cur, m)
		}
		s.levels[i] = cur
	}

	return s
}
