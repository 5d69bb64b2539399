// SPDX-License-Identifier: EPL-2.0

package asset

import (
	"math"
	"testing"

	"github.com/ik5/dawcore/internal/audiotest"
)

func TestSummarize_Levels(t *testing.T) {
	t.Parallel()

	const frames = 1 << 16
	data := make([]float32, frames*2)
	for f := range frames {
		v := float32(f%100)/50 - 1
		data[2*f], data[2*f+1] = v, v
	}

	s, err := Summarize(&Audio{SampleRate: 48000, Data: data})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	if got := len(s.Level(0)); got != frames/8 {
		t.Fatalf("level 0 = %d entries, want %d", got, frames/8)
	}
	for i := 1; i < Levels; i++ {
		prev, cur := len(s.Level(i-1)), len(s.Level(i))
		if cur != (prev+1)/2 {
			t.Errorf("level %d = %d entries, want %d", i, cur, (prev+1)/2)
		}
	}
	if s.Level(Levels) != nil || s.Level(-1) != nil {
		t.Error("out of range level returned entries")
	}

	for i := range Levels {
		for j, m := range s.Level(i) {
			if m.Min < 0 || m.Max > 1 || m.Min > m.Max {
				t.Fatalf("level %d entry %d = %+v, outside [0, 1]", i, j, m)
			}
		}
	}

	top := s.Level(Levels - 1)[0]
	if top.Min != 0 || math.Abs(float64(top.Max)-0.99) > 1e-6 {
		t.Errorf("top entry = %+v, want {0 0.99}", top)
	}
}

func TestSummarizeSource_Mapping(t *testing.T) {
	t.Parallel()

	src := audiotest.NewConstantSource(48000, 2, 20, -1)
	s, err := SummarizeSource(src)
	if err != nil {
		t.Fatalf("SummarizeSource() error = %v", err)
	}

	// 20 frames: two full chunks and one partial
	l0 := s.Level(0)
	if len(l0) != 3 {
		t.Fatalf("level 0 = %d entries, want 3", len(l0))
	}
	for _, m := range l0 {
		if m != (MinMax{}) {
			t.Errorf("entry = %+v, want {0 0}", m)
		}
	}
	if FramesPerEntry(2) != 32 {
		t.Errorf("FramesPerEntry(2) = %d", FramesPerEntry(2))
	}
}

func TestSummarize_Unloaded(t *testing.T) {
	t.Parallel()

	s, err := Summarize(&Audio{Name: "gone.wav"})
	if err != nil || len(s.Level(0)) != 0 {
		t.Errorf("Summarize(unloaded) = %v, %v", s, err)
	}
}
