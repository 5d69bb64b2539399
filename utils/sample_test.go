// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"math"
	"testing"
)

func TestCubicInterpolate_Endpoints(t *testing.T) {
	t.Parallel()

	for i := range 50 {
		y0, y1, y2, y3 := float32(i), float32(i+1), float32(i+2), float32(i+3)
		if got := CubicInterpolate(y0, y1, y2, y3, 0); got != y1 {
			t.Errorf("x=0: got %v, want %v", got, y1)
		}
		if got := CubicInterpolate(y0, y1, y2, y3, 1); got != y2 {
			t.Errorf("x=1: got %v, want %v", got, y2)
		}
	}
}

func TestFloat32ToPCM(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    float32
		bitDepth int
		want     int
	}{
		{name: "zero 16", input: 0, bitDepth: 16, want: 0},
		{name: "full 16", input: 1, bitDepth: 16, want: 32767},
		{name: "negative full 16", input: -1, bitDepth: 16, want: -32767},
		{name: "clamp 16", input: 3, bitDepth: 16, want: 32767},
		{name: "half 24", input: 0.5, bitDepth: 24, want: 4194303},
		{name: "full 8", input: 1, bitDepth: 8, want: 127},
		{name: "unknown depth", input: 1, bitDepth: 12, want: 32767},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Float32ToPCM(tt.input, tt.bitDepth); got != tt.want {
				t.Errorf("Float32ToPCM(%v, %d) = %d, want %d", tt.input, tt.bitDepth, got, tt.want)
			}
		})
	}
}

func TestFloat32ToInt16_Monotonic(t *testing.T) {
	t.Parallel()

	prev := Float32ToInt16(-1.0)
	for f := -0.99; f <= 1.0; f += 0.01 {
		curr := Float32ToInt16(float32(f))
		if curr < prev {
			t.Fatalf("f=%v gives %v, previous was %v", f, curr, prev)
		}
		prev = curr
	}
}

func TestPCMToFloat32_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, depth := range []int{8, 16, 24} {
		for _, x := range []float32{-0.75, -0.25, 0, 0.25, 0.75} {
			back := PCMToFloat32(Float32ToPCM(x, depth), depth)
			if math.Abs(float64(back-x)) > 0.01 {
				t.Errorf("depth %d: %v -> %v", depth, x, back)
			}
		}
	}
}

func TestAmpToDB(t *testing.T) {
	t.Parallel()

	if got := AmpToDB(1); got != 0 {
		t.Errorf("AmpToDB(1) = %v, want 0", got)
	}
	if got := AmpToDB(0.1); math.Abs(float64(got+20)) > 1e-4 {
		t.Errorf("AmpToDB(0.1) = %v, want -20", got)
	}
	if got := AmpToDB(0); !math.IsInf(float64(got), -1) {
		t.Errorf("AmpToDB(0) = %v, want -Inf", got)
	}
}

func TestDBToAmp(t *testing.T) {
	t.Parallel()

	if got := DBToAmp(float32(math.Inf(-1))); got != 0 {
		t.Errorf("DBToAmp(-Inf) = %v, want 0", got)
	}
	for _, amp := range []float32{0.01, 0.5, 1, 2} {
		back := DBToAmp(AmpToDB(amp))
		if math.Abs(float64(back-amp)) > 1e-4 {
			t.Errorf("round trip %v -> %v", amp, back)
		}
	}
}

func TestPanGains(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		pan         float32
		left, right float32
	}{
		{name: "center", pan: 0, left: 1, right: 1},
		{name: "hard left", pan: -1, left: float32(math.Sqrt2), right: 0},
		{name: "hard right", pan: 1, left: 0, right: float32(math.Sqrt2)},
		{name: "clamped", pan: 4, left: 0, right: float32(math.Sqrt2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l, r := PanGains(tt.pan)
			if math.Abs(float64(l-tt.left)) > 1e-5 || math.Abs(float64(r-tt.right)) > 1e-5 {
				t.Errorf("PanGains(%v) = (%v, %v), want (%v, %v)", tt.pan, l, r, tt.left, tt.right)
			}
		})
	}
}

func TestSampleMath_ZeroAllocs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping allocation test in short mode")
	}

	allocs := testing.AllocsPerRun(1000, func() {
		_ = Float32ToInt16(0.5)
		_, _ = PanGains(0.3)
		_ = CubicInterpolate(0.5, 1.0, 0.8, 0.3, 0.5)
	})
	if allocs > 0 {
		t.Errorf("sample math allocated %v times, want 0", allocs)
	}
}

func BenchmarkPanGains(b *testing.B) {
	b.ReportAllocs()

	var l, r float32
	for i := range b.N {
		l, r = PanGains(float32(i%200)/100 - 1)
	}
	_, _ = l, r
}
