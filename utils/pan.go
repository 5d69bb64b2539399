// SPDX-License-Identifier: EPL-2.0

package utils

import "math"

// PanGains returns the left and right gains for pan in [-1, 1] using a
// constant power law normalized so that center is unity on both sides.
// Values outside the range are clamped.
func PanGains(pan float32) (left, right float32) {
	if pan < -1 {
		pan = -1
	} else if pan > 1 {
		pan = 1
	}

	angle := (float64(pan) + 1) * math.Pi / 4

	return float32(math.Cos(angle) * math.Sqrt2), float32(math.Sin(angle) * math.Sqrt2)
}
