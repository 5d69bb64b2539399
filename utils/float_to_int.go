// SPDX-License-Identifier: EPL-2.0

package utils

// Float32ToInt16 clamps x to [-1, 1] and scales it to 16-bit PCM.
func Float32ToInt16(x float32) int16 {
	return int16(Float32ToPCM(x, 16))
}

// Float32ToPCM clamps x to [-1, 1] and scales it to a signed integer of
// the given bit depth (8, 16, 24 or 32). Unknown depths are treated as 16.
func Float32ToPCM(x float32, bitDepth int) int {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	// Positive peak is one step below the full scale to avoid overflow
	var peak float64
	switch bitDepth {
	case 8:
		peak = 127
	case 24:
		peak = 8388607
	case 32:
		peak = 2147483647
	default:
		peak = 32767
	}

	return int(float64(x) * peak)
}

// PCMToFloat32 is the inverse of Float32ToPCM, normalizing by the full
// scale of the bit depth.
func PCMToFloat32(v int, bitDepth int) float32 {
	switch bitDepth {
	case 8:
		return float32(v) / 128.0
	case 24:
		return float32(v) / 8388608.0
	case 32:
		return float32(float64(v) / 2147483648.0)
	default:
		return float32(v) / 32768.0
	}
}
