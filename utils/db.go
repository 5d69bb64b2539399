// SPDX-License-Identifier: EPL-2.0

package utils

import "math"

// silenceFloor is the amplitude under which AmpToDB reports -Inf.
const silenceFloor = 1e-6

// AmpToDB converts a linear amplitude to decibels.
func AmpToDB(amp float32) float32 {
	if amp < silenceFloor {
		return float32(math.Inf(-1))
	}

	return float32(20 * math.Log10(float64(amp)))
}

// DBToAmp converts decibels to a linear amplitude. -Inf maps to 0.
func DBToAmp(db float32) float32 {
	if math.IsInf(float64(db), -1) {
		return 0
	}

	return float32(math.Pow(10, 0.05*float64(db)))
}
