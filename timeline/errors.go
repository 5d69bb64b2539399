// SPDX-License-Identifier: EPL-2.0

package timeline

import "errors"

var (
	ErrInvalidPosition = errors.New("invalid clip position")
	ErrInvalidMeter    = errors.New("invalid meter")
	ErrClipOverrun     = errors.New("clip region exceeds its asset")
	ErrUnknownAsset    = errors.New("unknown asset index")
	ErrUnknownTrack    = errors.New("unknown track")
	ErrUnknownClip     = errors.New("unknown clip handle")
)
