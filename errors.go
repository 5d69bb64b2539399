// SPDX-License-Identifier: EPL-2.0

package dawcore

import "errors"

var (
	ErrAttached     = errors.New("session is playing on a device")
	ErrInvalidRange = errors.New("invalid bounce range")
)
