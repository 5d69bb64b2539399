// SPDX-License-Identifier: EPL-2.0

package asset

import (
	"errors"
	"fmt"
)

var (
	ErrLoad          = errors.New("asset could not be loaded")
	ErrHashMismatch  = errors.New("asset content hash mismatch")
	ErrInvalidNote   = errors.New("note must end after it starts")
	ErrNotMetric     = errors.New("SMF time format is not metric")
)

// LoadError reports an asset that could not be loaded. The project keeps
// referring to it by name and hash; it renders as silence.
type LoadError struct {
	Name string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading asset %q: %v", e.Name, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is matches ErrLoad.
func (e *LoadError) Is(target error) bool { return target == ErrLoad }
