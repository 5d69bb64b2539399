// SPDX-License-Identifier: EPL-2.0

package graph

import (
	"errors"
	"fmt"
)

var (
	ErrCycle          = errors.New("connection would create a cycle")
	ErrUnknownChannel = errors.New("unknown channel")
	ErrUnknownSlot    = errors.New("unknown plugin slot")
	ErrNotConnected   = errors.New("channels are not connected")
	ErrInvalidVolume  = errors.New("volume must be a finite, non-negative gain")
	ErrInvalidPan     = errors.New("pan must be within [-1, 1]")
	ErrInvalidMix     = errors.New("mix must be within [0, 1]")
	ErrEmptySlot      = errors.New("plugin slot holds no loaded plugin")
)

// CycleError rejects a connection that would close a loop. The graph is
// unchanged.
type CycleError struct {
	From Index
	To   Index
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("connecting channel %d to %d: %v", e.From, e.To, ErrCycle)
}

func (e *CycleError) Is(target error) bool { return target == ErrCycle }
