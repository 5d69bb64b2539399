// SPDX-License-Identifier: EPL-2.0

package plugin

import (
	"errors"
	"fmt"
)

var (
	ErrLoad         = errors.New("plugin could not be loaded")
	ErrProcess      = errors.New("plugin failed to process a block")
	ErrState        = errors.New("plugin state could not be restored")
	ErrNotFound     = errors.New("plugin not found")
	ErrPortMismatch = errors.New("plugin port layout not supported")
	ErrUnknownParam = errors.New("unknown plugin parameter")
	ErrBadSymbol    = errors.New("plugin module exports no usable constructor")
)

// LoadError reports a plugin that could not be instantiated. The slot it
// was meant for stays empty.
type LoadError struct {
	ID  string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading plugin %q: %v", e.ID, e.Err)
}

func (e *LoadError) Unwrap() error        { return e.Err }
func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// ProcessError reports a failed or panicking Process call. Its output for
// that block was replaced by silence.
type ProcessError struct {
	// Instance is the handle instance ID.
	Instance string
	Err      error
	// Panic holds the recovered value when the plugin panicked.
	Panic any
}

func (e *ProcessError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("plugin instance %s panicked: %v", e.Instance, e.Panic)
	}
	return fmt.Sprintf("plugin instance %s: %v", e.Instance, e.Err)
}

func (e *ProcessError) Unwrap() error        { return e.Err }
func (e *ProcessError) Is(target error) bool { return target == ErrProcess }

// StateError reports a state blob the plugin rejected. The plugin was put
// back to its defaults.
type StateError struct {
	ID  string
	Err error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("restoring state of plugin %q: %v", e.ID, e.Err)
}

func (e *StateError) Unwrap() error        { return e.Err }
func (e *StateError) Is(target error) bool { return target == ErrState }
