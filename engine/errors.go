// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"errors"
	"fmt"

	"github.com/ik5/dawcore/asset"
	"github.com/ik5/dawcore/graph"
	"github.com/ik5/dawcore/plugin"
)

var (
	ErrTransportFull = errors.New("command ring is full")
	ErrDevice        = errors.New("audio device unavailable")
	ErrNoTrack       = errors.New("unknown track")
)

// DeviceError reports the loss of the output device. It stops the
// transport; the session can be restarted on a new device.
type DeviceError struct {
	Err error
}

func (e *DeviceError) Error() string { return fmt.Sprintf("audio device: %v", e.Err) }
func (e *DeviceError) Unwrap() error { return e.Err }

// Is matches ErrDevice.
func (e *DeviceError) Is(target error) bool { return target == ErrDevice }

// IsWarning reports whether err only carries recoverable problems: plugins
// or assets left absent and plugin state that fell back to defaults. A
// joined error is a warning when every part of it is.
func IsWarning(err error) bool {
	if err == nil {
		return false
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range j.Unwrap() {
			if e != nil && !IsWarning(e) {
				return false
			}
		}
		return true
	}
	return errors.Is(err, plugin.ErrLoad) ||
		errors.Is(err, plugin.ErrState) ||
		errors.Is(err, asset.ErrLoad)
}

// ErrorHandler receives errors that have no caller to return to: plugin
// faults raised on the audio thread, device loss and load warnings.
type ErrorHandler interface {
	HandleError(error)
}

// FuncErrorHandler adapts a function to ErrorHandler.
type FuncErrorHandler func(error)

func (f FuncErrorHandler) HandleError(err error) { f(err) }

// LoggingErrorHandler logs every error and passes it on.
type LoggingErrorHandler struct {
	underlying ErrorHandler
	logger     func(error)
}

// NewLoggingErrorHandler creates a logging error handler. underlying may
// be nil.
func NewLoggingErrorHandler(underlying ErrorHandler, logger func(error)) *LoggingErrorHandler {
	return &LoggingErrorHandler{
		underlying: underlying,
		logger:     logger,
	}
}

// HandleError implements ErrorHandler.
func (h *LoggingErrorHandler) HandleError(err error) {
	if h.logger != nil {
		h.logger(err)
	}
	if h.underlying != nil {
		h.underlying.HandleError(err)
	}
}

// FaultError is a plugin fault raised on the audio thread, as handed to
// the ErrorHandler.
type FaultError struct {
	Fault graph.Fault
}

func (e *FaultError) Error() string {
	f := &e.Fault
	switch f.Kind {
	case graph.FaultOverrun:
		return fmt.Sprintf("plugin %s on channel %d slot %d took %v of a %v budget",
			f.Instance, f.Channel, f.Slot, f.Took, f.Budget)
	default:
		if f.Panic != nil {
			return fmt.Sprintf("plugin %s on channel %d slot %d panicked: %v", f.Instance, f.Channel, f.Slot, f.Panic)
		}
		return fmt.Sprintf("plugin %s on channel %d slot %d: %v", f.Instance, f.Channel, f.Slot, f.Err)
	}
}

func (e *FaultError) Unwrap() error { return e.Fault.Err }

// Is matches plugin.ErrProcess for failed calls.
func (e *FaultError) Is(target error) bool {
	return target == plugin.ErrProcess && e.Fault.Kind == graph.FaultProcess
}
