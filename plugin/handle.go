// SPDX-License-Identifier: EPL-2.0

package plugin

import (
	"github.com/google/uuid"

	"github.com/ik5/dawcore/event"
)

// Handle is a loaded, activated plugin instance. A handle is owned by one
// channel slot.
type Handle struct {
	id       []byte
	instance string
	proc     Processor
	info     Info
	ports    Ports
	params   []Param
	index    map[uint32]int

	block   Block
	procErr ProcessError
}

func newHandle(id []byte, proc Processor) *Handle {
	h := &Handle{
		id:       append([]byte(nil), id...),
		instance: uuid.New().String(),
		proc:     proc,
		info:     proc.Info(),
		ports:    proc.Ports(),
		params:   proc.Params(),
	}
	h.index = make(map[uint32]int, len(h.params))
	for i, p := range h.params {
		h.index[p.ID] = i
	}
	return h
}

// ID returns the plugin identifier the handle was loaded from.
func (h *Handle) ID() []byte { return h.id }

// Instance returns the unique ID of this instance.
func (h *Handle) Instance() string { return h.instance }

func (h *Handle) Info() Info      { return h.info }
func (h *Handle) Ports() Ports    { return h.ports }
func (h *Handle) Params() []Param { return h.params }

// Lookup returns the declaration of parameter id.
func (h *Handle) Lookup(id uint32) (Param, bool) {
	i, ok := h.index[id]
	if !ok {
		return Param{}, false
	}
	return h.params[i], true
}

// Process runs one block. It does not allocate. A panic inside the plugin
// is recovered and returned as a *ProcessError, as is any error the plugin
// returns; the error value is reused by the next failing call.
func (h *Handle) Process(in, out []float32, events []event.Note, outEvents *event.Buffer, frames int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.procErr = ProcessError{Instance: h.instance, Err: ErrProcess, Panic: r}
			err = &h.procErr
		}
	}()

	b := &h.block
	b.In, b.Out, b.Events, b.Frames = in, out, events, frames
	b.OutEvents = nil
	if h.ports.NoteOut {
		b.OutEvents = outEvents
	}
	if h.ports.AudioIn == 0 {
		b.In = nil
	}

	if perr := h.proc.Process(b); perr != nil {
		h.procErr = ProcessError{Instance: h.instance, Err: perr}
		return &h.procErr
	}
	return nil
}

// Reset drops time dependent plugin state.
func (h *Handle) Reset() { h.proc.Reset() }

// SetParam clamps v to the declared range and forwards it.
func (h *Handle) SetParam(id uint32, v float64) error {
	p, ok := h.Lookup(id)
	if !ok {
		return ErrUnknownParam
	}
	h.proc.SetParam(id, p.Clamp(v))
	return nil
}

// Param reads a parameter value.
func (h *Handle) Param(id uint32) (float64, error) {
	if _, ok := h.index[id]; !ok {
		return 0, ErrUnknownParam
	}
	return h.proc.Param(id), nil
}

// SaveState returns the opaque plugin state.
func (h *Handle) SaveState() ([]byte, error) {
	st, err := h.proc.SaveState()
	if err != nil {
		return nil, &StateError{ID: string(h.id), Err: err}
	}
	return st, nil
}

// RestoreState loads a blob produced by SaveState. When the plugin
// rejects it, the plugin is reset with every parameter at its default and
// a *StateError is returned.
func (h *Handle) RestoreState(state []byte) error {
	if err := h.proc.RestoreState(state); err != nil {
		h.proc.Reset()
		for _, p := range h.params {
			h.proc.SetParam(p.ID, p.Default)
		}
		return &StateError{ID: string(h.id), Err: err}
	}
	return nil
}

// Close releases the plugin.
func (h *Handle) Close() error { return h.proc.Close() }
