// SPDX-License-Identifier: EPL-2.0

package plugin

import (
	"github.com/ik5/dawcore/event"
)

// Info describes a processor.
type Info struct {
	ID      string
	Name    string
	Vendor  string
	Version string
}

// Ports is the port layout a processor declares. Audio ports count
// channels of interleaved audio.
type Ports struct {
	AudioIn  int
	AudioOut int
	NoteIn   bool
	NoteOut  bool
}

// Param declares one automatable parameter.
type Param struct {
	ID      uint32
	Name    string
	Min     float64
	Max     float64
	Default float64
}

// Clamp limits v to the declared range.
func (p Param) Clamp(v float64) float64 {
	return min(max(v, p.Min), p.Max)
}

// Block is the buffer set of one Process call. Audio is interleaved stereo.
type Block struct {
	// In is nil for processors without audio inputs.
	In  []float32
	Out []float32
	// Events are the incoming note events, ordered by frame.
	Events []event.Note
	// OutEvents is nil unless the processor declares a note output.
	OutEvents *event.Buffer
	Frames    int
}

// Processor is the contract a hosted plugin implements.
//
// Process, Reset and SetParam run on the audio thread once the processor
// is playing and must neither block nor allocate. SaveState and Param are
// called from the control thread while Process may be running, so the
// processor must make them safe against it.
type Processor interface {
	Info() Info
	Ports() Ports
	Params() []Param
	// Activate prepares the processor for blocks of at most maxFrames at
	// sampleRate. It is called once, before any Process.
	Activate(sampleRate, maxFrames int) error
	Process(b *Block) error
	// Reset drops any time dependent state such as delay lines and
	// sounding voices. Parameters keep their values.
	Reset()
	SetParam(id uint32, v float64)
	Param(id uint32) float64
	SaveState() ([]byte, error)
	RestoreState(state []byte) error
	Close() error
}

// Factory creates a processor.
type Factory func() (Processor, error)
