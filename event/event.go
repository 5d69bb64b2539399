// SPDX-License-Identifier: EPL-2.0

// Package event holds the note events exchanged between the timeline and
// plugin note inputs.
//
// Events are fixed-size values wrapping a raw channel-voice message, so
// they can be produced and consumed on the audio thread without
// allocating. Decoding goes through gomidi.
package event

import (
	"gitlab.com/gomidi/midi/v2"
)

// Note is one channel-voice message scheduled at a frame offset inside a
// block.
type Note struct {
	// Frame is the offset from the start of the block.
	Frame int

	raw [3]byte
}

// NoteOn builds a note-on event. Velocity is in [0, 1]; it is mapped to
// 1..127 so a sounding note never degrades into a note-off.
func NoteOn(frame int, channel, key uint8, velocity float32) Note {
	if velocity > 1 {
		velocity = 1
	} else if velocity < 0 {
		velocity = 0
	}

	v := uint8(velocity*127 + 0.5)
	if v == 0 {
		v = 1
	}

	return Note{Frame: frame, raw: [3]byte{0x90 | channel&0x0f, key & 0x7f, v}}
}

// NoteOff builds a note-off event.
func NoteOff(frame int, channel, key uint8) Note {
	return Note{Frame: frame, raw: [3]byte{0x80 | channel&0x0f, key & 0x7f, 0}}
}

// FromMessage converts a gomidi message into an event. Messages longer
// than three bytes are rejected.
func FromMessage(frame int, msg midi.Message) (Note, bool) {
	if len(msg) == 0 || len(msg) > 3 {
		return Note{}, false
	}

	var n Note
	n.Frame = frame
	copy(n.raw[:], msg)

	return n, true
}

// Message exposes the raw bytes as a gomidi message. The returned slice
// aliases the event.
func (n *Note) Message() midi.Message {
	return midi.Message(n.raw[:])
}

// Start reports whether the event starts a note and returns its key and
// velocity.
func (n *Note) Start() (key uint8, velocity uint8, ok bool) {
	var ch uint8
	ok = n.Message().GetNoteStart(&ch, &key, &velocity)

	return key, velocity, ok
}

// End reports whether the event ends a note (note-off or note-on with
// zero velocity) and returns its key.
func (n *Note) End() (key uint8, ok bool) {
	var ch uint8
	ok = n.Message().GetNoteEnd(&ch, &key)

	return key, ok
}

// Less orders events by frame, placing note ends before note starts on the
// same frame so a retriggered key is released first.
func Less(a, b *Note) bool {
	if a.Frame != b.Frame {
		return a.Frame < b.Frame
	}

	_, aEnd := a.End()
	_, bEnd := b.End()

	return aEnd && !bEnd
}
