// SPDX-License-Identifier: EPL-2.0

package event

import (
	"testing"

	"gitlab.com/gomidi/midi/v2"
)

func TestNoteOn_Decodes(t *testing.T) {
	t.Parallel()

	n := NoteOn(12, 0, 60, 1)
	key, vel, ok := n.Start()
	if !ok {
		t.Fatal("Start() ok = false for note-on")
	}
	if key != 60 || vel != 127 {
		t.Errorf("Start() = (%d, %d), want (60, 127)", key, vel)
	}
	if _, ok := n.End(); ok {
		t.Error("End() ok = true for note-on")
	}
	if n.Frame != 12 {
		t.Errorf("Frame = %d, want 12", n.Frame)
	}
}

func TestNoteOn_ZeroVelocityStaysAudible(t *testing.T) {
	t.Parallel()

	n := NoteOn(0, 0, 64, 0)
	_, vel, ok := n.Start()
	if !ok || vel != 1 {
		t.Errorf("Start() = (vel %d, ok %v), want (1, true)", vel, ok)
	}
}

func TestNoteOff_Decodes(t *testing.T) {
	t.Parallel()

	n := NoteOff(3, 2, 70)
	key, ok := n.End()
	if !ok || key != 70 {
		t.Errorf("End() = (%d, %v), want (70, true)", key, ok)
	}
}

func TestFromMessage(t *testing.T) {
	t.Parallel()

	n, ok := FromMessage(5, midi.NoteOn(1, 48, 100))
	if !ok {
		t.Fatal("FromMessage() ok = false")
	}
	key, vel, ok := n.Start()
	if !ok || key != 48 || vel != 100 {
		t.Errorf("Start() = (%d, %d, %v)", key, vel, ok)
	}

	if _, ok := FromMessage(0, midi.Message{0xF0, 1, 2, 3, 0xF7}); ok {
		t.Error("FromMessage() accepted a sysex message")
	}
}

func TestBuffer_PushDropsWhenFull(t *testing.T) {
	t.Parallel()

	b := NewBuffer(2)
	b.Push(NoteOn(0, 0, 60, 1))
	b.Push(NoteOn(1, 0, 61, 1))
	if b.Push(NoteOn(2, 0, 62, 1)) {
		t.Error("Push() on full buffer = true")
	}
	if b.Len() != 2 || b.Dropped() != 1 {
		t.Errorf("Len() = %d, Dropped() = %d, want 2, 1", b.Len(), b.Dropped())
	}

	b.Reset()
	if b.Len() != 0 || b.Dropped() != 0 {
		t.Errorf("after Reset Len() = %d, Dropped() = %d", b.Len(), b.Dropped())
	}
}

func TestBuffer_Sort(t *testing.T) {
	t.Parallel()

	b := NewBuffer(8)
	b.Push(NoteOn(10, 0, 60, 1))
	b.Push(NoteOn(4, 0, 62, 1))
	b.Push(NoteOff(10, 0, 60))
	b.Push(NoteOff(0, 0, 64))

	b.Sort()
	ev := b.Events()

	wantFrames := []int{0, 4, 10, 10}
	for i, f := range wantFrames {
		if ev[i].Frame != f {
			t.Fatalf("event %d frame = %d, want %d", i, ev[i].Frame, f)
		}
	}
	if _, ok := ev[2].End(); !ok {
		t.Error("note-off should sort before note-on on the same frame")
	}
}

func TestBuffer_AppendOffsets(t *testing.T) {
	t.Parallel()

	src := []Note{NoteOn(1, 0, 60, 1), NoteOff(3, 0, 60)}
	b := NewBuffer(4)
	b.Append(src, 10)

	if got := b.Events()[1].Frame; got != 13 {
		t.Errorf("appended frame = %d, want 13", got)
	}
	if src[1].Frame != 3 {
		t.Error("Append modified its source")
	}
}

func TestBuffer_ZeroAllocs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping allocation test in short mode")
	}

	b := NewBuffer(16)
	allocs := testing.AllocsPerRun(1000, func() {
		b.Reset()
		b.Push(NoteOn(3, 0, 60, 0.5))
		b.Push(NoteOff(1, 0, 61))
		b.Sort()
		for i := range b.Events() {
			b.Events()[i].End()
		}
	})
	if allocs > 0 {
		t.Errorf("buffer operations allocated %v times, want 0", allocs)
	}
}

func TestKeySet_TrackFollowsNotes(t *testing.T) {
	t.Parallel()

	var s KeySet
	if !s.Empty() {
		t.Fatal("zero KeySet is not empty")
	}
	s.Track([]Note{
		NoteOn(0, 0, 0, 1),
		NoteOn(0, 0, 64, 1),
		NoteOn(1, 0, 127, 1),
		NoteOff(2, 0, 64),
	})
	for key, want := range map[uint8]bool{0: true, 63: false, 64: false, 127: true} {
		if got := s.Has(key); got != want {
			t.Errorf("Has(%d) = %v, want %v", key, got, want)
		}
	}

	var other KeySet
	other.Add(127)
	other.Add(5)
	if got := s.Intersect(other); !got.Has(127) || got.Has(0) || got.Has(5) {
		t.Errorf("Intersect = %v", got)
	}
	if got := s.Minus(other); !got.Has(0) || got.Has(127) {
		t.Errorf("Minus = %v", got)
	}
	if got := s.Union(other); !got.Has(0) || !got.Has(5) || !got.Has(127) {
		t.Errorf("Union = %v", got)
	}

	b := NewBuffer(8)
	s.Release(b, 3)
	if b.Len() != 2 {
		t.Fatalf("Release pushed %d events, want 2", b.Len())
	}
	for i := range b.Events() {
		n := &b.Events()[i]
		if _, ok := n.End(); !ok || n.Frame != 3 {
			t.Errorf("event %d = %+v, want a note-off at frame 3", i, n)
		}
	}
	s.Remove(0)
	s.Remove(127)
	if !s.Empty() {
		t.Errorf("KeySet = %v after removing every key", s)
	}
}
