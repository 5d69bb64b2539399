// SPDX-License-Identifier: EPL-2.0

package event

// Buffer is a fixed capacity list of events. It never grows after
// construction, which keeps it usable on the audio thread.
type Buffer struct {
	events  []Note
	dropped int
}

// NewBuffer allocates a buffer holding up to capacity events.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{events: make([]Note, 0, capacity)}
}

// Push appends n. When the buffer is full the event is dropped and counted.
func (b *Buffer) Push(n Note) bool {
	if len(b.events) == cap(b.events) {
		b.dropped++
		return false
	}
	b.events = append(b.events, n)

	return true
}

// Append pushes every event of src, shifting frames by offset.
func (b *Buffer) Append(src []Note, offset int) {
	for i := range src {
		n := src[i]
		n.Frame += offset
		b.Push(n)
	}
}

// Events returns the buffered events. The slice is valid until the next
// Reset.
func (b *Buffer) Events() []Note { return b.events }

// Len returns the number of buffered events.
func (b *Buffer) Len() int { return len(b.events) }

// Dropped returns how many events were rejected since the last Reset.
func (b *Buffer) Dropped() int { return b.dropped }

// Reset empties the buffer without releasing its storage.
func (b *Buffer) Reset() {
	b.events = b.events[:0]
	b.dropped = 0
}

// Sort orders the events with Less. Insertion sort keeps it in place and
// stable; per block event counts are small.
func (b *Buffer) Sort() {
	ev := b.events
	for i := 1; i < len(ev); i++ {
		for j := i; j > 0 && Less(&ev[j], &ev[j-1]); j-- {
			ev[j], ev[j-1] = ev[j-1], ev[j]
		}
	}
}
