// SPDX-License-Identifier: EPL-2.0

package ring

import (
	"sync/atomic"
)

// cacheLine keeps the producer and consumer cursors on separate lines.
const cacheLine = 64

// Ring is a bounded single-producer single-consumer queue.
//
// Exactly one goroutine may call Push and exactly one goroutine may call
// Pop. Neither call blocks, locks or allocates. Values are copied in and
// out, so T should be a small value type.
type Ring[T any] struct {
	buf  []T
	mask uint64

	_    [cacheLine]byte
	head atomic.Uint64 // next slot to read, owned by the consumer
	_    [cacheLine - 8]byte
	tail atomic.Uint64 // next slot to write, owned by the producer
	_    [cacheLine - 8]byte
}

// New creates a ring able to hold at least capacity values. The capacity
// is rounded up to the next power of two; values below 2 become 2.
func New[T any](capacity int) *Ring[T] {
	size := 2
	for size < capacity {
		size <<= 1
	}

	return &Ring[T]{
		buf:  make([]T, size),
		mask: uint64(size - 1),
	}
}

// Push appends v. It returns false when the ring is full.
func (r *Ring[T]) Push(v T) bool {
	tail := r.tail.Load()
	if tail-r.head.Load() == uint64(len(r.buf)) {
		return false
	}

	r.buf[tail&r.mask] = v
	r.tail.Store(tail + 1)

	return true
}

// Pop removes the oldest value. It returns false when the ring is empty.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T

	head := r.head.Load()
	if head == r.tail.Load() {
		return zero, false
	}

	idx := head & r.mask
	v := r.buf[idx]
	// drop references held by the slot
	r.buf[idx] = zero
	r.head.Store(head + 1)

	return v, true
}

// Len reports the number of queued values. It is exact only when called
// from the producer or consumer while the other side is idle.
func (r *Ring[T]) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Cap returns the number of values the ring can hold.
func (r *Ring[T]) Cap() int { return len(r.buf) }
