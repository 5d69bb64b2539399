// SPDX-License-Identifier: EPL-2.0

package ring

import (
	"sync"
	"testing"
)

func TestNew_RoundsCapacity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		capacity int
		want     int
	}{
		{capacity: 0, want: 2},
		{capacity: 1, want: 2},
		{capacity: 2, want: 2},
		{capacity: 3, want: 4},
		{capacity: 16, want: 16},
		{capacity: 17, want: 32},
	}

	for _, tt := range tests {
		if got := New[int](tt.capacity).Cap(); got != tt.want {
			t.Errorf("New(%d).Cap() = %d, want %d", tt.capacity, got, tt.want)
		}
	}
}

func TestRing_PushPopOrder(t *testing.T) {
	t.Parallel()

	r := New[int](4)
	for i := range 4 {
		if !r.Push(i) {
			t.Fatalf("Push(%d) = false on non-full ring", i)
		}
	}

	if r.Push(99) {
		t.Fatal("Push on full ring = true, want false")
	}
	if r.Len() != 4 {
		t.Errorf("Len() = %d, want 4", r.Len())
	}

	for i := range 4 {
		v, ok := r.Pop()
		if !ok || v != i {
			t.Fatalf("Pop() = (%d, %v), want (%d, true)", v, ok, i)
		}
	}

	if _, ok := r.Pop(); ok {
		t.Error("Pop on empty ring = true, want false")
	}
}

func TestRing_Wraparound(t *testing.T) {
	t.Parallel()

	r := New[int](2)
	for i := range 100 {
		if !r.Push(i) {
			t.Fatalf("Push(%d) failed", i)
		}
		v, ok := r.Pop()
		if !ok || v != i {
			t.Fatalf("Pop() = (%d, %v), want (%d, true)", v, ok, i)
		}
	}
}

func TestRing_ReleasesSlot(t *testing.T) {
	t.Parallel()

	r := New[*int](2)
	v := 7
	r.Push(&v)
	r.Pop()

	for i, p := range r.buf {
		if p != nil {
			t.Errorf("slot %d still holds a pointer after Pop", i)
		}
	}
}

func TestRing_ConcurrentSPSC(t *testing.T) {
	t.Parallel()

	const n = 100000
	r := New[int](64)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; {
			if r.Push(i) {
				i++
			}
		}
	}()

	next := 0
	for next < n {
		v, ok := r.Pop()
		if !ok {
			continue
		}
		if v != next {
			t.Fatalf("got %d, want %d", v, next)
		}
		next++
	}

	wg.Wait()
}

func TestRing_ZeroAllocs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping allocation test in short mode")
	}

	type msg struct {
		kind  int
		value float64
		ptr   *int
	}

	r := New[msg](8)
	x := 1
	allocs := testing.AllocsPerRun(1000, func() {
		r.Push(msg{kind: 1, value: 0.5, ptr: &x})
		r.Pop()
	})
	if allocs > 0 {
		t.Errorf("Push/Pop allocated %v times, want 0", allocs)
	}
}

func BenchmarkRing_PushPop(b *testing.B) {
	r := New[int](1024)

	b.ReportAllocs()
	for i := range b.N {
		r.Push(i)
		r.Pop()
	}
}
