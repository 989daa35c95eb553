// Package ring provides a fixed-capacity FIFO ring buffer.
//
// The backing array is allocated once by New and never grows; Push on a full
// ring fails instead of reallocating, which gives every queue built on it a
// hard backpressure point.
package ring

// Ring is a bounded FIFO queue of T. The zero value has no capacity.
// A Ring is not safe for concurrent use.
type Ring[T any] struct {
	items []T
	head  int
	tail  int
	count int
}

// New creates a ring holding at most capacity items.
func New[T any](capacity int) *Ring[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push appends v at the tail. It returns false and leaves the ring
// untouched when the ring is full.
func (r *Ring[T]) Push(v T) bool {
	if r.count == len(r.items) {
		return false
	}
	r.items[r.tail] = v
	r.tail = (r.tail + 1) % len(r.items)
	r.count++
	return true
}

// Pop removes and returns the head item.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	v := r.items[r.head]
	r.items[r.head] = zero
	r.head = (r.head + 1) % len(r.items)
	r.count--
	return v, true
}

// Peek returns the head item without removing it.
func (r *Ring[T]) Peek() (T, bool) {
	return r.PeekAt(0)
}

// PeekAt returns the i-th item counted from the head.
func (r *Ring[T]) PeekAt(i int) (T, bool) {
	var zero T
	if i < 0 || i >= r.count {
		return zero, false
	}
	return r.items[(r.head+i)%len(r.items)], true
}

// Len returns the number of queued items.
func (r *Ring[T]) Len() int { return r.count }

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int { return len(r.items) }

// Empty reports whether the ring holds no items.
func (r *Ring[T]) Empty() bool { return r.count == 0 }

// Full reports whether a Push would fail.
func (r *Ring[T]) Full() bool { return r.count == len(r.items) }

// Reset drops every queued item.
func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.head, r.tail, r.count = 0, 0, 0
}
