package diag

import "sync"

// ring is a bounded FIFO. When full, pushing evicts the oldest element.
// All methods are safe for concurrent use.
type ring[T any] struct {
	mu       sync.Mutex
	capacity int
	items    []T
}

func newRing[T any](capacity int) *ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &ring[T]{capacity: capacity}
}

func (r *ring[T]) push(v T) {
	r.mu.Lock()
	if len(r.items) >= r.capacity {
		// shift-evict; capacities here are small enough that a slice is fine
		copy(r.items, r.items[1:])
		r.items[len(r.items)-1] = v
	} else {
		r.items = append(r.items, v)
	}
	r.mu.Unlock()
}

// drain removes and returns the entire contents in arrival order.
func (r *ring[T]) drain() []T {
	r.mu.Lock()
	out := r.items
	r.items = nil
	r.mu.Unlock()
	return out
}

// last returns the most recently pushed element.
func (r *ring[T]) last() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		var zero T
		return zero, false
	}
	return r.items[len(r.items)-1], true
}

func (r *ring[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
