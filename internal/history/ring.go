// Package history keeps the bounded scan history: a ring of the most recent
// scan records with pluggable persistence.
package history

import "sync"

// DefaultCapacity is the number of scans retained.
const DefaultCapacity = 10

// Ring is a bounded FIFO. Once full, each Push evicts the oldest item, so Len
// never exceeds Cap.
type Ring[T any] struct {
	items []T
	head  int // index of the oldest item
	size  int
	mu    sync.RWMutex
}

// NewRing creates a ring holding at most capacity items (DefaultCapacity when
// capacity is not positive).
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push appends v, evicting and returning the oldest item when full.
func (r *Ring[T]) Push(v T) (evicted T, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	capacity := len(r.items)
	if r.size < capacity {
		r.items[(r.head+r.size)%capacity] = v
		r.size++
		return evicted, false
	}

	evicted = r.items[r.head]
	r.items[r.head] = v
	r.head = (r.head + 1) % capacity
	return evicted, true
}

// Items returns the items oldest first.
func (r *Ring[T]) Items() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.items[(r.head+i)%len(r.items)]
	}
	return out
}

// Recent returns up to n items newest first. n <= 0 returns every item.
func (r *Ring[T]) Recent(n int) []T {
	items := r.Items()
	if n <= 0 || n > len(items) {
		n = len(items)
	}
	out := make([]T, 0, n)
	for i := len(items) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, items[i])
	}
	return out
}

// Len returns the number of items held.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Cap returns the maximum number of items.
func (r *Ring[T]) Cap() int {
	return len(r.items)
}

// Clear removes every item.
func (r *Ring[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.head, r.size = 0, 0
}
