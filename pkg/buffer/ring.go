package buffer

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Push after the ring is closed.
var ErrClosed = errors.New("buffer: ring closed")

// Ring is a bounded single-producer/single-consumer ring used to hand data
// from interrupt-side producers (DMA completion, network receive, button
// edges) to the main loop. Push never blocks: when the ring is full the
// oldest element is overwritten and the drop counter advances. TryPop never
// blocks either; the main loop polls it once per tick.
type Ring[T any] struct {
	mu      sync.Mutex
	buf     []T
	head    int64
	tail    int64
	dropped uint64
	closed  bool
}

// NewRing creates a ring holding at most size elements.
func NewRing[T any](size int) *Ring[T] {
	if size <= 0 {
		size = 1
	}
	return &Ring[T]{buf: make([]T, size)}
}

// Push adds v, overwriting the oldest element when full.
func (r *Ring[T]) Push(v T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.buf[r.tail%int64(len(r.buf))] = v
	r.tail++
	if r.tail-r.head > int64(len(r.buf)) {
		r.head++
		r.dropped++
	}
	return nil
}

// TryPop removes and returns the oldest element, or false when empty.
func (r *Ring[T]) TryPop() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	if r.head == r.tail {
		return zero, false
	}
	i := r.head % int64(len(r.buf))
	v := r.buf[i]
	r.buf[i] = zero
	r.head++
	return v, true
}

// Len returns the number of buffered elements.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.tail - r.head)
}

// Dropped returns the number of elements overwritten before they were popped.
func (r *Ring[T]) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Reset discards all buffered elements. The drop counter is unchanged.
func (r *Ring[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.buf)
	r.head = 0
	r.tail = 0
}

// Close marks the ring closed. Buffered elements remain poppable; further
// pushes fail with ErrClosed.
func (r *Ring[T]) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}
