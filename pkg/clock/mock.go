package clock

import (
	"context"
	"sync"
	"time"
)

// Mock is a Clock whose time only moves when the test advances it.
type Mock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []waiter
}

type waiter struct {
	until time.Time
	ch    chan struct{}
}

// NewMock returns a Mock starting at the given instant.
func NewMock(start time.Time) *Mock {
	return &Mock{now: start}
}

// Now returns the current virtual time.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves virtual time forward by d and wakes any sleeper whose
// deadline has passed.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.wakeLocked()
	m.mu.Unlock()
}

// Set jumps virtual time to t. Time never moves backward; an earlier t
// is ignored.
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	if t.After(m.now) {
		m.now = t
		m.wakeLocked()
	}
	m.mu.Unlock()
}

func (m *Mock) wakeLocked() {
	kept := m.waiters[:0]
	for _, w := range m.waiters {
		if w.until.After(m.now) {
			kept = append(kept, w)
			continue
		}
		close(w.ch)
	}
	m.waiters = kept
}

// Sleep blocks until virtual time reaches the given instant or ctx is
// cancelled.
func (m *Mock) Sleep(ctx context.Context, until time.Time) error {
	m.mu.Lock()
	if !until.After(m.now) {
		m.mu.Unlock()
		return ctx.Err()
	}
	w := waiter{until: until, ch: make(chan struct{})}
	m.waiters = append(m.waiters, w)
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.ch:
		return nil
	}
}
