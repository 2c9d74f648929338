package testutil

import "sync"

// ManualTime is a settable time source for tests, in unix seconds.
//
// It satisfies engine.TimeSource. Tests move it explicitly with Set or
// Advance, so every operation sees exactly the time the test intends.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualTime struct {
	mu  sync.Mutex
	now int64
}

// NewManualTime creates a time source reporting start.
func NewManualTime(start int64) *ManualTime {
	return &ManualTime{now: start}
}

// Now returns the current manual time.
func (m *ManualTime) Now() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set jumps to t. Moving backwards is allowed; the engine clamps it.
func (m *ManualTime) Set(t int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Advance moves the time forward by seconds and returns the new time.
func (m *ManualTime) Advance(seconds int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += seconds
	return m.now
}
