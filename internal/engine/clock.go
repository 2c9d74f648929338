package engine

import (
	"sync/atomic"
	"time"
)

// Clock is the logical sequence counter for the operation journal.
//
// Every attempted operation, applied or rejected, is stamped with a strictly
// increasing seq from this clock. Ordering never depends on wall time, so a
// journal replays in exactly the order it was written.
//
// Clock is safe for concurrent use, but the Engine only advances it while
// holding its lock.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming after start.
// Load uses it to continue from the last journaled seq.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// TimeSource supplies the block-time analogue: the current time in unix
// seconds, read once per operation.
type TimeSource interface {
	Now() int64
}

// SystemTime reads the wall clock.
type SystemTime struct{}

// Now returns the current unix time in seconds.
func (SystemTime) Now() int64 {
	return time.Now().Unix()
}

// FixedTime always reports the same instant. The CLI uses it for --now.
type FixedTime int64

// Now returns the fixed instant.
func (f FixedTime) Now() int64 {
	return int64(f)
}
