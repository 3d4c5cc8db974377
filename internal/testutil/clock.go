// Package testutil provides deterministic helpers for harness tests:
// a logical clock for trace sequence numbers and an in-process fake of the
// external query engine.
package testutil

import "sync"

// Clock is a thread-safe monotonic logical clock.
//
// The harness stamps every trace event with a sequence number from a Clock,
// so repeated runs of the same scenario produce byte-identical traces for
// golden file comparison.
type Clock struct {
	mu  sync.Mutex
	seq int64
}

// NewClock creates a clock starting at 0. The first Next() returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next increments and returns the next sequence number.
func (c *Clock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset resets the clock to 0 so a scenario can be re-run with identical
// sequence numbers.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
