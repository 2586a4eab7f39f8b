package cert

import "sync/atomic"

// Clock is a monotonic logical clock.
//
// The lifecycle machine stamps each committed transition with a strictly
// increasing seq so subscribers can order events without wall-clock races;
// the anchor service uses it as the request-unique salt for mock transaction
// references.
//
// Safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
// Each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
