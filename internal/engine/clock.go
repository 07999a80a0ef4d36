package engine

import "sync/atomic"

// Clock is the monotonic logical clock that stamps step sequence numbers.
//
// Every step added to a Thought receives the next value. Sequence numbers
// break ties between steps of the same phase and firing time, so the drain
// order is fully determined by the order of AddStep calls.
//
// Clock is safe for concurrent use, although a Thought only calls it from
// its own goroutine.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
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
