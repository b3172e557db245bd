package testutil

import (
	"sync"
	"time"
)

// Epoch is where a Clock starts unless told otherwise. It is a whole
// millisecond so upload names built from it are stable.
var Epoch = time.UnixMilli(1735689600000).UTC()

// Clock is a manual time source for code that accepts a now func.
type Clock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

// NewClock returns a Clock at start, or at Epoch when start is omitted.
func NewClock(start ...time.Time) *Clock {
	c := &Clock{t: Epoch}
	if len(start) > 0 {
		c.t = start[0]
	}
	return c
}

// Ticking makes every Now call move the clock forward by step afterwards.
func (c *Clock) Ticking(step time.Duration) *Clock {
	c.mu.Lock()
	c.step = step
	c.mu.Unlock()
	return c
}

// Now returns the current time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}
