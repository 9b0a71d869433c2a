package clock

import "time"

// Clock provides time operations that can be swapped out in tests.
type Clock interface {
	Now() time.Time
}

// Real implements Clock with the system clock.
type Real struct{}

// New creates a Real clock.
func New() *Real {
	return &Real{}
}

// Now returns the current time.
func (c *Real) Now() time.Time {
	return time.Now()
}

// Fixed is a Clock pinned to a settable instant, for tests.
type Fixed struct {
	Time time.Time
}

// Now returns the pinned instant.
func (c *Fixed) Now() time.Time {
	return c.Time
}

// Advance moves the pinned instant forward.
func (c *Fixed) Advance(d time.Duration) {
	c.Time = c.Time.Add(d)
}
