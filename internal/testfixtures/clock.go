package testfixtures

import (
	"sync"
	"time"

	"github.com/example/room-booking/internal/recurrence"
)

// Clock is a settable time source for services under test.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock returns a clock set to start, or to ReferenceTime when start is
// zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

// ClockAt returns a clock set to a "YYYY-MM-DD HH:MM" timestamp. It panics on
// malformed input.
func ClockAt(timestamp string) *Clock {
	t, err := recurrence.ParseTimestamp(timestamp)
	if err != nil {
		panic(err)
	}
	return NewClock(t)
}

// Now returns the clock's time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc exposes Now for dependency injection.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

// Today returns the calendar date of the clock's time.
func (c *Clock) Today() time.Time {
	return recurrence.DateOf(c.Now())
}
