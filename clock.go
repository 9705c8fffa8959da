package capture

import (
	"sync"
	"time"
)

// SystemClock returns the production Clock backed by the system wall clock,
// normalized to UTC.
func SystemClock() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock is a Clock pinned to a settable instant, for tests that exercise
// time-dependent behavior such as the capture window boundary.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock returns a FixedClock pinned to now (normalized to UTC).
func NewFixedClock(now time.Time) *FixedClock {
	return &FixedClock{now: now.UTC()}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to a new instant.
func (c *FixedClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now.UTC()
}

var (
	_ Clock = systemClock{}
	_ Clock = (*FixedClock)(nil)
)
