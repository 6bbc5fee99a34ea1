// Package testutil provides testing utilities and helpers for the report pipeline.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/target/reportfetch/internal/core"
)

// FakeClock implements core.Clock with a manually advanced time. Sleep never blocks:
// it records the requested duration and moves the clock forward by it.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
	// SleepErr, when set, is returned by every Sleep call instead of advancing.
	SleepErr error
}

var _ core.Clock = (*FakeClock)(nil)

// NewFakeClock creates a FakeClock starting at t.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t}
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep records d and advances the clock. A done context wins over the sleep.
func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SleepErr != nil {
		return c.SleepErr
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

// SetTime updates the fake time.
func (c *FakeClock) SetTime(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// AddTime adds a duration to the current fake time.
func (c *FakeClock) AddTime(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Sleeps returns a copy of every duration passed to Sleep.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}
