package core

import (
	"context"
	"time"
)

// RealClock implements Clock using wall-clock time.
type RealClock struct{}

var _ Clock = RealClock{}

// Now returns the current system time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Sleep blocks the calling goroutine only; it returns ctx.Err() if ctx ends first.
func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
