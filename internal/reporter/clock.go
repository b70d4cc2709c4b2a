package reporter

import (
	"context"
	"time"
)

// Clock is the time source for polling and backoff
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration)
}

// RealClock uses the wall clock
type RealClock struct{}

// Now returns the wall clock time
func (RealClock) Now() time.Time { return time.Now() }

// Sleep returns early if ctx is cancelled
func (RealClock) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
