package display

import (
	"context"
	"time"
)

// Clock is the time source for the refresh loop.
type Clock interface {
	Now() time.Time
	// Hold keeps the current digit lit for d.
	Hold(d time.Duration)
	// SleepUntil blocks until t or ctx is done.
	SleepUntil(ctx context.Context, t time.Time) error
}

// spinTail is how much of a hold is busy-waited instead of slept.
const spinTail = 200 * time.Microsecond

// SystemClock drives the loop with the monotonic wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// Hold sleeps through the bulk of d and busy-waits the last spinTail.
func (SystemClock) Hold(d time.Duration) {
	if d <= 0 {
		return
	}
	deadline := time.Now().Add(d)
	if d > spinTail {
		time.Sleep(d - spinTail)
	}
	for time.Now().Before(deadline) {
	}
}

func (SystemClock) SleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
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
