// Package clock provides the time source for the device core.
//
// All timer logic in the core (backoff, keepalive, processing timeout,
// playback drain) computes deadlines against a Clock so that scenario
// tests can run entirely in virtual time.
package clock

import (
	"context"
	"time"
)

// Clock is a monotonic time source with a deadline sleep.
type Clock interface {
	// Now returns the current time. Comparisons between values from the
	// same Clock are monotonic.
	Now() time.Time

	// Sleep blocks until the given instant or until ctx is cancelled,
	// whichever comes first. Returns ctx.Err() on cancellation.
	Sleep(ctx context.Context, until time.Time) error
}

// System returns the wall-clock implementation backed by the runtime.
func System() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) Sleep(ctx context.Context, until time.Time) error {
	d := time.Until(until)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
