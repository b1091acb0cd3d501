package poller

import (
	"context"
	"time"
)

// Clock abstracts time so the poll loop can be driven deterministically in
// tests with fake time.
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time

	// Sleep blocks for the given duration or until the context is
	// cancelled, in which case it returns the context's error.
	Sleep(ctx context.Context, d time.Duration) error
}

// realClock implements Clock with the system clock.
type realClock struct{}

// NewClock returns a Clock backed by the system clock.
func NewClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
