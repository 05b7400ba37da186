package engine

import (
	"context"
	"time"
)

// Clock abstracts time observation and suspension so that the poll loop
// can be tested without real delays.
type Clock interface {
	Now() time.Time
	// Sleep suspends for d or until the context is canceled, returning
	// the context error in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
