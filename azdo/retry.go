package azdo

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig tunes the exponential backoff applied to transient remote
// failures.
type RetryConfig struct {
	// Maximum number of retries after the first attempt
	MaxRetries int
	// Delay before the first retry
	InitialDelay time.Duration
	// Upper bound on any single delay
	MaxDelay time.Duration
	// Multiplier applied to the delay per attempt
	BackoffMultiplier float64
	// Add 10-30% random jitter to each delay
	Jitter bool
}

// DefaultRetryConfig returns the retry policy used when none is supplied:
// three retries starting at one second, doubling, capped at one minute.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialDelay:      time.Second,
		MaxDelay:          time.Minute,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// delay computes the backoff delay for a 0-based attempt number. A
// server-supplied Retry-After takes precedence over the computed backoff.
func (c RetryConfig) delay(attempt int, retryAfter time.Duration) time.Duration {
	d := retryAfter
	if d <= 0 {
		d = c.InitialDelay
		for i := 0; i < attempt; i++ {
			d = time.Duration(float64(d) * c.BackoffMultiplier)
			if d >= c.MaxDelay {
				d = c.MaxDelay
				break
			}
		}
	}
	if c.Jitter {
		d += time.Duration((0.1 + 0.2*rand.Float64()) * float64(d))
	}
	return d
}

// withRetry runs fn until it succeeds, fails with a non-transient error,
// exhausts the retry budget, or the context is canceled. Invalid-input
// rejections (non-429 4xx) are surfaced immediately.
func withRetry(ctx context.Context, logger zerolog.Logger, cfg RetryConfig, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil {
			if attempt > 0 {
				logger.Debug().Int("attempt", attempt+1).Msg("Request succeeded after retries")
			}
			return nil
		}
		if !IsTransient(err) || attempt >= cfg.MaxRetries {
			return err
		}

		var retryAfter time.Duration
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			retryAfter = reqErr.RetryAfter
		}
		d := cfg.delay(attempt, retryAfter)

		logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Dur("delay", d).
			Msg("Transient request failure, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
}
