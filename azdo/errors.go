package azdo

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RequestError is a non-2xx response from the remote system. Client
// errors (4xx other than 429) indicate invalid input and are never
// retried; 429 and 5xx are transient.
type RequestError struct {
	StatusCode int
	URL        string
	Body       string
	// Parsed Retry-After header on 429 responses, zero when absent
	RetryAfter time.Duration
}

func (e *RequestError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("request to %s failed with status %d: %s", e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("request to %s failed with status %d", e.URL, e.StatusCode)
}

// Transient reports whether the failure is worth retrying.
func (e *RequestError) Transient() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// InvalidInput reports whether the failure indicates a caller mistake
// (bad project, pipeline or run identifier, malformed parameters).
func (e *RequestError) InvalidInput() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != 429
}

// IsInvalidInput reports whether err is a remote rejection of the
// caller's input. Such errors surface immediately and are never retried.
func IsInvalidInput(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.InvalidInput()
}

// IsTransient reports whether err is a transient remote failure: a
// network error, a 5xx, or a 429 rate limit.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Transient()
	}
	// Anything that never produced a status code (connection refused,
	// reset, DNS) counts as transient.
	return true
}
