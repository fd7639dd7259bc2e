package llm

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// DefaultMaxRetries is the number of retry attempts after the first try,
// giving 3 total attempts by default.
const DefaultMaxRetries = 2

// DefaultRetryBackoff is the per-attempt backoff multiplier: attempt N waits
// retry_backoff * N before retrying.
const DefaultRetryBackoff = 500 * time.Millisecond

// StatusError is returned by a Provider when the backend reports an HTTP
// status code, so retry.go can classify it without parsing SDK-specific
// error types.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string { return e.Err.Error() }
func (e *StatusError) Unwrap() error { return e.Err }

// terminalStatusCodes never benefit from a retry: the request itself is
// malformed or unauthorized, not transiently failing.
var terminalStatusCodes = map[int]bool{
	http.StatusBadRequest:          true,
	http.StatusUnauthorized:        true,
	http.StatusForbidden:           true,
	http.StatusNotFound:            true,
	http.StatusUnprocessableEntity: true,
}

func isTerminal(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return terminalStatusCodes[se.StatusCode]
	}
	return false
}

// withRetry runs fn up to maxRetries+1 times, waiting backoff*attempt
// between attempts, and gives up immediately on a terminal status error or
// context cancellation.
func withRetry(ctx context.Context, maxRetries int, backoff time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff * time.Duration(attempt)):
			}
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if isTerminal(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
