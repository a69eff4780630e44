package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Failure taxonomy for calls across the generation-service boundary.
// Providers wrap every API failure in exactly one of these sentinels so
// the budget invoker can decide between backoff, plain retry, and abort.
var (
	// ErrRateLimited signals the service rejected the call for quota
	// reasons. Retryable after a cooldown.
	ErrRateLimited = errors.New("rate limited")

	// ErrTransient signals a recoverable fault (server error, network
	// hiccup, malformed response body). Retryable without cooldown.
	ErrTransient = errors.New("transient failure")

	// ErrFatal signals an unrecoverable condition (bad credentials,
	// invalid request). Never retried.
	ErrFatal = errors.New("fatal failure")
)

// IsRateLimited reports whether err is a rate-limit failure
func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }

// IsTransient reports whether err is a transient failure
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

// IsFatal reports whether err is a fatal failure
func IsFatal(err error) bool { return errors.Is(err, ErrFatal) }

// classifyStatus wraps err in the sentinel matching an HTTP status code
func classifyStatus(status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	case status >= 500:
		return fmt.Errorf("%w: %v", ErrTransient, err)
	case status >= 400:
		return fmt.Errorf("%w: %v", ErrFatal, err)
	default:
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
}

// classifyNetwork wraps non-HTTP failures. Context cancellation passes
// through untouched so callers can distinguish an aborted run.
func classifyNetwork(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}
