package pipeline

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the pipeline package.
var (
	// ErrInvalidConfig is returned when the client configuration is invalid.
	ErrInvalidConfig = errors.New("invalid pipeline client configuration")

	// ErrEmptyJobID is returned when the backend accepts a start request but
	// issues no job id.
	ErrEmptyJobID = errors.New("backend returned empty job id")
)

// Fault is a classified failure of a single pipeline call. StatusCode is
// zero for transport-level failures (connection refused, timeout, bad JSON).
type Fault struct {
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.StatusCode == 0 {
		return fmt.Sprintf("pipeline transport fault: %v", f.Err)
	}
	if f.Message != "" {
		return fmt.Sprintf("pipeline fault: status %d: %s", f.StatusCode, f.Message)
	}
	return fmt.Sprintf("pipeline fault: status %d", f.StatusCode)
}

// Unwrap returns the underlying transport error, if any.
func (f *Fault) Unwrap() error {
	return f.Err
}

// Retryable reports whether the fault is transient and worth retrying in
// place: any transport failure, plus 425, 429 and the 502/503/504 gateway
// statuses. A 404 is NOT unconditionally retryable; the poller tolerates it
// only within the backend warm-up window.
func (f *Fault) Retryable() bool {
	switch f.StatusCode {
	case 0,
		http.StatusTooEarly,
		http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// IsRetryableFault reports whether err is a pipeline fault classified as
// retryable.
func IsRetryableFault(err error) bool {
	var fault *Fault
	return errors.As(err, &fault) && fault.Retryable()
}

// IsNotFoundFault reports whether err is a pipeline fault with HTTP 404.
// Used by the poller to apply the startup grace window.
func IsNotFoundFault(err error) bool {
	var fault *Fault
	return errors.As(err, &fault) && fault.StatusCode == http.StatusNotFound
}
