package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// DegenerateInputError reports a projection that cannot be computed, such as
// an east/west offset at a latitude where cos(lat) collapses toward zero.
type DegenerateInputError struct {
	Lat    float64
	Reason string
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("degenerate projection input at latitude %.4f: %s", e.Lat, e.Reason)
}

// ParseError reports a malformed or incomplete upstream payload. It is never
// retried: a payload the client cannot read signals upstream contract drift,
// not a transient fault.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse sounding response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse sounding response: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// UpstreamError reports a non-2xx HTTP status from the atmospheric data
// provider. Server-side statuses are retryable; client-side ones are not.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status indicates a transient server fault.
func (e *UpstreamError) Retryable() bool { return e.StatusCode >= 500 }

// IsRetryable classifies an error from a provider fetch. Network faults,
// timeouts, and 5xx statuses are retryable; parse errors, 4xx statuses, and
// caller cancellation are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return false
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Retryable()
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	// Remaining transport-level failures (connection refused, DNS, EOF on a
	// flaky link) are treated as transient.
	return true
}
