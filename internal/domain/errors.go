package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared across components. Wrap with the helpers below and
// test with errors.Is.
var (
	// ErrUpstreamUnavailable means a third-party API or chain call failed.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrValidation means the input was rejected and must not be retried.
	ErrValidation = errors.New("validation error")
	// ErrExecutionFailure means building, submitting or confirming a transaction failed.
	ErrExecutionFailure = errors.New("execution failure")
	// ErrRateLimited means the upstream throttled the call.
	ErrRateLimited = errors.New("rate limited")
)

// Validationf returns an ErrValidation with a specific message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Upstream wraps err as ErrUpstreamUnavailable for op. Rate limit errors keep
// their identity so callers can tell them apart.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUpstreamUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUpstreamUnavailable, err)
}

// ExecutionFailed wraps err as ErrExecutionFailure for op.
func ExecutionFailed(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrExecutionFailure, err)
}
