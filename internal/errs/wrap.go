package errs

import (
	"context"
	"errors"
	"fmt"
)

// NotFound wraps a message as not found
func NotFound(message string) error {
	return fmt.Errorf("%s: %w", message, ErrNotFound)
}

// InvalidInput wraps a message as invalid input
func InvalidInput(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInvalidInput)
}

// Conflict wraps a message as a conflict
func Conflict(message string) error {
	return fmt.Errorf("%s: %w", message, ErrConflict)
}

// Transient wraps a message as transient
func Transient(message string) error {
	return fmt.Errorf("%s: %w", message, ErrTransient)
}

// Internal wraps a message as internal
func Internal(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInternal)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsFlowControl reports whether err is one of the runtime admission
// signals. Flow-control errors are expected and must not propagate to
// the discussion log.
func IsFlowControl(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrAlreadyResponding) ||
		errors.Is(err, ErrAlreadyAttempted) ||
		errors.Is(err, ErrQueued) ||
		errors.Is(err, ErrCircuitOpen)
}

// IsRetryable reports whether an operation that failed with err is
// worth retrying on a later poll.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrConflict)
}
