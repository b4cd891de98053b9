package errs

import (
	"errors"
)

// Sentinel errors for different categories
var (
	// ErrNotFound - discussion or file missing (surface to caller)
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput - malformed request or message (surface to caller)
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict - discussion already exists or concurrent creation
	ErrConflict = errors.New("conflict")

	// ErrTransient - retryable failure (lock deadline, flaky I/O)
	ErrTransient = errors.New("transient error")

	// ErrInternal - unexpected internal failure
	ErrInternal = errors.New("internal error")
)

// Flow-control signals emitted by the agent runtime's admission path.
// These are expected outcomes, logged quietly and never surfaced as
// error records in the discussion log.
var (
	// ErrAlreadyResponding - a response for this discussion is in flight
	ErrAlreadyResponding = errors.New("already responding")

	// ErrAlreadyAttempted - this round was already attempted this process lifetime
	ErrAlreadyAttempted = errors.New("round already attempted")

	// ErrQueued - admission deferred, candidate parked in the pending queue
	ErrQueued = errors.New("queued")

	// ErrCircuitOpen - local circuit breaker is open for this discussion
	ErrCircuitOpen = errors.New("local circuit open")
)
