package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedKind indicates an entity kind a component cannot handle.
	ErrUnsupportedKind = errors.New("unsupported entity kind")

	// ErrUnsupportedMode indicates a scan mode the category does not offer.
	ErrUnsupportedMode = errors.New("unsupported scan mode")

	// ErrInvalidTransition indicates an illegal versioned record lifecycle change.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// Fetch Errors.

	// ErrRateLimited indicates the remote service throttled a request.
	ErrRateLimited = errors.New("rate limited")

	// ErrBlocked indicates repeated bans; the scan cannot continue.
	ErrBlocked = errors.New("blocked by remote service")

	// ErrTransient indicates a retryable network or server failure.
	ErrTransient = errors.New("transient fetch failure")

	// ErrRetriesExhausted indicates a unit of work failed on every attempt.
	// The entity is deferred to the next scan.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrNormalise indicates a payload could not be mapped to a snapshot.
	ErrNormalise = errors.New("normalisation failed")

	// Storage Errors.

	// ErrPersistence indicates a write to the historical store failed.
	// It is fatal for the current batch.
	ErrPersistence = errors.New("persistence failure")

	// ErrScanInProgress indicates a scan for the category is already running.
	ErrScanInProgress = errors.New("scan in progress")
)
