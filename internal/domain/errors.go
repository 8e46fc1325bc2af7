package domain

import "errors"

// Sentinel errors returned by the persistence adapter and checked by
// the queue, pipeline, and worker packages.
var (
	// ErrNotFound indicates the requested job or run does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a state transition was not permitted, e.g.
	// cancelling a job that has already been claimed.
	ErrConflict = errors.New("conflict")

	// ErrStorageUnavailable indicates a transient infrastructure
	// failure; callers may retry the operation.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrNoHandler indicates no handler is registered for a job's type.
	// This terminal-fails the job; it is a configuration defect, not a
	// transient condition, so no retry is attempted.
	ErrNoHandler = errors.New("no handler registered for job type")
)
