package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable means the storage engine cannot be reached at all.
	ErrStoreUnavailable = errors.New("session store unavailable")

	// ErrNotInitialized means a store operation was attempted before Open.
	ErrNotInitialized = errors.New("session store not initialized")

	// ErrDuplicateKey means Add was called for an existing session ID.
	ErrDuplicateKey = errors.New("session already exists")

	// ErrSessionNotFound is the absence sentinel for point lookups.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSubmissionInFlight means a question was submitted while a previous
	// one on the same manager has not resolved yet.
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
)

// ValidationError reports malformed input. It is raised locally, before any
// store or network access happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// RemoteError wraps a failed completion call, including timeouts.
type RemoteError struct {
	Provider string
	Err      error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("completion call to %s failed: %v", e.Provider, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
