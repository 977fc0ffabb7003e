package memory

import "errors"

var (
	// ErrNotConfigured is returned when memory operations are attempted
	// but no memory client could be constructed.
	ErrNotConfigured = errors.New("memory not configured")

	// ErrNotFound is returned when a memory ID does not exist.
	ErrNotFound = errors.New("memory not found")

	// ErrEmptyUserID is returned when an operation is not scoped to a user.
	ErrEmptyUserID = errors.New("user_id is required")
)
