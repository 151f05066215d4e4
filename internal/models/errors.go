package models

import "errors"

// Error taxonomy shared by all core services. Handlers map these to HTTP
// status codes with errors.Is; services wrap them with context via fmt.Errorf.
var (
	// ErrNotFound covers both "row absent" and "row owned by someone else".
	// The two cases are deliberately indistinguishable to the caller.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when an operation is attempted from a
	// session state that forbids it.
	ErrInvalidState = errors.New("invalid state")

	// ErrConflict is returned when an operation would violate a cardinality
	// invariant, e.g. a second active session for one scheduled workout.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized means no caller identity could be resolved.
	ErrUnauthorized = errors.New("unauthorized")
)
