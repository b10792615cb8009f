package domain

import "errors"

var (
	// ErrValidation marks input that fails domain validation.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a lookup for a document that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a guarded write whose precondition no longer holds.
	ErrConflict = errors.New("conflict")
)
