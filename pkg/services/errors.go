// Package services implements the management operations behind the HTTP API.
package services

import "errors"

// Validation errors map to 400 responses.
var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrNameRequired     = errors.New("automation name is required")
	ErrUnknownCondition = errors.New("unknown condition id")
	ErrContactRequired  = errors.New("contact id is required")
)

// Conflict errors map to 409 responses.
var (
	ErrNotPausable  = errors.New("only active automations can be paused")
	ErrNotResumable = errors.New("only paused automations can be resumed")
	ErrNotDeletable = errors.New("active automations cannot be deleted")
)

// IsValidationError reports whether the error should produce HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrNameRequired) ||
		errors.Is(err, ErrUnknownCondition) ||
		errors.Is(err, ErrContactRequired)
}

// IsConflictError reports whether the error should produce HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrNotPausable) ||
		errors.Is(err, ErrNotResumable) ||
		errors.Is(err, ErrNotDeletable)
}
