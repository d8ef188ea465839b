// Package shared contains common domain types, errors, and events
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation    = errors.New("validation error")
	ErrInvalidID     = errors.New("invalid ID")
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmptyValue    = errors.New("value cannot be empty")
	ErrNegativeValue = errors.New("value cannot be negative")

	// Configuration errors: bad reference data (threshold gaps, duplicate
	// active rules). Fatal to the operation, surfaced to the administrator,
	// never retried.
	ErrConfiguration = errors.New("configuration error")

	// Event errors: malformed completion events. Rejected immediately,
	// never retried.
	ErrInvalidEvent = errors.New("invalid completion event")

	// Storage errors: transient I/O failure or contention timeout.
	// Safe to retry with the same idempotency key.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progression", "achievement", "leaderboard"
	Op      string // Operation that failed, e.g., "Process", "TryAward"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsInvalidEvent reports whether err is an invalid-event error.
func IsInvalidEvent(err error) bool {
	return errors.Is(err, ErrInvalidEvent)
}

// IsTransient reports whether err is a transient storage error that a caller
// may retry with the same idempotency key.
func IsTransient(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

// Progression domain errors
var (
	ErrUserStatsNotFound = NewDomainError("progression", "Find", ErrNotFound, "user stats not found")
	ErrEmptyUserID       = NewDomainError("progression", "Validate", ErrInvalidEvent, "user ID is required")
	ErrUnknownSubject    = NewDomainError("progression", "Validate", ErrInvalidEvent, "unknown subject type")
)

// Achievement domain errors
var (
	ErrAchievementNotFound = NewDomainError("achievement", "Find", ErrNotFound, "achievement not found")
	ErrInvalidTrigger      = NewDomainError("achievement", "Validate", ErrConfiguration, "invalid trigger definition")
)

// Leaderboard domain errors
var (
	ErrInvalidPage = NewDomainError("leaderboard", "Rank", ErrInvalidInput, "page and page size must be positive")
)
