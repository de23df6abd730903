// Package shared contains common domain types and errors used across all
// domain packages. This package has zero external dependencies.
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
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState = errors.New("invalid state")
	ErrExpired      = errors.New("expired")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Storage errors
	ErrStorage = errors.New("storage failure")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "medal", "season", "house"
	Op      string // Operation that failed, e.g., "Award", "Evaluate"
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

// Medal domain errors
var (
	ErrMedalNotFound      = NewDomainError("medal", "Find", ErrNotFound, "medal definition not found")
	ErrMedalAlreadyEarned = NewDomainError("medal", "Award", ErrAlreadyExists, "medal already earned for this game")
	ErrMalformedCondition = NewDomainError("medal", "ParseCondition", ErrInvalidFormat, "malformed condition tree")
	ErrInvalidMedalPoints = NewDomainError("medal", "Validate", ErrNegativeValue, "medal points must be non-negative")
	ErrEmptyMedalKey      = NewDomainError("medal", "Validate", ErrEmptyValue, "medal key cannot be empty")
	ErrAwardFanOutFailed  = NewDomainError("medal", "Award", ErrStorage, "award fan-out failed")
	ErrCandidateFetch     = NewDomainError("medal", "LoadCandidates", ErrStorage, "failed to load medal candidates")
)

// Season domain errors
var (
	ErrSeasonNotFound = NewDomainError("season", "Find", ErrNotFound, "season not found")
	ErrNoActiveSeason = NewDomainError("season", "Active", ErrNotFound, "no active season")
	ErrSeasonDates    = NewDomainError("season", "Validate", ErrValueOutOfRange, "season end must be after start")
)

// House domain errors
var (
	ErrHouseNotFound    = NewDomainError("house", "Find", ErrNotFound, "house not found")
	ErrAlreadyInHouse   = NewDomainError("house", "Assign", ErrAlreadyExists, "user already assigned to a house")
	ErrEmptyQuiz        = NewDomainError("house", "ScoreQuiz", ErrEmptyValue, "quiz answers cannot be empty")
	ErrUnknownArchetype = NewDomainError("house", "ScoreQuiz", ErrInvalidInput, "unknown archetype in quiz answer")
)

// User domain errors
var (
	ErrUserNotFound      = NewDomainError("user", "Find", ErrNotFound, "user not found")
	ErrUserAlreadyExists = NewDomainError("user", "Create", ErrAlreadyExists, "user already exists")
	ErrInvalidSteamID    = NewDomainError("user", "Validate", ErrInvalidID, "invalid Steam ID")
)

// Progress domain errors
var (
	ErrProgressNotFound = NewDomainError("progress", "Find", ErrNotFound, "game progress not found")
	ErrInvalidAppID     = NewDomainError("progress", "Validate", ErrInvalidID, "invalid app ID")
)

// External service errors
var (
	ErrSteamAPIUnavailable     = NewDomainError("steam", "Request", ErrServiceUnavailable, "Steam API is unavailable")
	ErrSteamAPIRateLimited     = NewDomainError("steam", "Request", ErrRateLimited, "Steam API rate limit exceeded")
	ErrSteamAPITimeout         = NewDomainError("steam", "Request", ErrTimeout, "Steam API request timeout")
	ErrSteamAPIInvalidResponse = NewDomainError("steam", "Parse", ErrInvalidFormat, "invalid response from Steam API")
	ErrSteamProfilePrivate     = NewDomainError("steam", "Fetch", ErrForbidden, "Steam profile or game details are private")
	ErrSteamUserNotFound       = NewDomainError("steam", "Fetch", ErrNotFound, "Steam user not found")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsStorage checks if the error originated in the persistence layer.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorage) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}
