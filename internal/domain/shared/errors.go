// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
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

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")

	// Integrity errors
	ErrIntegrity = errors.New("data integrity violation")
	ErrOverflow  = errors.New("arithmetic overflow")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// External service errors
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "quest", "task", "progression"
	Op      string // Operation that failed, e.g., "Complete", "Grant"
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

// Progression domain errors
var (
	// ErrProfileNotFound means a user has no progression profile. Every user is
	// provisioned with one, so this is an integrity violation, not a user error.
	ErrProfileNotFound      = NewDomainError("progression", "Grant", ErrIntegrity, "progression profile not found")
	ErrProfileAlreadyExists = NewDomainError("progression", "Create", ErrAlreadyExists, "progression profile already exists")
	ErrPointsOverflow       = NewDomainError("progression", "Grant", ErrOverflow, "points overflow")
	ErrInvalidProfile       = NewDomainError("progression", "Validate", ErrIntegrity, "profile violates level/points invariant")
)

// Quest domain errors
var (
	ErrQuestNotFound      = NewDomainError("quest", "Find", ErrNotFound, "quest not found")
	ErrQuestNotActive     = NewDomainError("quest", "Transition", ErrInvalidState, "quest is not active")
	ErrInvalidQuestReward = NewDomainError("quest", "Validate", ErrNegativeValue, "reward points cannot be negative")
	ErrEmptyQuestTitle    = NewDomainError("quest", "Validate", ErrEmptyValue, "quest title cannot be empty")
	ErrQuestPayload       = NewDomainError("quest", "Parse", ErrInvalidFormat, "malformed quest payload")
)

// Task domain errors
var (
	ErrTaskNotFound         = NewDomainError("task", "Find", ErrNotFound, "task not found")
	ErrTaskAlreadyCompleted = NewDomainError("task", "Complete", ErrInvalidState, "task already completed")
	ErrInvalidTaskPoints    = NewDomainError("task", "Validate", ErrNegativeValue, "task points cannot be negative")
	ErrInvalidUnitAmount    = NewDomainError("task", "Validate", ErrNegativeValue, "unit amount cannot be negative")
	ErrEmptyTaskTitle       = NewDomainError("task", "Validate", ErrEmptyValue, "task title cannot be empty")
)

// Achievement domain errors
var (
	ErrAchievementNotFound     = NewDomainError("achievement", "Find", ErrNotFound, "achievement not found")
	ErrInvalidRequirements     = NewDomainError("achievement", "Validate", ErrValueOutOfRange, "tier requirements must be strictly ascending")
	ErrInvalidAccrualAmount    = NewDomainError("achievement", "Accrue", ErrNegativeValue, "accrual amount cannot be negative")
	ErrAchievementProvisioned  = NewDomainError("achievement", "Provision", ErrAlreadyExists, "achievement progress already provisioned")
	ErrEmptyAchievementName    = NewDomainError("achievement", "Validate", ErrEmptyValue, "achievement name cannot be empty")
	ErrEmptyAchievementMeasure = NewDomainError("achievement", "Validate", ErrEmptyValue, "achievement category and unit type are required")
)

// Habit domain errors
var (
	ErrHabitNotFound   = NewDomainError("habit", "Find", ErrNotFound, "habit not found")
	ErrEmptyHabitTitle = NewDomainError("habit", "Validate", ErrEmptyValue, "habit title cannot be empty")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidState checks if the error is a rejected state transition.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState) || errors.Is(err, ErrStateTransition)
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

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}

// IsExpected reports whether err is a routine outcome of duplicate or
// concurrent requests. Expected errors are never logged at error level.
func IsExpected(err error) bool {
	return IsNotFound(err) || IsInvalidState(err) || IsValidation(err)
}

// Outcome classifies an error for the caller-facing surface.
type Outcome string

const (
	// OutcomeOK means no error.
	OutcomeOK Outcome = "ok"

	// OutcomeRejected means the request can be retried with different input.
	OutcomeRejected Outcome = "rejected"

	// OutcomeUnavailable means "try again later" with no internal detail.
	OutcomeUnavailable Outcome = "unavailable"
)

// Classify maps an error to the user-visible outcome class.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case IsExpected(err):
		return OutcomeRejected
	default:
		return OutcomeUnavailable
	}
}

// PublicMessage returns a message that is safe to show to the end user.
func PublicMessage(err error) string {
	switch Classify(err) {
	case OutcomeOK:
		return ""
	case OutcomeRejected:
		var de *DomainError
		if errors.As(err, &de) {
			return de.Message
		}
		return "request rejected"
	default:
		return "something went wrong, please try again later"
	}
}
