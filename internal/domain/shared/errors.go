// Package shared contains common domain types, errors, events, and value objects
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
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrFutureTimestamp = errors.New("timestamp cannot be in the future")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrExpired          = errors.New("expired")

	// Access errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrLocked       = errors.New("resource is locked")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrOptimisticLock         = errors.New("optimistic lock failure")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progress", "certificate", "course"
	Op      string // Operation that failed, e.g., "MarkComplete", "Issue"
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

// Progress domain errors
var (
	ErrProgressNotFound       = NewDomainError("progress", "Find", ErrNotFound, "progress record not found")
	ErrProgressAlreadyExists  = NewDomainError("progress", "Create", ErrAlreadyExists, "progress record already exists")
	ErrNotEnrolled            = NewDomainError("progress", "CheckEnrollment", ErrForbidden, "student is not enrolled in course")
	ErrMaterialLocked         = NewDomainError("progress", "MarkComplete", ErrLocked, "material is locked by sequential gating")
	ErrInsufficientWatchTime  = NewDomainError("progress", "MarkComplete", ErrInvalidState, "video watch time below completion threshold")
	ErrProgressVersionConflict = NewDomainError("progress", "Update", ErrConcurrentModification, "progress record was modified concurrently")
)

// Course domain errors
var (
	ErrCourseNotFound     = NewDomainError("course", "Find", ErrNotFound, "course not found in catalog")
	ErrMaterialNotFound   = NewDomainError("course", "FindMaterial", ErrNotFound, "material not found in course")
	ErrInvalidMaterialRef = NewDomainError("course", "Validate", ErrInvalidID, "invalid material reference")
	ErrEmptyCourse        = NewDomainError("course", "Validate", ErrInvalidEntity, "course has no materials")
)

// Certificate domain errors
var (
	ErrCertificateNotFound = NewDomainError("certificate", "Find", ErrNotFound, "certificate not found")
	ErrCertificateExists   = NewDomainError("certificate", "Issue", ErrAlreadyExists, "certificate already issued")
	ErrCourseNotCompleted  = NewDomainError("certificate", "Issue", ErrInvalidState, "course is not completed")
)

// Notification domain errors
var (
	ErrNotificationFailed   = NewDomainError("notification", "Send", ErrExternalService, "failed to send notification")
	ErrInvalidChannel       = NewDomainError("notification", "Validate", ErrInvalidInput, "invalid notification channel")
	ErrNotificationDisabled = NewDomainError("notification", "Check", ErrForbidden, "notifications disabled by user")
)

// External service errors
var (
	ErrCatalogUnavailable     = NewDomainError("catalog", "Request", ErrServiceUnavailable, "course catalog is unavailable")
	ErrCatalogRateLimited     = NewDomainError("catalog", "Request", ErrRateLimited, "course catalog rate limit exceeded")
	ErrCatalogTimeout         = NewDomainError("catalog", "Request", ErrTimeout, "course catalog request timeout")
	ErrCatalogInvalidResponse = NewDomainError("catalog", "Parse", ErrInvalidFormat, "invalid response from course catalog")
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
		errors.Is(err, ErrValueOutOfRange)
}

// IsConflict checks if the error is a concurrency conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrOptimisticLock)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
