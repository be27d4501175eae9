// Package apperror provides structured error handling for the catalog core.
// All business errors must use AppError so callers can branch on Code.
package apperror

import (
	"errors"
	"fmt"
)

// Error codes
const (
	// Infrastructure errors
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Construction and input errors
	CodeValidation = "VALIDATION_ERROR"

	// Graph rule violations
	CodeCycle     = "CYCLE_DETECTED"
	CodeDuplicate = "DUPLICATE_ENTRY"
	CodeIntegrity = "INTEGRITY_VIOLATION"

	// Lookup errors
	CodeNotFound         = "NOT_FOUND"
	CodeUnknownReference = "UNKNOWN_REFERENCE"
)

// AppError is the standard error type for the catalog.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field names, ids, chains)
	Details map[string]any `json:"details,omitempty"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error for malformed construction input.
func NewValidation(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

// NewCycle creates an error for a parent or member assignment that would close a cycle.
func NewCycle(relation string, child, candidate any) *AppError {
	return &AppError{
		Code:    CodeCycle,
		Message: fmt.Sprintf("%s assignment would create a cycle", relation),
		Details: map[string]any{"relation": relation, "id": child, "candidate": candidate},
	}
}

// NewDuplicate creates a duplicate entry error.
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:    CodeDuplicate,
		Message: fmt.Sprintf("%s with this %s already exists", entity, field),
		Details: map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// NewUnknownReference creates an error for a reference to a missing entity or language.
func NewUnknownReference(entity string, id any) *AppError {
	return &AppError{
		Code:    CodeUnknownReference,
		Message: fmt.Sprintf("unknown %s", entity),
		Details: map[string]any{"entity": entity, "id": id},
	}
}

// NewIntegrity creates an error for removing an entity that still has children or links.
func NewIntegrity(entity string, id any, message string) *AppError {
	return &AppError{
		Code:    CodeIntegrity,
		Message: message,
		Details: map[string]any{"entity": entity, "id": id},
	}
}

// NewNotFound creates a not found error
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", entity),
		Details: map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal error
func NewInternal(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "internal error",
		Err:     err,
	}
}

// NewDatabase wraps a storage driver failure.
func NewDatabase(op string, err error) *AppError {
	return &AppError{
		Code:    CodeDatabase,
		Message: fmt.Sprintf("database operation %s failed", op),
		Err:     err,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether the first AppError in the chain carries code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsValidation checks if error is CodeValidation
func IsValidation(err error) bool { return HasCode(err, CodeValidation) }

// IsCycle checks if error is CodeCycle
func IsCycle(err error) bool { return HasCode(err, CodeCycle) }

// IsDuplicate checks if error is CodeDuplicate
func IsDuplicate(err error) bool { return HasCode(err, CodeDuplicate) }

// IsUnknownReference checks if error is CodeUnknownReference
func IsUnknownReference(err error) bool { return HasCode(err, CodeUnknownReference) }

// IsIntegrity checks if error is CodeIntegrity
func IsIntegrity(err error) bool { return HasCode(err, CodeIntegrity) }

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool { return HasCode(err, CodeNotFound) }
