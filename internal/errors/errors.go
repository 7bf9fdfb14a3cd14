package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType int

const (
	// Input errors - malformed ranges, start after end; fatal before any work
	ErrorTypeInput ErrorType = iota
	// Transient errors - network/timeout failures on external collaborators
	ErrorTypeTransient
	// ConfigConflict errors - explicit config disagrees with observed state
	ErrorTypeConfigConflict
	// DataGap errors - a collaborator is unavailable or disabled
	ErrorTypeDataGap
	// Internal errors - unexpected internal state
	ErrorTypeInternal
)

// Error represents a structured error with a category and optional cause
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Is matches errors by type so errors.Is works against sentinel instances
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsFatal returns true if this error should stop execution before any work
func (e *Error) IsFatal() bool {
	return e.Type == ErrorTypeInput || e.Type == ErrorTypeInternal
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{Type: errType, Message: message}
}

// Wrap wraps an existing error with a type and message
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Type: errType, Message: message, Cause: err}
}

// Convenience constructors for the error kinds the engine distinguishes

// InputError creates a fatal input validation error
func InputError(message string) *Error {
	return New(ErrorTypeInput, message)
}

// InputErrorf creates a fatal input validation error with formatting
func InputErrorf(format string, args ...any) *Error {
	return New(ErrorTypeInput, fmt.Sprintf(format, args...))
}

// TransientError wraps a retryable external failure
func TransientError(err error, message string) *Error {
	return Wrap(err, ErrorTypeTransient, message)
}

// TransientErrorf wraps a retryable external failure with formatting
func TransientErrorf(err error, format string, args ...any) *Error {
	return Wrap(err, ErrorTypeTransient, fmt.Sprintf(format, args...))
}

// ConfigConflict creates a non-fatal configuration conflict warning
func ConfigConflict(message string) *Error {
	return New(ErrorTypeConfigConflict, message)
}

// DataGap creates a non-fatal collaborator-unavailable error
func DataGap(err error, message string) *Error {
	if err == nil {
		return New(ErrorTypeDataGap, message)
	}
	return Wrap(err, ErrorTypeDataGap, message)
}

// InternalErrorf creates an internal error with formatting
func InternalErrorf(format string, args ...any) *Error {
	return New(ErrorTypeInternal, fmt.Sprintf(format, args...))
}

// IsTransient reports whether err (or anything it wraps) is retryable.
// Context deadline expiry counts as transient: a bounded timeout on an
// external call is treated the same as a network failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Type == ErrorTypeTransient
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsFatal checks if an error is fatal (should stop execution)
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.IsFatal()
	}
	return false
}

// GetType returns the type of an error
func GetType(err error) ErrorType {
	if err == nil {
		return ErrorTypeInternal
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeInternal
}
