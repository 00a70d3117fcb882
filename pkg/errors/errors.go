package errors

import (
	"errors"
	"fmt"
)

// ErrorType defines different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeInternal   ErrorType = "INTERNAL"

	// Transient extraction failure classes. RateLimited is retried with
	// exponential backoff, Overloaded with linear backoff, Malformed with a
	// short fixed delay.
	ErrorTypeRateLimited ErrorType = "RATE_LIMITED"
	ErrorTypeOverloaded  ErrorType = "OVERLOADED"
	ErrorTypeMalformed   ErrorType = "MALFORMED"
)

// AppError is the custom error type for the application
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructor functions for different error types

// NewValidation creates a validation error
func NewValidation(message string) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewNotFound creates a not found error
func NewNotFound(message string) error {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewRateLimited creates a rate-limit error (retryable with exponential backoff)
func NewRateLimited(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeRateLimited,
		Message: message,
		Err:     err,
	}
}

// NewOverloaded creates an overload error (retryable with linear backoff)
func NewOverloaded(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeOverloaded,
		Message: message,
		Err:     err,
	}
}

// NewMalformed creates a malformed-response error (retryable with a fixed delay)
func NewMalformed(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeMalformed,
		Message: message,
		Err:     err,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the type
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:    appErr.Type,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     appErr.Err,
		}
	}

	// Otherwise, create an internal error
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Type checking functions

func isType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool {
	return isType(err, ErrorTypeInternal)
}

// IsRateLimited checks if an error is a rate-limit error
func IsRateLimited(err error) bool {
	return isType(err, ErrorTypeRateLimited)
}

// IsOverloaded checks if an error is an overload error
func IsOverloaded(err error) bool {
	return isType(err, ErrorTypeOverloaded)
}

// IsMalformed checks if an error is a malformed-response error
func IsMalformed(err error) bool {
	return isType(err, ErrorTypeMalformed)
}

// IsRetryable reports whether the error belongs to one of the transient
// classes that the extraction client retries.
func IsRetryable(err error) bool {
	return IsRateLimited(err) || IsOverloaded(err) || IsMalformed(err)
}
