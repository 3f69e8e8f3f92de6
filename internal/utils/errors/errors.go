package errors

import (
	"errors"
	"fmt"
)

// Error categories. Domain sentinels wrap one of these so callers can route
// an error to the right channel with errors.Is.
var (
	// ErrValidation marks user-correctable input problems.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks plan selections that violate tier constraints.
	ErrConfiguration = errors.New("configuration error")
	// ErrService marks failures of an external collaborator.
	ErrService = errors.New("service error")
	// ErrInvariantViolation marks programmer errors.
	ErrInvariantViolation = errors.New("invariant violation")
)

// Error codes.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeConfiguration = "CONFIGURATION_ERROR"
	CodeService       = "SERVICE_ERROR"
	CodeInvariant     = "INVARIANT_VIOLATION"
	CodeInternal      = "INTERNAL_ERROR"
)

// AppError represents an application error with a stable code.
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails attaches details and returns the same error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error.
func NewAppError(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation creates a validation error for a single field.
func Validation(field, message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
		Details: map[string]any{"field": field},
		Err:     ErrValidation,
	}
}

// Configuration creates a plan configuration error carrying every
// constraint message.
func Configuration(messages []string) *AppError {
	msg := "invalid plan configuration"
	if len(messages) > 0 {
		msg = messages[0]
	}
	return &AppError{
		Code:    CodeConfiguration,
		Message: msg,
		Details: map[string]any{"errors": messages},
		Err:     ErrConfiguration,
	}
}

// Service wraps a failure of an external collaborator.
func Service(service string, err error) *AppError {
	return &AppError{
		Code:    CodeService,
		Message: fmt.Sprintf("%s unavailable", service),
		Details: map[string]any{"service": service},
		Err:     errors.Join(ErrService, err),
	}
}

// InvariantViolation creates a programmer error.
func InvariantViolation(message string) *AppError {
	return &AppError{
		Code:    CodeInvariant,
		Message: message,
		Err:     ErrInvariantViolation,
	}
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConfiguration checks if an error is a configuration error.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsService checks if an error came from an external collaborator.
func IsService(err error) bool {
	return errors.Is(err, ErrService)
}

// IsInvariantViolation checks if an error is a programmer error.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}

// Code returns the error code of an AppError in the chain, or CodeInternal.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	switch {
	case IsValidation(err):
		return CodeValidation
	case IsConfiguration(err):
		return CodeConfiguration
	case IsService(err):
		return CodeService
	case IsInvariantViolation(err):
		return CodeInvariant
	}
	return CodeInternal
}

// Wrap wraps an error with a message, preserving the chain.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
