package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Council error code.
type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"      // 400
	ErrNotFound            ErrorCode = "NOT_FOUND"            // 404
	ErrFileNotFound        ErrorCode = "FILE_NOT_FOUND"       // 404
	ErrInvalidTransition   ErrorCode = "INVALID_TRANSITION"   // 409
	ErrBusy                ErrorCode = "BUSY"                 // 409
	ErrAlreadyExists       ErrorCode = "ALREADY_EXISTS"       // 409
	ErrCancelled           ErrorCode = "CANCELLED"            // 499
	ErrInternal            ErrorCode = "INTERNAL"             // 500
	ErrProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE" // 503
)

// CouncilError represents a structured error with code, status, and details.
type CouncilError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *CouncilError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *CouncilError {
	return &CouncilError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for an unknown session or persona.
func NewNotFound(kind, identifier string) *CouncilError {
	return &CouncilError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *CouncilError {
	return &CouncilError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewInvalidTransition creates a 409 error for an action that is not legal on the current screen.
func NewInvalidTransition(action, screen string) *CouncilError {
	return &CouncilError{
		Code:    ErrInvalidTransition,
		Status:  409,
		Message: fmt.Sprintf("cannot %s from the %s screen", action, screen),
		Details: map[string]any{"action": action, "screen": screen},
	}
}

// NewBusy creates a 409 error while a consultation round is still running.
func NewBusy() *CouncilError {
	return &CouncilError{
		Code:    ErrBusy,
		Status:  409,
		Message: "a consultation round is already in progress",
	}
}

// NewAlreadyExists creates a 409 error for an archive id collision on import.
func NewAlreadyExists(id string) *CouncilError {
	return &CouncilError{
		Code:    ErrAlreadyExists,
		Status:  409,
		Message: fmt.Sprintf("session already exists: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewCancelled creates a 499 error when the caller gave up on an operation.
func NewCancelled(op string) *CouncilError {
	return &CouncilError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
	}
}

// NewProviderUnavailable creates a 503 error when no advice backend could be built.
func NewProviderUnavailable(err error) *CouncilError {
	msg := "advice provider unavailable"
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &CouncilError{
		Code:    ErrProviderUnavailable,
		Status:  503,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *CouncilError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &CouncilError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is (or wraps) a CouncilError with the given code.
func Is(err error, code ErrorCode) bool {
	var cErr *CouncilError
	if stderrors.As(err, &cErr) {
		return cErr.Code == code
	}
	return false
}
