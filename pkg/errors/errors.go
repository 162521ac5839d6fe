package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors. The allocation kinds are contractual: the interface layer
// renders distinct messages per code and retries only on CONCURRENT_MODIFICATION.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid identifier or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	ErrCapacityExceeded       = New("SESSION_FULL", http.StatusConflict, "session already has its full supervisor count")
	ErrWorkloadFull           = New("WORKLOAD_FULL", http.StatusConflict, "supervision workload already complete")
	ErrWorkloadExceeded       = New("WORKLOAD_EXCEEDED", http.StatusConflict, "session would exceed the remaining workload")
	ErrTimeConflict           = New("TIME_CONFLICT", http.StatusConflict, "session overlaps an existing supervision")
	ErrSubjectConflict        = New("SUBJECT_CONFLICT", http.StatusConflict, "teacher teaches a subject examined in this session")
	ErrNotAssigned            = New("NOT_ASSIGNED", http.StatusConflict, "teacher is not assigned to this session")
	ErrConcurrentModification = New("CONCURRENT_MODIFICATION", http.StatusConflict, "session was modified concurrently, retry")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// IsRetryable reports whether the caller may safely retry the failed request.
// Only optimistic-lock failures qualify; every other kind is terminal.
func IsRetryable(err error) bool {
	e := FromError(err)
	return e != nil && e.Code == ErrConcurrentModification.Code
}
