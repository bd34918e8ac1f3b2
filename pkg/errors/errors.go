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

// Predefined errors for common scenarios.
var (
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// ErrUnavailable covers transport failures reaching the EDMS backend.
	ErrUnavailable = New("UPSTREAM_UNAVAILABLE", http.StatusBadGateway, "could not reach server")
	// ErrUpstream carries a backend-reported error message verbatim.
	ErrUpstream = New("UPSTREAM_ERROR", http.StatusBadGateway, "upstream error")
	// ErrCacheMiss signals that a cache lookup found no entry.
	ErrCacheMiss = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	// ErrFormLocked rejects mutations before a base identity is selected.
	ErrFormLocked = New("FORM_LOCKED", http.StatusConflict, "form is locked until an employee is selected")
)

// Upstream builds an error that preserves the backend status and message.
func Upstream(status int, message string) *Error {
	if message == "" {
		message = ErrUpstream.Message
	}
	return &Error{Code: ErrUpstream.Code, Status: status, Message: message}
}

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
