package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable, machine-matchable error codes. Handlers translate them to HTTP
// statuses; services never downgrade one kind into another.
const (
	CodeNotFound      = "not_found"
	CodeNotAuthorized = "not_authorized"
	CodeInvalidState  = "invalid_state"
	CodeInvalidInput  = "invalid_input"
	CodeConflict      = "conflict"
	CodeUnauthorized  = "unauthorized"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf(format, args...))
}

func NotAuthorized(format string, args ...any) *Error {
	return New(http.StatusForbidden, CodeNotAuthorized, fmt.Errorf(format, args...))
}

func InvalidState(format string, args ...any) *Error {
	return New(http.StatusConflict, CodeInvalidState, fmt.Errorf(format, args...))
}

func InvalidInput(format string, args ...any) *Error {
	return New(http.StatusBadRequest, CodeInvalidInput, fmt.Errorf(format, args...))
}

func Conflict(format string, args ...any) *Error {
	return New(http.StatusConflict, CodeConflict, fmt.Errorf(format, args...))
}

func Unauthorized(format string, args ...any) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, fmt.Errorf(format, args...))
}

// CodeOf returns the stable code carried by err, or "" when err is not an
// *Error anywhere in its chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// StatusOf returns the HTTP status for err, defaulting to 500 for
// untyped failures (storage faults and the like).
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}
