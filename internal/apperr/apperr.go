// Package apperr defines the error codes shared by the repositories, services
// and HTTP handlers. Codes are strings so they serialize naturally into JSON
// error bodies and log fields.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure.
type Code string

const (
	// CodeNotFound indicates a missing course, document or stored file.
	CodeNotFound Code = "NOT_FOUND"

	// CodeForbidden indicates a non-public file requested without an admin session.
	CodeForbidden Code = "FORBIDDEN"

	// CodeInvalidInput indicates a missing or malformed request field.
	CodeInvalidInput Code = "INVALID_INPUT"

	// CodeUnauthorized indicates an admin-only operation without a session.
	CodeUnauthorized Code = "UNAUTHORIZED"

	// CodeAlreadyExists indicates a course id or document slug that is taken.
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// CodeIOFailure indicates a filesystem, object store or database failure.
	CodeIOFailure Code = "IO_FAILURE"
)

// Error carries a code, a client-safe message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so sentinel comparisons like
// errors.Is(err, apperr.ErrNotFound) work on wrapped values.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound      = &Error{Code: CodeNotFound, Message: "not found"}
	ErrForbidden     = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrInvalidInput  = &Error{Code: CodeInvalidInput, Message: "invalid input"}
	ErrUnauthorized  = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrAlreadyExists = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrIOFailure     = &Error{Code: CodeIOFailure, Message: "io failure"}
)

// NotFound returns a NOT_FOUND error with the given message.
func NotFound(format string, args ...interface{}) error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Invalid returns an INVALID_INPUT error with the given message.
func Invalid(format string, args ...interface{}) error {
	return &Error{Code: CodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// Exists returns an ALREADY_EXISTS error with the given message.
func Exists(format string, args ...interface{}) error {
	return &Error{Code: CodeAlreadyExists, Message: fmt.Sprintf(format, args...)}
}

// Forbidden returns a FORBIDDEN error with the given message.
func Forbidden(format string, args ...interface{}) error {
	return &Error{Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

// IO wraps err as an IO_FAILURE. The message is shown to clients, the cause
// is only logged.
func IO(message string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: CodeIOFailure, Message: message, Err: err}
}

// CodeOf extracts the code of the first *Error in err's chain. Unknown errors
// are reported as IO failures.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeIOFailure
}

// MessageOf returns the client-safe message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// HTTPStatus maps a code to its HTTP status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
