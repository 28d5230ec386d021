// Package apperr defines the error taxonomy shared by the upload pipeline,
// the variation generator and the session boundary.
package apperr

import (
	"errors"
	"net/http"
)

// Code is a machine-readable error category.
type Code string

const (
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodePayloadTooLarge Code = "PAYLOAD_TOO_LARGE"
	CodeUploadFailed    Code = "UPLOAD_FAILED"
	CodeSourceNotFound  Code = "SOURCE_NOT_FOUND"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
)

// Error carries a code, a caller-facing message and an optional stable details
// string. Cause is kept for logs only and never rendered to clients.
type Error struct {
	Code    Code
	Message string
	Details string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// New creates an error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an error that keeps cause and exposes its message as Details.
func Wrap(code Code, message string, cause error) *Error {
	e := &Error{Code: code, Message: message, Cause: cause}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// Sentinels usable with errors.Is; matching is by code only.
var (
	ErrInvalidInput    = New(CodeInvalidInput, "invalid input")
	ErrPayloadTooLarge = New(CodePayloadTooLarge, "payload too large")
	ErrUploadFailed    = New(CodeUploadFailed, "upload failed")
	ErrSourceNotFound  = New(CodeSourceNotFound, "source not found")
	ErrUnauthorized    = New(CodeUnauthorized, "unauthorized")
	ErrConflict        = New(CodeConflict, "conflict")
)

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HTTPStatus maps a code to the status used at the HTTP boundary.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeConflict:
		return http.StatusBadRequest
	case CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		// UploadFailed and SourceNotFound surface as 500 with a stable body.
		return http.StatusInternalServerError
	}
}
