// Package domainerrors defines coded errors for the offboarding domain.
// Services return these so transport layers can translate them into HTTP
// responses without inspecting error strings.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	// CodeNotFound signals a drive, project or submission that does not exist.
	CodeNotFound Code = "not_found"
	// CodePrecondition signals a workflow precondition violation, such as an
	// incomplete submission reaching the package builder.
	CodePrecondition Code = "precondition_failed"
	// CodeValidation signals rejected input, such as a non-default retention
	// period without a justification.
	CodeValidation Code = "validation_failed"
	// CodeConflict signals a state collision, such as a resubmitted offboarding form.
	CodeConflict Code = "conflict"
	// CodeUnauthorized signals a missing or unknown API key.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden signals an API key without the required action.
	CodeForbidden Code = "forbidden"
	// CodeInternal covers unexpected failures, including I/O errors during
	// checksum computation or archive writing.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. The message is safe to surface to callers.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New builds a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds a domain error that preserves the underlying cause for errors.Is.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// CodeOf extracts the code from err, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation:
		return http.StatusUnprocessableEntity
	case CodePrecondition:
		return http.StatusConflict
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
