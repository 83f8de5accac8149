// Package dErrors defines coded domain errors shared across services and the
// HTTP transport. Stores return sentinel errors (pkg/platform/sentinel);
// services translate them into coded errors here; the transport maps codes to
// HTTP statuses in exactly one place.
package dErrors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable classification of a domain failure.
type Code string

const (
	// CodeInvalidInput marks malformed or out-of-range input, rejected before any write.
	CodeInvalidInput Code = "INVALID_INPUT"
	// CodeNotFound marks a referenced profile, zone, site, or assignment that does not exist.
	CodeNotFound Code = "NOT_FOUND"
	// CodeConflict marks duplicate assignments, already-IN/already-OUT, duplicate submissions.
	CodeConflict Code = "CONFLICT"
	// CodeForbidden marks non-admin callers, suspended or deleted accounts, and
	// submissions outside every assigned zone.
	CodeForbidden Code = "FORBIDDEN"
	// CodeUnauthorized marks missing or invalid credentials.
	CodeUnauthorized Code = "UNAUTHORIZED"
	// CodeInternal marks unexpected failures; the transaction has been rolled back.
	CodeInternal Code = "INTERNAL"
)

// Error carries a code, a caller-safe message, and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with a caller-safe message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause. The cause is
// preserved for logs and errors.Is checks but never shown to clients.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// Is is an alias for HasCode kept for call-site readability:
// dErrors.Is(err, dErrors.CodeConflict).
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// unclassified errors so nothing leaks as a 200.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

// MessageOf extracts the caller-safe message from err. Unclassified errors
// get a generic message; their details belong in logs, not responses.
func MessageOf(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return "internal error"
}
