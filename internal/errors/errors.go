// Package errors defines the error taxonomy shared by all Hearth services.
// Adapters convert I/O failures at their boundary into one of these kinds;
// nothing in this taxonomy is fatal to the process.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that branch on failure class.
type Kind string

const (
	// KindConfiguration marks missing or invalid configuration (absent API
	// credential, bad env). Surfaced once; the affected feature is disabled.
	KindConfiguration Kind = "configuration"
	// KindTransport marks network, store, or upstream-API unavailability.
	// Logged and abandoned; callers keep their prior state.
	KindTransport Kind = "transport"
	// KindValidation marks input rejected before any write (empty text,
	// non-positive amount, malformed response shape).
	KindValidation Kind = "validation"
	// KindNotFound marks a target that no longer exists. Nested mutations
	// treat it as a silent no-op.
	KindNotFound Kind = "not_found"
	// KindUnauthorized marks a rejected credential or identity.
	KindUnauthorized Kind = "unauthorized"
)

// Error carries a kind, a human-readable message, and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Configuration builds a configuration error.
func Configuration(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// Transport builds a transport error wrapping the cause.
func Transport(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindTransport, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Validation builds a validation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a not-found error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized builds an unauthorized error.
func Unauthorized(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or the empty kind when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return IsKind(err, KindNotFound)
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	return IsKind(err, KindConfiguration)
}

// IsTransport reports whether err is a transport error.
func IsTransport(err error) bool {
	return IsKind(err, KindTransport)
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return IsKind(err, KindValidation)
}
