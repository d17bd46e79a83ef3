// Package apperr defines the error taxonomy shared by the domain services.
// Services return typed errors; the handler layer maps kinds to HTTP statuses.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure.
type Kind int

const (
	// KindInternal covers storage anomalies and wrapped upstream failures.
	KindInternal Kind = iota
	// KindNotFound means a referenced entity is missing.
	KindNotFound
	// KindConflict means a uniqueness rule was violated.
	KindConflict
	// KindUnauthorized means the session is missing or invalid.
	KindUnauthorized
	// KindInvalid means the request payload failed validation.
	KindInvalid
)

// Error carries a kind, a caller-facing message, and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound builds a not-found error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict builds a conflict error.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized builds an unauthorized error.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// Invalid builds a validation error.
func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindInvalid, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps cause with a caller-facing message.
func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: cause}
}

// KindOf extracts the kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
