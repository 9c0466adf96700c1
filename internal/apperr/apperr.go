// Package apperr defines the error kinds shared by every service in the
// metering core. Callers branch on the kind, never on message text.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers.
type Kind string

const (
	KindInvalidArgument     Kind = "INVALID_ARGUMENT"
	KindUnauthenticated     Kind = "UNAUTHENTICATED"
	KindNotFound            Kind = "NOT_FOUND"
	KindInvalidState        Kind = "INVALID_STATE"
	KindAlreadyExists       Kind = "ALREADY_EXISTS"
	KindUpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"
	KindStorageError        Kind = "STORAGE_ERROR"
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

func (e *Error) Unwrap() error { return e.Cause }

// Is matches two errors of the same kind, so errors.Is(err, &Error{Kind: k})
// works for kind checks.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// New builds a kinded error.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a kind and message. Returns nil for a nil err.
func Wrap(err error, kind Kind, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: err}
}

// KindOf returns the kind of err, or empty when err carries none.
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
