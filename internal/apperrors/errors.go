// Package apperrors defines the error taxonomy exposed by the workspace API.
//
// Every error that crosses an operation boundary is one of four kinds, each
// carrying a short fixed user-facing message. Underlying infrastructure
// detail is wrapped for logging but never shown to callers.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an operation-level error.
type Kind string

const (
	KindNotFound     Kind = "NotFound"
	KindConflict     Kind = "Conflict"
	KindUnauthorized Kind = "Unauthorized"
	KindInternal     Kind = "InternalError"
)

// Error is an operation-boundary error with a fixed user-facing message.
type Error struct {
	kind    Kind
	message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.message)
}

// Unwrap exposes the wrapped infrastructure error for errors.Is/As.
func (e *Error) Unwrap() error { return e.cause }

// Kind returns the taxonomy member this error belongs to.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the fixed user-facing message.
func (e *Error) Message() string { return e.message }

// NotFound reports an absent record or an ownership mismatch. The two are
// deliberately indistinguishable to the caller.
func NotFound(message string) *Error {
	return &Error{kind: KindNotFound, message: message}
}

// Conflict reports a state that forbids the requested mutation.
func Conflict(message string) *Error {
	return &Error{kind: KindConflict, message: message}
}

// Unauthorized reports a failed credential verification.
func Unauthorized(cause error) *Error {
	return &Error{kind: KindUnauthorized, message: "Unauthorized", cause: cause}
}

// Internal reports an infrastructure failure. The cause is retained for
// logging only.
func Internal(cause error) *Error {
	return &Error{kind: KindInternal, message: "Internal Server Error", cause: cause}
}

// Internalf is Internal with a formatted cause.
func Internalf(format string, args ...any) *Error {
	return Internal(fmt.Errorf(format, args...))
}

// KindOf returns the kind of err, or KindInternal for errors outside the
// taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindInternal
}

// Is reports whether err belongs to the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
