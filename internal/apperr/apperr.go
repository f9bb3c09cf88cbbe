// Package apperr defines the error taxonomy shared by the services and its
// mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an application error.
type Kind string

const (
	Unauthenticated  Kind = "unauthenticated"
	PermissionDenied Kind = "permission_denied"
	NotFound         Kind = "not_found"
	Conflict         Kind = "conflict"
	InvalidState     Kind = "invalid_state"
	InvalidArgument  Kind = "invalid_argument"
	Internal         Kind = "internal"
)

// Error is an application error with a caller-facing message.
type Error struct {
	Kind    Kind
	Message string
	Origin  error // underlying cause, never shown to callers
}

func (e *Error) Error() string {
	if e.Origin != nil {
		return e.Message + ": " + e.Origin.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Origin
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind that keeps origin for logging.
func Wrap(kind Kind, message string, origin error) *Error {
	return &Error{Kind: kind, Message: message, Origin: origin}
}

// Internalf wraps a storage or infrastructure failure.
func Internalf(message string, origin error) *Error {
	return Wrap(Internal, message, origin)
}

// KindOf returns the Kind of err, or Internal if err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// Message returns the caller-facing message for err.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != Internal {
		return appErr.Message
	}
	return "Internal server error"
}

// HTTPStatus maps err onto the status code the API reports for it.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Unauthenticated:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case PermissionDenied, Conflict, InvalidState, InvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
