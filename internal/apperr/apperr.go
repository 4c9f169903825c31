// Package apperr defines the service-wide error taxonomy. Services fail with a
// kind plus message; the handler layer maps kinds onto HTTP statuses and the
// uniform error envelope. Handlers never transform one kind into another.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping
type Kind string

const (
	KindInputInvalid      Kind = "INPUT_INVALID"
	KindUnauthorized      Kind = "UNAUTHORIZED"
	KindForbidden         Kind = "FORBIDDEN"
	KindNotFound          Kind = "NOT_FOUND"
	KindConflict          Kind = "CONFLICT"
	KindPrecondition      Kind = "PRECONDITION_FAILED"
	KindInvalidInvitation Kind = "INVALID_INVITATION"
	KindInvalidRefresh    Kind = "INVALID_REFRESH"
	KindInvalidCode       Kind = "INVALID_CODE"
	KindEnrollmentExpired Kind = "ENROLLMENT_EXPIRED"
	KindBudgetExceeded    Kind = "BUDGET_EXCEEDED"
	KindBadUpstream       Kind = "BAD_UPSTREAM"
	KindInternal          Kind = "INTERNAL"
)

// Error is a classified error with optional envelope fields
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]any
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.wrapped)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.wrapped }

// New creates a classified error
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted message
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error. The underlying
// error is logged server-side and never serialized to the client.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, wrapped: err}
}

// WithField attaches an extra envelope field
func (e *Error) WithField(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

// KindOf extracts the kind of an error, defaulting to Internal
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether the error carries the given kind
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Status maps a kind to its HTTP status code
func (k Kind) Status() int {
	switch k {
	case KindInputInvalid:
		return http.StatusBadRequest
	case KindUnauthorized, KindInvalidRefresh, KindInvalidCode, KindEnrollmentExpired:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindPrecondition:
		return http.StatusPreconditionFailed
	case KindInvalidInvitation:
		return http.StatusBadRequest
	case KindBudgetExceeded:
		return http.StatusTooManyRequests
	case KindBadUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
