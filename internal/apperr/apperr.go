// Package apperr defines the error value carried from services and
// middleware to the HTTP boundary. An *Error knows the status code and
// the message the client is allowed to see; anything that is not an
// *Error is treated as unexpected and rendered as a generic 500.
package apperr

import (
	"errors"
	"net/http"
)

// Kind groups errors by the HTTP class they map to.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindUnexpected   Kind = "unexpected"
)

// FieldError is one entry of the "details" array in error responses.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a typed application error. Code identifies the concrete
// failure (e.g. "token_expired") and is what errors.Is compares.
type Error struct {
	Code    string
	Kind    Kind
	Status  int
	Message string
	Details []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same Code so that callers can test
// against the package-level sentinels regardless of message or details.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithDetails returns a copy of e carrying the given field details.
func (e *Error) WithDetails(details ...FieldError) *Error {
	cp := *e
	cp.Details = append([]FieldError(nil), details...)
	return &cp
}

// WithMessage returns a copy of e with a different client message.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

// Wrap returns a copy of e that records cause for logging.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Default status per kind, used when an *Error is built without one.
func statusFor(k Kind) int {
	switch k {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// New builds an *Error with the default status for its kind.
func New(kind Kind, code, msg string) *Error {
	return &Error{Code: code, Kind: kind, Status: statusFor(kind), Message: msg}
}

// Validation builds a 400 error with field details.
func Validation(msg string, details ...FieldError) *Error {
	return ErrValidation.WithMessage(msg).WithDetails(details...)
}

// Unexpected wraps an unrecognised failure. The cause is kept for logs
// only; the client sees the generic message.
func Unexpected(cause error) *Error {
	return ErrUnexpected.Wrap(cause)
}
