package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated indicates a missing, malformed or expired credential.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates the caller lacks the role or scope for the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrBadRequest indicates malformed or incomplete input.
	ErrBadRequest = errors.New("bad request")
	// ErrConflict indicates a uniqueness violation.
	ErrConflict = errors.New("conflict")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
)

// Error carries a caller-facing message on top of one of the sentinel kinds.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Kind }

// Unauthenticated wraps ErrUnauthenticated with a message.
func Unauthenticated(msg string) error { return &Error{Kind: ErrUnauthenticated, Message: msg} }

// Forbidden wraps ErrForbidden with a message.
func Forbidden(msg string) error { return &Error{Kind: ErrForbidden, Message: msg} }

// NotFound wraps ErrNotFound with a message.
func NotFound(msg string) error { return &Error{Kind: ErrNotFound, Message: msg} }

// BadRequest wraps ErrBadRequest with a message.
func BadRequest(msg string) error { return &Error{Kind: ErrBadRequest, Message: msg} }

// Conflict wraps ErrConflict with a message.
func Conflict(msg string) error { return &Error{Kind: ErrConflict, Message: msg} }
