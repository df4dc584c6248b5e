// Package service holds the business rules for sessions, time tracking,
// invitations and user administration. Services depend on store interfaces
// implemented by the repository package and report failures as *Error so
// the HTTP layer can map them to status codes.
package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a classified failure with a message safe to show to clients.
// Err, when set, carries the underlying cause for logs.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrInvalidCredentials is returned for both unknown emails and wrong
// passwords so callers cannot probe which accounts exist.
var ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Msg: "invalid email or password"}

func validation(msg string) error { return &Error{Kind: KindValidation, Msg: msg} }
func forbidden(msg string) error  { return &Error{Kind: KindForbidden, Msg: msg} }
func notFound(msg string) error   { return &Error{Kind: KindNotFound, Msg: msg} }
func conflict(msg string) error   { return &Error{Kind: KindConflict, Msg: msg} }

func internal(op string, err error) error {
	return &Error{Kind: KindInternal, Msg: "internal server error", Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// Message returns the client-facing message of err.
func Message(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Msg
	}
	return "internal server error"
}
