package engine

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation was rejected
type Kind string

const (
	KindAuthorization     Kind = "AuthorizationFailure"
	KindValidation        Kind = "ValidationFailure"
	KindStateConflict     Kind = "StateConflict"
	KindNotFound          Kind = "NotFound"
	KindInsufficientFunds Kind = "InsufficientFunds"
	KindInternal          Kind = "Internal"
)

// Error is the structured failure returned by every engine operation
type Error struct {
	Kind Kind
	Op   string
	Key  string // agreement key or account, when relevant
	Msg  string
	Err  error // underlying cause for Internal errors
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Msg)
	if e.Key != "" {
		msg = fmt.Sprintf("%s [%s]: %s", e.Op, e.Key, e.Msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind of err. Errors not produced by the engine count as Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err is an engine error of the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func newError(kind Kind, op, key, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Key: key, Msg: fmt.Sprintf(format, args...)}
}

func unauthorized(op, key, format string, args ...interface{}) *Error {
	return newError(KindAuthorization, op, key, format, args...)
}

func invalid(op, key, format string, args ...interface{}) *Error {
	return newError(KindValidation, op, key, format, args...)
}

func conflict(op, key, format string, args ...interface{}) *Error {
	return newError(KindStateConflict, op, key, format, args...)
}

func notFound(op, key, format string, args ...interface{}) *Error {
	return newError(KindNotFound, op, key, format, args...)
}

func insufficient(op, key, format string, args ...interface{}) *Error {
	return newError(KindInsufficientFunds, op, key, format, args...)
}

func internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Op: op, Msg: "store failure", Err: err}
}
