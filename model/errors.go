package model

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed taxonomy of failures the core can produce (spec §7).
type ErrorKind string

const (
	ErrorKindInvalidInput       ErrorKind = "InvalidInput"
	ErrorKindNotFound           ErrorKind = "NotFound"
	ErrorKindStoreUnavailable   ErrorKind = "StoreUnavailable"
	ErrorKindEmbedderUnavailable ErrorKind = "EmbedderUnavailable"
	ErrorKindCancelled          ErrorKind = "Cancelled"
	ErrorKindTimeout            ErrorKind = "Timeout"
	ErrorKindInternal           ErrorKind = "Internal"
)

// Error is the error type every core component returns. It carries a Kind
// the retrieval orchestrator can branch on (degrade vs. propagate, §7) and
// the operation that failed, wrapping an optional underlying cause.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an *Error of the given kind for operation op, wrapping err.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err carries the given kind, unwrapping as needed.
func Is(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func errRequired(field string) error {
	return fmt.Errorf("%s is required", field)
}

func errInvariant(msg string) error {
	return errors.New(msg)
}
