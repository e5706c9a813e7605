// Package kerrors implements the error kind taxonomy used across the
// core: NotFound, Unauthorized, Conflict, InvalidInput, Backend,
// Timeout, Cycle.
package kerrors

import (
	"github.com/cockroachdb/errors"
)

// Kind is an error classification independent of the underlying cause.
type Kind string

const (
	NotFound     Kind = "not_found"
	Unauthorized Kind = "unauthorized"
	Conflict     Kind = "conflict"
	InvalidInput Kind = "invalid_input"
	Backend      Kind = "backend"
	Timeout      Kind = "timeout"
	Cycle        Kind = "cycle"
)

// kindError carries a Kind alongside a wrapped cause.
type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }
func (e *kindError) Unwrap() error { return e.err }
func (e *kindError) Cause() error  { return e.err } // cockroachdb/errors.Cause compat

// Wrap attaches kind to err. If err is nil, Wrap returns nil.
func Wrap(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: errors.Wrap(err, msg)}
}

// New creates a fresh error of the given kind.
func New(kind Kind, msg string) error {
	return &kindError{kind: kind, err: errors.New(msg)}
}

// Newf creates a fresh error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return &kindError{kind: kind, err: errors.Newf(format, args...)}
}

// KindOf returns the Kind attached to err, walking the Unwrap chain.
// Returns "" (no kind) if err carries none.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return ""
}

// Is reports whether err (or any error it wraps) is of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Is* convenience predicates, mirroring common error-kind checks
// used throughout EntityManager and the storage adapters.
func IsNotFound(err error) bool     { return Is(err, NotFound) }
func IsUnauthorized(err error) bool { return Is(err, Unauthorized) }
func IsConflict(err error) bool     { return Is(err, Conflict) }
func IsInvalidInput(err error) bool { return Is(err, InvalidInput) }
func IsBackend(err error) bool      { return Is(err, Backend) }
func IsTimeout(err error) bool      { return Is(err, Timeout) }
func IsCycle(err error) bool        { return Is(err, Cycle) }
