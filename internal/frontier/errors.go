package frontier

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a backend failure for the retry runner.
type ErrorKind int

// Error kinds. Transient failures (timeouts, connection resets, generic
// transport errors) are retried; fatal failures are not.
const (
	KindFatal ErrorKind = iota
	KindTransient
)

// Error is a tagged backend failure.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Transient wraps err as a retryable failure.
func Transient(op string, err error) error {
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

// Fatal wraps err as a non-retryable failure.
func Fatal(op string, err error) error {
	return &Error{Kind: KindFatal, Op: op, Err: err}
}

// IsTransient reports whether err is tagged retryable.
func IsTransient(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == KindTransient
	}
	return false
}
