package syncerr

import (
	"errors"
	"fmt"
)

// Kind classifies a sync failure. The engine's retry policy is driven
// entirely by the kind: only network failures are retried.
type Kind string

const (
	KindNetwork    Kind = "network"    // connectivity, timeout - retryable
	KindValidation Kind = "validation" // rejected payload - never retried
	KindNotFound   Kind = "not_found"  // no matching record
	KindCache      Kind = "cache"      // local cache failure - never fatal
	KindSeed       Kind = "seed"       // partial aggregate creation - fatal at boot
)

// Error carries a failure kind alongside the wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind and the failing operation name.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Network marks err as a transient connectivity failure.
func Network(op string, err error) *Error { return New(KindNetwork, op, err) }

// Validation marks err as a rejected payload.
func Validation(op string, err error) *Error { return New(KindValidation, op, err) }

// NotFound marks err as a missing record.
func NotFound(op string, err error) *Error { return New(KindNotFound, op, err) }

// Cache marks err as a local cache failure.
func Cache(op string, err error) *Error { return New(KindCache, op, err) }

// Seed marks err as a partial aggregate creation.
func Seed(op string, err error) *Error { return New(KindSeed, op, err) }

// KindOf returns the kind of err, or "" when err carries no kind.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsRetryable reports whether the engine may retry the failed operation.
func IsRetryable(err error) bool {
	return KindOf(err) == KindNetwork
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
