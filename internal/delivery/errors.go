package delivery

import (
	"errors"
	"time"
)

// ErrEncoding marks a message that cannot be translated into provider
// requests. Encoding failures are permanent: retrying cannot fix them.
var ErrEncoding = errors.New("delivery: message cannot be encoded")

// Error is a classified delivery failure. Transient errors are retried with
// backoff; permanent errors fail the message on the first occurrence.
// RetryAfter, when set, is the provider-mandated minimum wait before the
// next attempt.
type Error struct {
	Transient  bool
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "delivery: send failed"
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Transient wraps err as a retryable failure.
func Transient(err error) *Error {
	return &Error{Transient: true, Err: err}
}

// Permanent wraps err as a non-retryable failure.
func Permanent(err error) *Error {
	return &Error{Transient: false, Err: err}
}

// classify reports whether err should be retried and any provider-mandated
// wait. Errors the sender did not classify are assumed transient: an
// unclassified failure is almost always a network-level one.
func classify(err error) (transient bool, retryAfter time.Duration) {
	var de *Error
	if errors.As(err, &de) {
		return de.Transient, de.RetryAfter
	}
	return true, 0
}
