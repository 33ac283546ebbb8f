package model

import "errors"

// Outcome carries the result of an operation that never fails outright.
// OK is false when the operation degraded; Value then holds the benign
// fallback (an empty body, a negative check) and DegradedReason says why.
type Outcome[T any] struct {
	// OK is true when the operation completed cleanly.
	OK bool `json:"ok"`

	// Value is the result, or the fallback value when OK is false.
	Value T `json:"value"`

	// DegradedReason describes why the operation degraded. Empty when OK.
	DegradedReason string `json:"degraded_reason,omitempty"`

	// Attempts is the number of attempts made, for operations that retry.
	Attempts int `json:"attempts,omitempty"`

	// cause is the underlying error, kept for errors.Is checks.
	cause error
}

// Succeeded returns a clean outcome holding v.
func Succeeded[T any](v T) Outcome[T] {
	return Outcome[T]{OK: true, Value: v}
}

// Degraded returns a degraded outcome holding the fallback value v.
// A nil cause is replaced by a generic error so Err never returns nil.
func Degraded[T any](v T, cause error) Outcome[T] {
	if cause == nil {
		cause = errors.New("degraded")
	}
	return Outcome[T]{Value: v, DegradedReason: cause.Error(), cause: cause}
}

// WithAttempts returns a copy of o recording n attempts.
func (o Outcome[T]) WithAttempts(n int) Outcome[T] {
	o.Attempts = n
	return o
}

// Err returns the degradation cause, or nil when the outcome is OK.
func (o Outcome[T]) Err() error {
	if o.OK {
		return nil
	}
	return o.cause
}
