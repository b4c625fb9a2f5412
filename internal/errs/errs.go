// Package errs defines the error classification shared across the bot core.
// Callers branch on the Kind of a failure, not on message text.
package errs

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failure classes.
type Kind int

const (
	// KindValidation marks malformed input: out-of-range config values,
	// empty fields, non-finite numbers.
	KindValidation Kind = iota + 1
	// KindStateConflict marks a lifecycle precondition violation, such as
	// starting a bot that is already running.
	KindStateConflict
	// KindRiskLimit marks a sizing, portfolio-heat, or daily-loss breach.
	KindRiskLimit
	// KindBusy marks a resource held elsewhere: signal processing already
	// in progress, or an emergency reset attempted with operations active.
	KindBusy
	// KindCalculation marks degenerate numeric conditions such as a
	// near-vertical regression or insufficient data.
	KindCalculation
)

// String returns the kind's stable name.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStateConflict:
		return "state_conflict"
	case KindRiskLimit:
		return "risk_limit"
	case KindBusy:
		return "busy"
	case KindCalculation:
		return "calculation"
	default:
		return "unknown"
	}
}

// Retryable reports whether failures of this kind are expected benign
// races that a caller may simply retry.
func (k Kind) Retryable() bool {
	return k == KindStateConflict || k == KindBusy
}

// Error is a classified error with an optional wrapped cause.
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

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// Validation creates a KindValidation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// StateConflict creates a KindStateConflict error.
func StateConflict(format string, args ...any) *Error {
	return &Error{Kind: KindStateConflict, Msg: fmt.Sprintf(format, args...)}
}

// RiskLimit creates a KindRiskLimit error.
func RiskLimit(format string, args ...any) *Error {
	return &Error{Kind: KindRiskLimit, Msg: fmt.Sprintf(format, args...)}
}

// Busy creates a KindBusy error.
func Busy(format string, args ...any) *Error {
	return &Error{Kind: KindBusy, Msg: fmt.Sprintf(format, args...)}
}

// Calculation creates a KindCalculation error.
func Calculation(format string, args ...any) *Error {
	return &Error{Kind: KindCalculation, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind from err, or 0 if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
