// Package errkind classifies the error kinds from the core's error handling
// design: InvalidConfiguration, InvalidData, InternalError, TransportError,
// and SafetyViolation. Every fallible operation in the core wraps its error
// with one of these kinds so callers can branch on severity without a
// bespoke error-code enum.
package errkind

import "github.com/pkg/errors"

// Kind is one of the five error kinds the core distinguishes.
type Kind int

const (
	// InvalidConfiguration is a structural or semantic problem in creature
	// or controller configuration. Fatal at startup, never auto-recovered.
	InvalidConfiguration Kind = iota
	// InvalidData is a runtime input that violates a contract. Recovered
	// locally: the datum is dropped, a counter incremented, a warning logged.
	InvalidData
	// InternalError is a broken logic invariant (mutex failure, allocation
	// failure on a critical path).
	InternalError
	// TransportError means the physical link dropped.
	TransportError
	// SafetyViolation is a thermal or electrical threshold exceeded beyond
	// grace. Terminal.
	SafetyViolation
)

func (k Kind) String() string {
	switch k {
	case InvalidConfiguration:
		return "InvalidConfiguration"
	case InvalidData:
		return "InvalidData"
	case InternalError:
		return "InternalError"
	case TransportError:
		return "TransportError"
	case SafetyViolation:
		return "SafetyViolation"
	default:
		return "Unknown"
	}
}

type kindedError struct {
	kind Kind
	err  error
}

func (e *kindedError) Error() string { return e.err.Error() }
func (e *kindedError) Unwrap() error { return e.err }

// New wraps msg as a new error of the given kind.
func New(kind Kind, msg string) error {
	return &kindedError{kind: kind, err: errors.New(msg)}
}

// Errorf wraps a formatted message as a new error of the given kind.
func Errorf(kind Kind, format string, args ...interface{}) error {
	return &kindedError{kind: kind, err: errors.Errorf(format, args...)}
}

// Wrap attaches a kind to an existing error, adding msg as context.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &kindedError{kind: kind, err: errors.Wrap(err, msg)}
}

// Wrapf attaches a kind to an existing error with a formatted message.
func Wrapf(kind Kind, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &kindedError{kind: kind, err: errors.Wrapf(err, format, args...)}
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	for err != nil {
		if ke, ok := err.(*kindedError); ok {
			if ke.kind == kind {
				return true
			}
			err = ke.err
			continue
		}
		err = errors.Unwrap(err)
	}
	return false
}

// KindOf returns the kind carried by err, and false if err carries none.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if ke, ok := err.(*kindedError); ok {
			return ke.kind, true
		}
		err = errors.Unwrap(err)
	}
	return 0, false
}
