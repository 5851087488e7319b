// Package faults defines the error kinds reported by the evaluation core.
// Every error created here matches its kind sentinel through errors.Is,
// including after being wrapped with github.com/pkg/errors.
package faults

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports an unsupported mode or an out-of-range parameter
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmptyInput reports a statistic requested over zero elements
	ErrEmptyInput = errors.New("empty input")

	// ErrShape reports mismatched or too-small grids
	ErrShape = errors.New("shape error")

	// ErrUndefinedMetric reports a metric whose denominator is zero
	ErrUndefinedMetric = errors.New("undefined metric")

	// ErrNotFound reports a catalog lookup miss
	ErrNotFound = errors.New("not found")
)

// Error carries a kind sentinel and a detail message
type Error struct {
	Kind   error
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
}

// Unwrap exposes the kind so errors.Is matches it
func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// InvalidArgument builds an ErrInvalidArgument error
func InvalidArgument(format string, args ...interface{}) error {
	return newError(ErrInvalidArgument, format, args...)
}

// EmptyInput builds an ErrEmptyInput error
func EmptyInput(format string, args ...interface{}) error {
	return newError(ErrEmptyInput, format, args...)
}

// Shape builds an ErrShape error
func Shape(format string, args ...interface{}) error {
	return newError(ErrShape, format, args...)
}

// UndefinedMetric builds an ErrUndefinedMetric error
func UndefinedMetric(format string, args ...interface{}) error {
	return newError(ErrUndefinedMetric, format, args...)
}

// NotFound builds an ErrNotFound error
func NotFound(format string, args ...interface{}) error {
	return newError(ErrNotFound, format, args...)
}

// KindOf returns the kind sentinel of err, or nil when err carries none
func KindOf(err error) error {
	for _, kind := range []error{ErrInvalidArgument, ErrEmptyInput, ErrShape, ErrUndefinedMetric, ErrNotFound} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
