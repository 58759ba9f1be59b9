package fields

import (
	"errors"
	"fmt"
)

// ErrMalformedField is wrapped by every parse failure in this package.
var ErrMalformedField = errors.New("malformed field")

// FieldError describes a single cell that could not be parsed.
type FieldError struct {
	// Value is the raw cell content.
	Value string

	// Reason explains why the value was rejected.
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v %q: %s", ErrMalformedField, e.Value, e.Reason)
}

// Unwrap allows errors.Is(err, ErrMalformedField).
func (e *FieldError) Unwrap() error {
	return ErrMalformedField
}

func malformed(value, format string, args ...any) error {
	return &FieldError{Value: value, Reason: fmt.Sprintf(format, args...)}
}
