package normalize

import (
	"errors"
	"fmt"

	"github.com/ccollicutt/sippstat/pkg/schema"
)

// ErrMissingRequiredField is wrapped when a row lacks a usable elapsed time,
// call rate or target rate.
var ErrMissingRequiredField = errors.New("missing required field")

// RowError explains why a row produced no record.
type RowError struct {
	Row    int
	Line   int
	Field  schema.Field
	Column string
	Value  string
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v %s (%q): %s", e.Row, ErrMissingRequiredField, e.Field, e.Column, e.Reason)
}

// Unwrap allows errors.Is(err, ErrMissingRequiredField).
func (e *RowError) Unwrap() error {
	return ErrMissingRequiredField
}

// Diagnostic converts the error into the diagnostic reported for the row.
func (e *RowError) Diagnostic() Diagnostic {
	return Diagnostic{
		Row:    e.Row,
		Line:   e.Line,
		Kind:   KindMissingRequiredField,
		Column: e.Column,
		Value:  e.Value,
		Reason: e.Reason,
	}
}
