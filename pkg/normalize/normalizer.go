package normalize

import (
	"errors"
	"strings"

	"github.com/ccollicutt/sippstat/pkg/fields"
	"github.com/ccollicutt/sippstat/pkg/parser"
	"github.com/ccollicutt/sippstat/pkg/schema"
)

// Normalizer maps raw rows to records using a resolved schema.
type Normalizer struct {
	schema *schema.Schema
}

// New creates a Normalizer for rows of the given schema.
func New(s *schema.Schema) *Normalizer {
	return &Normalizer{schema: s}
}

// Normalize produces the record for one row.
//
// A missing or non-numeric required field yields a *RowError and no record.
// Optional fields that fail to parse fall back to zero (or a missing
// timestamp) and are reported in the returned diagnostics. Optional columns
// absent from the header are not reported per row.
func (n *Normalizer) Normalize(row parser.RawRow) (*Record, []Diagnostic, error) {
	rec := &Record{Row: row.Index}

	elapsed, err := required(n, row, schema.FieldElapsedTime, fields.ParseElapsed)
	if err != nil {
		return nil, nil, err
	}
	rec.ElapsedSeconds = elapsed

	if rec.CallRate, err = required(n, row, schema.FieldCallRate, fields.ParseRate); err != nil {
		return nil, nil, err
	}
	if rec.TargetRate, err = required(n, row, schema.FieldTargetRate, fields.ParseRate); err != nil {
		return nil, nil, err
	}

	var diags []Diagnostic
	report := func(column, value string, err error) {
		diags = append(diags, malformedDiagnostic(row, column, value, err))
	}

	rec.Timestamp = optional(n, row, schema.FieldCurrentTime, fields.ParseTimestamp, fields.Missing, report)
	rec.SuccessfulCalls = optional(n, row, schema.FieldSuccessfulCalls, fields.ParseCount, 0, report)
	rec.FailedCalls = optional(n, row, schema.FieldFailedCalls, fields.ParseCount, 0, report)
	rec.ResponseTime = optional(n, row, schema.FieldResponseTime, fields.ParseDuration, 0, report)
	rec.CallLength = optional(n, row, schema.FieldCallLength, fields.ParseDuration, 0, report)

	rec.Histogram = make([]Bucket, len(n.schema.Histogram))
	for i, col := range n.schema.Histogram {
		rec.Histogram[i] = Bucket{UpperBoundMs: col.UpperBoundMs, Open: col.Open}

		value, ok := row.Get(col.Column)
		if !ok {
			report(col.Column, "", errMissingCell)
			continue
		}
		count, err := fields.ParseCount(value)
		if err != nil {
			report(col.Column, value, err)
			continue
		}
		rec.Histogram[i].Count = count
	}

	return rec, diags, nil
}

var errMissingCell = errors.New("cell missing from row")

func required[T any](n *Normalizer, row parser.RawRow, f schema.Field, parse func(string) (T, error)) (T, error) {
	var zero T
	column, present := n.schema.Column(f)

	rowErr := &RowError{Row: row.Index, Line: row.Line, Field: f, Column: column}
	if !present {
		rowErr.Reason = "column not in header"
		return zero, rowErr
	}

	value, ok := row.Get(column)
	if !ok {
		rowErr.Reason = "cell missing from row"
		return zero, rowErr
	}
	if strings.TrimSpace(value) == "" {
		rowErr.Reason = "empty value"
		return zero, rowErr
	}

	parsed, err := parse(value)
	if err != nil {
		rowErr.Value = value
		rowErr.Reason = reason(err)
		return zero, rowErr
	}
	return parsed, nil
}

func optional[T any](n *Normalizer, row parser.RawRow, f schema.Field, parse func(string) (T, error), fallback T, report func(string, string, error)) T {
	column, present := n.schema.Column(f)
	if !present {
		return fallback
	}

	value, ok := row.Get(column)
	if !ok {
		report(column, "", errMissingCell)
		return fallback
	}

	parsed, err := parse(value)
	if err != nil {
		report(column, value, err)
		return fallback
	}
	return parsed
}

func malformedDiagnostic(row parser.RawRow, column, value string, err error) Diagnostic {
	return Diagnostic{
		Row:    row.Index,
		Line:   row.Line,
		Kind:   KindMalformedField,
		Column: column,
		Value:  value,
		Reason: reason(err) + ", using fallback",
	}
}

func reason(err error) string {
	var fe *fields.FieldError
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return err.Error()
}
