package schema

import (
	"errors"
	"fmt"
)

// ErrEmptyHeader is returned when there are no columns to resolve.
var ErrEmptyHeader = errors.New("header has no columns")

// Schema is the typed column map of one report file.
type Schema struct {
	// Columns is the configuration the schema was resolved against.
	Columns Columns

	// Histogram holds the bucket columns in bound order.
	Histogram []BucketColumn

	present map[Field]bool
}

// Detect resolves the configured columns against a header. Absent columns are
// recorded rather than rejected: rows are validated individually so that a
// missing required column surfaces as per-row diagnostics.
func Detect(header []string, cols Columns) (*Schema, error) {
	if len(header) == 0 {
		return nil, ErrEmptyHeader
	}

	names := make(map[string]bool, len(header))
	for _, h := range header {
		names[h] = true
	}

	s := &Schema{
		Columns:   cols,
		Histogram: ClassifyHistogram(header, cols.HistogramPrefix),
		present:   make(map[Field]bool),
	}
	for _, f := range AllFields() {
		if name := cols.Name(f); name != "" && names[name] {
			s.present[f] = true
		}
	}

	return s, nil
}

// Column returns the header name for a field and whether the header has it.
func (s *Schema) Column(f Field) (string, bool) {
	return s.Columns.Name(f), s.present[f]
}

// MissingRequired lists required fields whose column is not in the header.
func (s *Schema) MissingRequired() []Field {
	return s.missing(RequiredFields)
}

// MissingOptional lists optional fields whose column is not in the header.
func (s *Schema) MissingOptional() []Field {
	return s.missing(OptionalFields)
}

func (s *Schema) missing(fields []Field) []Field {
	var out []Field
	for _, f := range fields {
		if !s.present[f] {
			out = append(out, f)
		}
	}
	return out
}

// Warnings describes header-level problems in human-readable form.
func (s *Schema) Warnings() []string {
	var out []string
	for _, f := range s.MissingRequired() {
		out = append(out, fmt.Sprintf("required column %q (%s) not found in header", s.Columns.Name(f), f))
	}
	for _, f := range s.MissingOptional() {
		if s.Columns.Name(f) == "" {
			continue
		}
		out = append(out, fmt.Sprintf("optional column %q (%s) not found in header", s.Columns.Name(f), f))
	}
	if s.Columns.HistogramPrefix != "" && len(s.Histogram) == 0 {
		out = append(out, fmt.Sprintf("no histogram columns with prefix %q", s.Columns.HistogramPrefix))
	}
	return out
}
