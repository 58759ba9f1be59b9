package series

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ccollicutt/sippstat/pkg/fields"
	"github.com/ccollicutt/sippstat/pkg/normalize"
	"github.com/ccollicutt/sippstat/pkg/parser"
	"github.com/ccollicutt/sippstat/pkg/schema"
)

// Builder turns a raw table into a Series.
type Builder struct {
	columns schema.Columns
	window  Window
}

// Option configures a Builder.
type Option func(*Builder)

// WithWindow keeps only records whose elapsed seconds fall in w.
func WithWindow(w Window) Option {
	return func(b *Builder) {
		b.window = w
	}
}

// NewBuilder creates a Builder resolving the given column names.
func NewBuilder(columns schema.Columns, opts ...Option) *Builder {
	b := &Builder{
		columns: columns,
		window:  Unbounded(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Result is the output of a build: the series plus everything that was
// recovered or skipped on the way.
type Result struct {
	Series *Series

	// Diagnostics lists per-row findings in row order.
	Diagnostics []normalize.Diagnostic

	// SchemaWarnings lists header-level problems, reported once per file.
	SchemaWarnings []string

	Window            Window
	RowsRead          int
	RowsExcluded      int
	RowsOutsideWindow int
}

// Build normalizes every row of table in file order, applies the window and
// sorts the surviving records by elapsed seconds (stable, so file order breaks
// ties).
//
// When no record survives, Build returns the Result (with its diagnostics)
// together with an *EmptyResultError. Any other error is structural and comes
// with a nil Result.
func (b *Builder) Build(table *parser.Table) (*Result, error) {
	full, err := b.normalize(table)
	if err != nil {
		return nil, err
	}
	return full.Windowed(b.window)
}

// normalize builds the unwindowed result.
func (b *Builder) normalize(table *parser.Table) (*Result, error) {
	s, err := schema.Detect(table.Header, b.columns)
	if err != nil {
		return nil, fmt.Errorf("detecting schema: %w", err)
	}

	n := normalize.New(s)
	result := &Result{
		Series:         &Series{Columns: s.Histogram, Records: make([]normalize.Record, 0, len(table.Rows))},
		SchemaWarnings: s.Warnings(),
		Window:         Unbounded(),
		RowsRead:       len(table.Rows),
	}

	tsColumn, _ := s.Column(schema.FieldCurrentTime)
	var previous fields.Timestamp

	for _, row := range table.Rows {
		rec, diags, err := n.Normalize(row)
		if err != nil {
			var rowErr *normalize.RowError
			if !errors.As(err, &rowErr) {
				return nil, fmt.Errorf("normalizing row %d: %w", row.Index, err)
			}
			result.Diagnostics = append(result.Diagnostics, rowErr.Diagnostic())
			result.RowsExcluded++
			continue
		}
		result.Diagnostics = append(result.Diagnostics, diags...)

		if rec.Timestamp.Before(previous) {
			result.Diagnostics = append(result.Diagnostics, normalize.Diagnostic{
				Row:    row.Index,
				Line:   row.Line,
				Kind:   normalize.KindNonMonotonicTimestamp,
				Column: tsColumn,
				Value:  rec.Timestamp.Time.Format(fields.TimestampLayout),
				Reason: fmt.Sprintf("earlier than previous row (%s)", previous.Time.Format(fields.TimestampLayout)),
			})
		}
		if rec.Timestamp.Valid {
			previous = rec.Timestamp
		}

		result.Series.Records = append(result.Series.Records, *rec)
	}

	sort.SliceStable(result.Series.Records, func(i, j int) bool {
		return result.Series.Records[i].ElapsedSeconds < result.Series.Records[j].ElapsedSeconds
	})

	return result, nil
}

// ValidRows is the number of rows that produced a record, in or out of the
// window.
func (r *Result) ValidRows() int {
	return r.RowsRead - r.RowsExcluded
}

// Windowed returns a copy of r keeping only the records inside w. Like Build,
// it returns an *EmptyResultError alongside the copy when no record remains.
// Windowing an already windowed result narrows it further: records dropped
// earlier are not recovered, so the reported window is the intersection.
func (r *Result) Windowed(w Window) (*Result, error) {
	out := *r
	out.Window = r.Window.Intersect(w)
	out.Series = r.Series.Filter(w)
	out.RowsOutsideWindow = r.RowsOutsideWindow + r.Series.Len() - out.Series.Len()

	return &out, out.Err()
}

// Err returns an *EmptyResultError when the series has no records, nil
// otherwise.
func (r *Result) Err() error {
	if r.Series.Len() > 0 {
		return nil
	}
	empty := &EmptyResultError{
		Reason:    ReasonOutsideWindow,
		Window:    r.Window,
		RowsRead:  r.RowsRead,
		ValidRows: r.ValidRows(),
	}
	if empty.ValidRows == 0 {
		empty.Reason = ReasonNoValidRows
	}
	return empty
}
