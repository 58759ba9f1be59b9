// Package normalize turns raw report rows into typed per-interval records.
package normalize

import (
	"fmt"

	"github.com/ccollicutt/sippstat/pkg/fields"
)

// Record is the normalized form of one reporting interval.
type Record struct {
	// Row is the 0-based index of the source data row.
	Row int `json:"row"`

	// ElapsedSeconds is the cumulative elapsed time since the test started,
	// truncated to whole seconds. It is the series' x-axis key.
	ElapsedSeconds int64 `json:"elapsed_seconds"`

	// Timestamp is the wall-clock time of the row, or missing.
	Timestamp fields.Timestamp `json:"timestamp"`

	CallRate   float64 `json:"call_rate"`
	TargetRate float64 `json:"target_rate"`

	// SuccessfulCalls and FailedCalls are per-interval "(P)" counters.
	SuccessfulCalls int64 `json:"successful_calls"`
	FailedCalls     int64 `json:"failed_calls"`

	// ResponseTime and CallLength are averages in seconds.
	ResponseTime fields.Duration `json:"response_time_s"`
	CallLength   fields.Duration `json:"call_length_s"`

	// Histogram holds the bucket counts in classifier order.
	Histogram []Bucket `json:"histogram"`
}

// Bucket is one histogram bucket of a record.
type Bucket struct {
	UpperBoundMs int64 `json:"upper_bound_ms"`
	Open         bool  `json:"open"`
	Count        int64 `json:"count"`
}

// Kind categorizes a diagnostic.
type Kind string

const (
	// KindMalformedField marks a cell that failed to parse and was replaced by
	// its fallback value.
	KindMalformedField Kind = "malformed_field"

	// KindMissingRequiredField marks a row excluded from the series.
	KindMissingRequiredField Kind = "missing_required_field"

	// KindNonMonotonicTimestamp marks a row whose timestamp is earlier than
	// the previous valid row's.
	KindNonMonotonicTimestamp Kind = "non_monotonic_timestamp"
)

// Diagnostic is a per-row data-quality finding collected alongside the series.
type Diagnostic struct {
	// Row is the 0-based data row index.
	Row int `json:"row"`

	// Line is the 1-based line in the source file, when known.
	Line int `json:"line,omitempty"`

	Kind   Kind   `json:"kind"`
	Column string `json:"column,omitempty"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

// Excluded reports whether the row was dropped from the series.
func (d Diagnostic) Excluded() bool {
	return d.Kind == KindMissingRequiredField
}

func (d Diagnostic) String() string {
	if d.Column == "" {
		return fmt.Sprintf("row %d: %s: %s", d.Row, d.Kind, d.Reason)
	}
	return fmt.Sprintf("row %d: %s: column %q: %s", d.Row, d.Kind, d.Column, d.Reason)
}
