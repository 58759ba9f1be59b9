// Package schema resolves the columns of a SIPp statistics header once per file
// and orders the response-time histogram columns by their bucket bound.
package schema

import "math"

// Field is a logical report field independent of the header spelling.
type Field string

const (
	FieldElapsedTime     Field = "elapsed_time"
	FieldCallRate        Field = "call_rate"
	FieldTargetRate      Field = "target_rate"
	FieldCurrentTime     Field = "current_time"
	FieldSuccessfulCalls Field = "successful_calls"
	FieldFailedCalls     Field = "failed_calls"
	FieldResponseTime    Field = "response_time"
	FieldCallLength      Field = "call_length"
)

// RequiredFields must be present and numeric for a row to yield a record.
var RequiredFields = []Field{FieldElapsedTime, FieldCallRate, FieldTargetRate}

// OptionalFields fall back to zero or missing when absent or malformed.
var OptionalFields = []Field{
	FieldCurrentTime,
	FieldSuccessfulCalls,
	FieldFailedCalls,
	FieldResponseTime,
	FieldCallLength,
}

// AllFields lists every logical field, required first.
func AllFields() []Field {
	return append(append([]Field{}, RequiredFields...), OptionalFields...)
}

// Columns maps each logical field to the header name used by a SIPp version.
type Columns struct {
	ElapsedTime     string
	CallRate        string
	TargetRate      string
	CurrentTime     string
	SuccessfulCalls string
	FailedCalls     string
	ResponseTime    string
	CallLength      string

	// HistogramPrefix selects the bucket columns, e.g. "ResponseTimeRepartition1"
	// for "ResponseTimeRepartition1_<10".
	HistogramPrefix string
}

// Name returns the configured header name for a field.
func (c Columns) Name(f Field) string {
	switch f {
	case FieldElapsedTime:
		return c.ElapsedTime
	case FieldCallRate:
		return c.CallRate
	case FieldTargetRate:
		return c.TargetRate
	case FieldCurrentTime:
		return c.CurrentTime
	case FieldSuccessfulCalls:
		return c.SuccessfulCalls
	case FieldFailedCalls:
		return c.FailedCalls
	case FieldResponseTime:
		return c.ResponseTime
	case FieldCallLength:
		return c.CallLength
	default:
		return ""
	}
}

// BucketColumn is a histogram column with its parsed upper bound.
type BucketColumn struct {
	// Column is the full header name.
	Column string `json:"column"`

	// Label is the header text after the prefix, e.g. "<10" or "0-10".
	Label string `json:"label"`

	// UpperBoundMs is the bucket's upper bound in milliseconds. Zero when Open.
	UpperBoundMs int64 `json:"upper_bound_ms"`

	// Open marks the unbounded ">= N" bucket, or any label without a bound.
	Open bool `json:"open"`
}

// SortKey returns the bound used for ordering; open buckets sort at +Inf.
func (b BucketColumn) SortKey() float64 {
	if b.Open {
		return math.Inf(1)
	}
	return float64(b.UpperBoundMs)
}
