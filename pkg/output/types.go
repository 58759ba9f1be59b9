// Package output provides formatting and output generation for normalized
// SIPp statistics.
package output

import (
	"errors"
	"math"
	"time"

	"github.com/ccollicutt/sippstat/pkg/normalize"
	"github.com/ccollicutt/sippstat/pkg/series"
)

// Report is the complete normalization output for one report file.
type Report struct {
	Summary Summary `json:"summary"`

	// Series holds the bucket columns and records; it decodes with
	// series.ReadJSON.
	Series *series.Series `json:"series"`

	// Distribution is the cumulative histogram of the last record, if any.
	Distribution *series.Distribution `json:"final_distribution,omitempty"`

	Diagnostics    []normalize.Diagnostic `json:"diagnostics"`
	SchemaWarnings []string               `json:"schema_warnings,omitempty"`

	Metadata Metadata `json:"metadata"`
}

// Summary provides aggregate statistics.
type Summary struct {
	RowsRead          int `json:"rows_read"`
	Records           int `json:"records"`
	RowsExcluded      int `json:"rows_excluded"`
	RowsOutsideWindow int `json:"rows_outside_window"`
	Diagnostics       int `json:"diagnostics"`

	// Empty is set when no record survived; EmptyReason tells why.
	Empty       bool   `json:"empty"`
	EmptyReason string `json:"empty_reason,omitempty"`

	FirstElapsedSeconds int64 `json:"first_elapsed_seconds"`
	LastElapsedSeconds  int64 `json:"last_elapsed_seconds"`

	MeanCallRate   float64 `json:"mean_call_rate"`
	PeakCallRate   float64 `json:"peak_call_rate"`
	MeanTargetRate float64 `json:"mean_target_rate"`

	// SuccessfulCalls and FailedCalls sum the per-interval counters.
	SuccessfulCalls int64 `json:"successful_calls"`
	FailedCalls     int64 `json:"failed_calls"`
}

// Metadata provides context about the normalization run.
type Metadata struct {
	// Source is the report file that was read.
	Source string `json:"source"`

	// ConfigFile is the path to the configuration file used, if any.
	ConfigFile string `json:"config_file,omitempty"`

	// Digest is the SHA-256 of the report bytes, used as the cache key.
	Digest string `json:"digest,omitempty"`

	// Window is the elapsed-time filter that was applied.
	Window string `json:"window"`

	// FromCache is set when the series was loaded from the cache.
	FromCache bool `json:"from_cache"`

	NormalizedAt time.Time     `json:"normalized_at"`
	Duration     time.Duration `json:"duration"`
}

// NewReport creates a Report from a build result.
func NewReport(result *series.Result, meta Metadata) *Report {
	s := result.Series
	if s == nil {
		s = &series.Series{}
	}
	meta.Window = result.Window.String()

	report := &Report{
		Series:         s,
		Diagnostics:    result.Diagnostics,
		SchemaWarnings: result.SchemaWarnings,
		Metadata:       meta,
		Summary: Summary{
			RowsRead:          result.RowsRead,
			Records:           s.Len(),
			RowsExcluded:      result.RowsExcluded,
			RowsOutsideWindow: result.RowsOutsideWindow,
			Diagnostics:       len(result.Diagnostics),
		},
	}
	if report.Diagnostics == nil {
		report.Diagnostics = []normalize.Diagnostic{}
	}

	if err := result.Err(); err != nil {
		var empty *series.EmptyResultError
		if errors.As(err, &empty) {
			report.Summary.Empty = true
			report.Summary.EmptyReason = string(empty.Reason)
		}
		return report
	}

	report.Distribution, _ = s.FinalDistribution()
	report.Summary.summarize(s)
	return report
}

func (sum *Summary) summarize(s *series.Series) {
	sum.FirstElapsedSeconds = s.Records[0].ElapsedSeconds
	sum.LastElapsedSeconds = s.Records[len(s.Records)-1].ElapsedSeconds
	sum.PeakCallRate = math.Inf(-1)

	var rate, target float64
	for _, rec := range s.Records {
		rate += rec.CallRate
		target += rec.TargetRate
		sum.PeakCallRate = math.Max(sum.PeakCallRate, rec.CallRate)
		sum.SuccessfulCalls += rec.SuccessfulCalls
		sum.FailedCalls += rec.FailedCalls
	}

	n := float64(len(s.Records))
	sum.MeanCallRate = rate / n
	sum.MeanTargetRate = target / n
}

// HasDiagnostics returns true if any row produced a diagnostic or the
// header is missing configured columns.
func (r *Report) HasDiagnostics() bool {
	return r.Summary.Diagnostics > 0 || len(r.SchemaWarnings) > 0
}

// IsEmpty returns true if the series has no records.
func (r *Report) IsEmpty() bool {
	return r.Summary.Empty
}
