package output

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/ccollicutt/sippstat/pkg/fields"
)

// CSVFormatter writes the normalized series as a table, one row per record
// with the histogram columns last.
type CSVFormatter struct {
	opts FormatOptions
}

// NewCSVFormatter creates a new CSV formatter with the given options.
func NewCSVFormatter(opts FormatOptions) *CSVFormatter {
	return &CSVFormatter{opts: opts}
}

// Name returns the format name.
func (f *CSVFormatter) Name() string {
	return "csv"
}

// Format renders the report's series as CSV.
func (f *CSVFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	cw := csv.NewWriter(w)

	header := []string{
		"elapsed_seconds",
		"timestamp",
		"call_rate",
		"target_rate",
		"successful_calls",
		"failed_calls",
		"response_time_ms",
		"call_length_ms",
	}
	for _, col := range report.Series.Columns {
		header = append(header, col.Label)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, rec := range report.Series.Records {
		row := []string{
			strconv.FormatInt(rec.ElapsedSeconds, 10),
			formatCSVTimestamp(rec.Timestamp),
			formatFloat(rec.CallRate),
			formatFloat(rec.TargetRate),
			strconv.FormatInt(rec.SuccessfulCalls, 10),
			strconv.FormatInt(rec.FailedCalls, 10),
			formatFloat(rec.ResponseTime.Milliseconds()),
			formatFloat(rec.CallLength.Milliseconds()),
		}
		for _, b := range rec.Histogram {
			row = append(row, strconv.FormatInt(b.Count, 10))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatCSVTimestamp(ts fields.Timestamp) string {
	if !ts.Valid {
		return ""
	}
	return ts.Time.Format(fields.TimestampLayout)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
