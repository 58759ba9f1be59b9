package output

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ccollicutt/sippstat/pkg/fields"
	"github.com/ccollicutt/sippstat/pkg/normalize"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	s := report.Summary
	_, err := fmt.Fprintf(w, "sippstat: %s: %d records, %d rows excluded, %d outside window, %d diagnostics\n",
		report.Metadata.Source, s.Records, s.RowsExcluded, s.RowsOutsideWindow, s.Diagnostics)
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	fmt.Fprintf(w, "=== sippstat Report: %s ===\n", report.Metadata.Source)
	fmt.Fprintln(w)

	for _, warning := range report.SchemaWarnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
	if len(report.SchemaWarnings) > 0 {
		fmt.Fprintln(w)
	}

	if report.IsEmpty() {
		fmt.Fprintf(w, "No data in range (%s): window %s\n", report.Summary.EmptyReason, report.Metadata.Window)
		fmt.Fprintln(w)
	} else {
		if err := f.formatRecords(report, w); err != nil {
			return err
		}
		if err := f.formatDistribution(report, w); err != nil {
			return err
		}
	}

	f.formatDiagnostics(report, w)

	s := report.Summary
	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d rows read, %d records, %d rows excluded, %d outside window %s\n",
		s.RowsRead, s.Records, s.RowsExcluded, s.RowsOutsideWindow, report.Metadata.Window)
	if !s.Empty {
		fmt.Fprintf(w, "Call rate: mean %.2f, peak %.2f (target mean %.2f) over %ds-%ds\n",
			s.MeanCallRate, s.PeakCallRate, s.MeanTargetRate, s.FirstElapsedSeconds, s.LastElapsedSeconds)
		fmt.Fprintf(w, "Calls: %d successful, %d failed\n", s.SuccessfulCalls, s.FailedCalls)
	}

	if f.opts.Verbose {
		if report.Metadata.Digest != "" {
			fmt.Fprintf(w, "Digest: %s (cached: %t)\n", report.Metadata.Digest, report.Metadata.FromCache)
		}
		fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(1e6))
	}

	return nil
}

func (f *TextFormatter) formatRecords(report *Report, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ELAPSED\tTIME\tCALL RATE\tTARGET\tOK\tFAILED\tRESP (ms)\tLENGTH (ms)")
	for _, rec := range report.Series.Records {
		fmt.Fprintf(tw, "%ds\t%s\t%.3f\t%.3f\t%d\t%d\t%.3f\t%.3f\n",
			rec.ElapsedSeconds,
			formatTimestamp(rec.Timestamp, "15:04:05"),
			rec.CallRate,
			rec.TargetRate,
			rec.SuccessfulCalls,
			rec.FailedCalls,
			rec.ResponseTime.Milliseconds(),
			rec.CallLength.Milliseconds())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

func (f *TextFormatter) formatDistribution(report *Report, w io.Writer) error {
	d := report.Distribution
	if d == nil || len(d.Buckets) == 0 {
		return nil
	}

	fmt.Fprintf(w, "Response time distribution at %ds (cumulative since test start, %d calls):\n",
		d.ElapsedSeconds, d.Total())
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, b := range d.Buckets {
		fmt.Fprintf(tw, "  %s\t%d\n", b.Label, b.Count)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

func (f *TextFormatter) formatDiagnostics(report *Report, w io.Writer) {
	if len(report.Diagnostics) == 0 {
		return
	}

	fmt.Fprintf(w, "Diagnostics: %d\n", len(report.Diagnostics))
	for _, d := range report.Diagnostics {
		// excluded rows are always listed; fallbacks only when verbose
		if !d.Excluded() && !f.opts.Verbose {
			continue
		}
		fmt.Fprintf(w, "  - %s\n", describe(d))
	}
	fmt.Fprintln(w)
}

func describe(d normalize.Diagnostic) string {
	var b strings.Builder
	if d.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", d.Line)
	}
	b.WriteString(d.String())
	if d.Value != "" {
		fmt.Fprintf(&b, " (value %q)", d.Value)
	}
	return b.String()
}

func formatTimestamp(ts fields.Timestamp, layout string) string {
	if !ts.Valid {
		return "-"
	}
	return ts.Time.Format(layout)
}
