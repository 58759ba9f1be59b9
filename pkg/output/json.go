package output

import (
	"context"
	"encoding/json"
	"io"
)

// JSONFormatter writes one JSON document per report. The series member
// decodes with series.ReadJSON.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// quietReport keeps the source next to the summary so several reports printed
// in quiet mode stay distinguishable.
type quietReport struct {
	Source  string  `json:"source"`
	Window  string  `json:"window"`
	Summary Summary `json:"summary"`
}

// Format renders the report as JSON. Quiet mode drops the series, the
// distribution and the diagnostics.
func (f *JSONFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if f.opts.Quiet {
		return encoder.Encode(quietReport{
			Source:  report.Metadata.Source,
			Window:  report.Metadata.Window,
			Summary: report.Summary,
		})
	}

	return encoder.Encode(report)
}
