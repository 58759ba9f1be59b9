package output

import (
	"context"
	"fmt"
	"io"
	"strconv"
)

// LaTeXFormatter writes pgfplots \addplot blocks of the call rate and the
// target rate against elapsed seconds, ready to paste into an axis
// environment.
type LaTeXFormatter struct {
	opts FormatOptions
}

// NewLaTeXFormatter creates a new LaTeX formatter with the given options.
func NewLaTeXFormatter(opts FormatOptions) *LaTeXFormatter {
	return &LaTeXFormatter{opts: opts}
}

// Name returns the format name.
func (f *LaTeXFormatter) Name() string {
	return "latex"
}

type plotSpec struct {
	comment string
	options string
	legend  string
	value   func(i int) float64
}

// Format renders the report as pgfplots tables.
func (f *LaTeXFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	records := report.Series.Records

	fmt.Fprintf(w, "%% sippstat: %s, window %s\n", report.Metadata.Source, report.Metadata.Window)
	if len(records) == 0 {
		_, err := io.WriteString(w, "% no data in range\n")
		return err
	}
	if !f.opts.Quiet {
		fmt.Fprintf(w, "%% Peak call rate %s, set ymax in your axis environment accordingly.\n",
			formatFloat(report.Summary.PeakCallRate))
	}
	fmt.Fprintln(w)

	plots := []plotSpec{
		{
			comment: "CallRate",
			options: "color=mycolor3, thick, mark=*, mark size=1.0pt",
			legend:  "Call Rate (P)",
			value:   func(i int) float64 { return records[i].CallRate },
		},
		{
			comment: "TargetRate",
			options: "color=red, dashed, thick",
			legend:  "Target Rate",
			value:   func(i int) float64 { return records[i].TargetRate },
		},
	}

	for i, p := range plots {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%% Plotting %s\n", p.comment)
		fmt.Fprintf(w, "\\addplot [%s]\n", p.options)
		fmt.Fprintln(w, "  table[row sep=crcr]{%")
		fmt.Fprintln(w, `x    y\\`)
		for j, rec := range records {
			fmt.Fprintf(w, "%s    %s\\\\\n", strconv.FormatInt(rec.ElapsedSeconds, 10), formatFloat(p.value(j)))
		}
		fmt.Fprintln(w, "};")
		if _, err := fmt.Fprintf(w, "\\addlegendentry{%s}\n", p.legend); err != nil {
			return err
		}
	}

	return nil
}
