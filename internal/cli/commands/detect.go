package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/sippstat/pkg/config"
	"github.com/ccollicutt/sippstat/pkg/schema"
)

// DetectOptions holds command-line options for the detect command.
type DetectOptions struct {
	Output      string
	Delimiter   string
	WriteConfig string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <report-file>",
		Short: "Detect the column layout of a SIPp statistics report",
		Long: `Read the header of a SIPp statistics report and match its columns against
the header names known from different SIPp versions.

Reports which logical field maps to which column, which columns are
missing, and the response-time histogram buckets in ascending order.
Prints a ready-to-use configuration snippet.

Optionally generates a starter config file with --write-config.

Example:
  sippstat detect uac_12345_.csv
  sippstat detect -o json uac_12345_.csv
  sippstat detect --write-config sippstat.yaml uac_12345_.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().StringVar(&opts.Delimiter, "delimiter", config.DefaultDelimiter, "Cell delimiter of the report")
	cmd.Flags().StringVarP(&opts.WriteConfig, "write-config", "w", "", "Write starter config to file (will not overwrite)")

	return cmd
}

// detection is the outcome of matching a header against the known aliases.
type detection struct {
	File    string
	Rows    int
	Header  []string
	Columns schema.Columns
	Schema  *schema.Schema
}

func runDetect(cmd *cobra.Command, args []string, opts *DetectOptions) error {
	reportFile := args[0]

	if _, err := os.Stat(reportFile); os.IsNotExist(err) {
		return fmt.Errorf("report file not found: %s", reportFile)
	}

	delimCfg := config.DefaultConfig()
	delimCfg.Delimiter = opts.Delimiter
	delimiter, err := delimCfg.DelimiterRune()
	if err != nil {
		return fmt.Errorf("delimiter: %w", err)
	}

	_, table, err := readReport(reportFile, delimiter)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	cols := schema.SuggestColumns(table.Header)
	s, err := schema.Detect(table.Header, cols)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	d := &detection{
		File:    reportFile,
		Rows:    len(table.Rows),
		Header:  table.Header,
		Columns: cols,
		Schema:  s,
	}

	w := cmd.OutOrStdout()

	if opts.WriteConfig != "" {
		if err := writeStarterConfig(w, d, opts.Delimiter, opts.WriteConfig); err != nil {
			return err
		}
	}

	switch opts.Output {
	case "json":
		return outputDetectJSON(w, d)
	case "text":
		return outputDetectText(w, d, opts.Delimiter)
	default:
		return fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
	}
}

func outputDetectText(w io.Writer, d *detection, delimiter string) error {
	fmt.Fprintln(w, "=== SIPp Column Detection ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "File: %s\n", d.File)
	fmt.Fprintf(w, "Header columns: %d\n", len(d.Header))
	fmt.Fprintf(w, "Data rows: %d\n", d.Rows)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Resolved columns:")
	for _, f := range schema.AllFields() {
		col, ok := d.Schema.Column(f)
		if !ok {
			col = "(not found; looked for " + strings.Join(schema.Aliases(f), ", ") + ")"
		}
		fmt.Fprintf(w, "  %-18s %s\n", f, col)
	}
	fmt.Fprintln(w)

	if d.Columns.HistogramPrefix == "" {
		fmt.Fprintln(w, "No response-time histogram columns detected.")
	} else {
		fmt.Fprintf(w, "Histogram (%s), ascending:\n", d.Columns.HistogramPrefix)
		for i, b := range d.Schema.Histogram {
			fmt.Fprintf(w, "  %d. %-12s %s\n", i+1, b.Label, bucketBound(b))
		}
	}
	fmt.Fprintln(w)

	if missing := d.Schema.MissingRequired(); len(missing) > 0 {
		fmt.Fprintf(w, "WARNING: no known column for required field(s): %s\n", joinFields(missing))
		fmt.Fprintln(w, "Set them by hand under columns: in the configuration.")
		fmt.Fprintln(w)
	}

	snippet, err := config.Marshal(starterConfig(d, delimiter))
	if err != nil {
		return fmt.Errorf("encoding config snippet: %w", err)
	}

	fmt.Fprintln(w, "--- Configuration snippet (copy to your config file) ---")
	fmt.Fprintln(w)
	_, err = w.Write(snippet)
	return err
}

func bucketBound(b schema.BucketColumn) string {
	if b.Open {
		return "open-ended"
	}
	return fmt.Sprintf("< %d ms", b.UpperBoundMs)
}

func joinFields(fs []schema.Field) string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// JSONBucket represents a histogram column in JSON output.
type JSONBucket struct {
	Column       string `json:"column"`
	Label        string `json:"label"`
	UpperBoundMs int64  `json:"upper_bound_ms"`
	Open         bool   `json:"open"`
}

// JSONDetection represents the full JSON output.
type JSONDetection struct {
	File            string            `json:"file"`
	HeaderColumns   int               `json:"header_columns"`
	DataRows        int               `json:"data_rows"`
	Columns         map[string]string `json:"columns"`
	MissingRequired []string          `json:"missing_required"`
	MissingOptional []string          `json:"missing_optional"`
	HistogramPrefix string            `json:"histogram_prefix,omitempty"`
	Histogram       []JSONBucket      `json:"histogram"`
}

func outputDetectJSON(w io.Writer, d *detection) error {
	out := JSONDetection{
		File:            d.File,
		HeaderColumns:   len(d.Header),
		DataRows:        d.Rows,
		Columns:         make(map[string]string),
		MissingRequired: make([]string, 0),
		MissingOptional: make([]string, 0),
		HistogramPrefix: d.Columns.HistogramPrefix,
		Histogram:       make([]JSONBucket, 0, len(d.Schema.Histogram)),
	}

	for _, f := range schema.AllFields() {
		if col, ok := d.Schema.Column(f); ok {
			out.Columns[string(f)] = col
		}
	}
	for _, f := range d.Schema.MissingRequired() {
		out.MissingRequired = append(out.MissingRequired, string(f))
	}
	for _, f := range d.Schema.MissingOptional() {
		out.MissingOptional = append(out.MissingOptional, string(f))
	}
	for _, b := range d.Schema.Histogram {
		out.Histogram = append(out.Histogram, JSONBucket{
			Column:       b.Column,
			Label:        b.Label,
			UpperBoundMs: b.UpperBoundMs,
			Open:         b.Open,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func starterConfig(d *detection, delimiter string) *config.Config {
	cfg := config.FromColumns(d.Columns)
	cfg.Delimiter = delimiter
	return cfg
}

// writeStarterConfig writes a config with the detected column names.
func writeStarterConfig(w io.Writer, d *detection, delimiter, configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s (will not overwrite)", configPath)
	}

	if missing := d.Schema.MissingRequired(); len(missing) > 0 {
		return fmt.Errorf("cannot generate config: no column found for %s", joinFields(missing))
	}

	body, err := config.Marshal(starterConfig(d, delimiter))
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	absFile := d.File
	if abs, err := filepath.Abs(d.File); err == nil {
		absFile = abs
	}

	header := fmt.Sprintf(`# sippstat configuration
# Generated by: sippstat detect
# Source report: %s
#
# Optional settings:
# window:
#   min: 0
#   max: 100
# cache:
#   path: ~/.cache/sippstat/series.db
# webhooks:
#   - name: ci
#     url: https://example.com/hooks/sipp
#     trigger: on_diagnostics

`, absFile)

	// #nosec G306 - config file doesn't need restrictive permissions
	if err := os.WriteFile(configPath, append([]byte(header), body...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(w, "Wrote starter config to: %s\n\n", configPath)
	return nil
}
