package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/sippstat/pkg/cache"
	"github.com/ccollicutt/sippstat/pkg/config"
	"github.com/ccollicutt/sippstat/pkg/normalize"
	"github.com/ccollicutt/sippstat/pkg/parser"
	"github.com/ccollicutt/sippstat/pkg/schema"
	"github.com/ccollicutt/sippstat/pkg/series"
)

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	ConfigFile string
	Verbose    bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <report-file>",
		Short: "Diagnose a report against the configuration",
		Long: `Diagnose common problems between a SIPp statistics report and the
configuration used to read it.

This command checks:
- Config file syntax and structure
- Report file existence and readability
- Configured column names against the report header
- Response-time histogram columns
- How many rows parse cleanly
- Cache database and webhook settings

Example:
  sippstat diagnose uac_12345_.csv
  sippstat diagnose -c sippstat.yaml -v uac_12345_.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(commandContext(cmd), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "Configuration file (YAML or TOML)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, reportFile string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	// 1. Configuration
	var cfg *config.Config
	if opts.ConfigFile == "" {
		cfg = config.DefaultConfig()
		if err := config.Validate(cfg); err != nil {
			return err
		}
		results = append(results, DiagnosticResult{
			Check:   "Config",
			Status:  "ok",
			Message: "No config file given, using stock SIPp column names",
		})
	} else {
		result := checkConfigExists(opts.ConfigFile)
		results = append(results, result)
		if result.Status == "error" {
			printDiagnostics(w, results, opts)
			return nil
		}

		cfg, result = checkConfigParseable(ctx, opts.ConfigFile)
		results = append(results, result)
		if result.Status == "error" {
			printDiagnostics(w, results, opts)
			return nil
		}
	}

	// 2. Report file
	result := checkReportFile(reportFile)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 3. Header and rows
	table, result := checkReadable(reportFile, cfg)
	results = append(results, result)
	if table != nil {
		results = append(results, checkColumns(table, cfg)...)
		results = append(results, checkHistogram(table, cfg, opts))
		results = append(results, checkRows(table, cfg, opts))
	}

	// 4. Cache
	results = append(results, checkCache(cfg, opts)...)

	// 5. Webhooks
	results = append(results, checkWebhooks(cfg, opts)...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Use 'sippstat detect <report-file> --write-config sippstat.yaml' to generate a starter config",
		}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "error"
		result.Message = "Config file is empty"
		result.Suggests = []string{
			"Use 'sippstat detect <report-file> --write-config sippstat.yaml' to generate a starter config",
		}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to parse config: %v", err)
		switch {
		case strings.Contains(err.Error(), "yaml"):
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		case strings.Contains(err.Error(), "toml"):
			result.Suggests = []string{
				"Check TOML syntax and that every key is a known setting",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Config file parsed successfully"
	window, _ := cfg.SeriesWindow()
	result.Details = []string{
		fmt.Sprintf("Delimiter: %q", cfg.Delimiter),
		fmt.Sprintf("Histogram prefix: %s", cfg.HistogramPrefix),
		fmt.Sprintf("Window: %s", window),
		fmt.Sprintf("Webhooks: %d", len(cfg.Webhooks)),
	}
	return cfg, result
}

func checkReportFile(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: fmt.Sprintf("Report: %s", path),
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		result.Status = "error"
		result.Message = "File does not exist"
		result.Suggests = []string{
			"Check if the report path is correct",
			"SIPp writes statistics only when started with -trace_stat",
		}
	case err != nil:
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access file: %v", err)
		result.Suggests = []string{"Check file permissions"}
	case info.IsDir():
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
	case info.Size() == 0:
		result.Status = "error"
		result.Message = "File is empty (0 bytes)"
		result.Suggests = []string{"SIPp writes the header at the first statistics period (-fd)"}
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("File exists (%d bytes)", info.Size())
	}

	return result
}

func checkReadable(path string, cfg *config.Config) (*parser.Table, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Report Format",
	}

	delimiter, _ := cfg.DelimiterRune()
	_, table, err := readReport(path, delimiter)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot read report: %v", err)
		result.Suggests = []string{
			fmt.Sprintf("Check the delimiter setting (currently %q)", cfg.Delimiter),
		}
		return nil, result
	}

	if len(table.Header) < 2 {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Header has only %d column(s)", len(table.Header))
		result.Suggests = []string{
			fmt.Sprintf("The delimiter %q may not match the report", cfg.Delimiter),
		}
		return table, result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("%d header columns, %d data rows", len(table.Header), len(table.Rows))
	return table, result
}

func checkColumns(table *parser.Table, cfg *config.Config) []DiagnosticResult {
	cols := cfg.SchemaColumns()
	s, err := schema.Detect(table.Header, cols)
	if err != nil {
		return []DiagnosticResult{{
			Check:   "Columns",
			Status:  "error",
			Message: err.Error(),
		}}
	}

	suggested := schema.SuggestColumns(table.Header)
	results := []DiagnosticResult{}

	required := DiagnosticResult{Check: "Required Columns"}
	if missing := s.MissingRequired(); len(missing) > 0 {
		required.Status = "error"
		required.Message = fmt.Sprintf("%d required column(s) not in header", len(missing))
		for _, f := range missing {
			required.Details = append(required.Details, fmt.Sprintf("%s: %q", f, cols.Name(f)))
			if alt := suggested.Name(f); alt != "" {
				required.Suggests = append(required.Suggests, fmt.Sprintf("Set columns.%s to %q", f, alt))
			}
		}
		if len(required.Suggests) == 0 {
			required.Suggests = []string{"Use 'sippstat detect <report-file>' to see the header columns"}
		}
	} else {
		required.Status = "ok"
		required.Message = "Elapsed time, call rate and target rate found"
	}
	results = append(results, required)

	optional := DiagnosticResult{Check: "Optional Columns"}
	var absent []string
	for _, f := range s.MissingOptional() {
		if cols.Name(f) == "" {
			continue
		}
		absent = append(absent, fmt.Sprintf("%s: %q", f, cols.Name(f)))
		if alt := suggested.Name(f); alt != "" {
			optional.Suggests = append(optional.Suggests, fmt.Sprintf("Set columns.%s to %q", f, alt))
		}
	}
	if len(absent) > 0 {
		optional.Status = "warning"
		optional.Message = fmt.Sprintf("%d optional column(s) not in header, values will be zero", len(absent))
		optional.Details = absent
	} else {
		optional.Status = "ok"
		optional.Message = "All configured optional columns found"
	}
	results = append(results, optional)

	return results
}

func checkHistogram(table *parser.Table, cfg *config.Config, opts *DiagnoseOptions) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Histogram",
	}

	prefix := strings.TrimSpace(cfg.HistogramPrefix)
	if prefix == "" {
		result.Status = "ok"
		result.Message = "No histogram prefix configured"
		return result
	}

	buckets := schema.ClassifyHistogram(table.Header, prefix)
	if len(buckets) == 0 {
		result.Status = "warning"
		result.Message = fmt.Sprintf("No columns named %s_<bucket>", prefix)
		if alt := schema.SuggestColumns(table.Header).HistogramPrefix; alt != "" && alt != prefix {
			result.Suggests = []string{fmt.Sprintf("Set histogram_prefix to %q", alt)}
		}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("%d bucket column(s)", len(buckets))
	open := 0
	for _, b := range buckets {
		if b.Open {
			open++
		}
		if opts.Verbose {
			result.Details = append(result.Details, fmt.Sprintf("%s (%s)", b.Label, bucketBound(b)))
		}
	}
	if open > 1 {
		result.Status = "warning"
		result.Message = fmt.Sprintf("%d bucket column(s), %d without a parseable bound", len(buckets), open)
		result.Suggests = []string{"Unparseable bucket labels are ordered last, in header order"}
	}

	return result
}

func checkRows(table *parser.Table, cfg *config.Config, opts *DiagnoseOptions) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Rows",
	}

	window, _ := cfg.SeriesWindow()
	built, err := series.NewBuilder(cfg.SchemaColumns(), series.WithWindow(window)).Build(table)
	if built == nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot normalize: %v", err)
		return result
	}

	malformed := 0
	for _, d := range built.Diagnostics {
		if d.Kind == normalize.KindMalformedField {
			malformed++
		}
	}

	result.Details = []string{
		fmt.Sprintf("Rows read: %d", built.RowsRead),
		fmt.Sprintf("Rows excluded: %d", built.RowsExcluded),
		fmt.Sprintf("Rows outside window %s: %d", built.Window, built.RowsOutsideWindow),
		fmt.Sprintf("Malformed optional cells: %d", malformed),
	}
	if opts.Verbose {
		for _, d := range built.Diagnostics {
			result.Details = append(result.Details, truncate(d.String(), 100))
		}
	}

	switch {
	case err != nil:
		result.Status = "error"
		result.Message = err.Error()
		if series.IsEmptyResult(err) && built.ValidRows() > 0 {
			result.Suggests = []string{"Widen the window with --min/--max or window.min/window.max"}
		}
	case built.RowsExcluded > 0 || malformed > 0:
		result.Status = "warning"
		result.Message = fmt.Sprintf("%d of %d rows usable, %d malformed cell(s)", built.ValidRows(), built.RowsRead, malformed)
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("%d record(s) in %s", built.Series.Len(), built.Window)
	}

	return result
}

func checkCache(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	if cfg.Cache.Path == "" {
		if opts.Verbose {
			return []DiagnosticResult{{
				Check:   "Cache",
				Status:  "ok",
				Message: "No cache configured (optional)",
			}}
		}
		return nil
	}

	result := DiagnosticResult{
		Check: fmt.Sprintf("Cache: %s", cfg.Cache.Path),
	}

	store, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot open cache: %v", err)
		result.Suggests = []string{"Normalization still works, reports are re-read every time"}
		return []DiagnosticResult{result}
	}
	_ = store.Close()

	result.Status = "ok"
	result.Message = "Cache database is usable"
	return []DiagnosticResult{result}
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== sippstat Report Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	// Summary
	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Fprintln(w, "\nFix the errors above before normalizing.")
	} else if warnCount > 0 {
		fmt.Fprintln(w, "\nReport is usable but has warnings.")
	} else {
		fmt.Fprintln(w, "\nReport and configuration look good!")
	}
}

func checkWebhooks(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		// Webhooks are optional, just note they're not configured
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  "ok",
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	for _, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		result := DiagnosticResult{
			Check: fmt.Sprintf("Webhook: %s", name),
		}

		issues := []string{}
		warnings := []string{}

		if wh.URL == "" {
			issues = append(issues, "Missing url")
		} else {
			u, err := url.Parse(wh.URL)
			if err != nil {
				issues = append(issues, fmt.Sprintf("Invalid URL: %v", err))
			} else if u.Scheme != "http" && u.Scheme != "https" {
				issues = append(issues, fmt.Sprintf("URL scheme must be http or https, got %q", u.Scheme))
			} else if u.Host == "" {
				issues = append(issues, "URL must have a host")
			}
		}

		if wh.Trigger != "" {
			switch wh.Trigger {
			case config.WebhookTriggerOnDiagnostics, config.WebhookTriggerAlways, config.WebhookTriggerNever:
			default:
				issues = append(issues, fmt.Sprintf("Invalid trigger %q (use on_diagnostics, always, or never)", wh.Trigger))
			}
		}

		// Check if token looks like an unexpanded env var
		if strings.HasPrefix(wh.Token, "$") {
			warnings = append(warnings, fmt.Sprintf("Token appears to be an unresolved env var: %s", wh.Token))
		}

		if len(issues) > 0 {
			result.Status = "error"
			result.Message = fmt.Sprintf("%d configuration issue(s)", len(issues))
			result.Details = issues
		} else if len(warnings) > 0 {
			result.Status = "warning"
			result.Message = fmt.Sprintf("%d warning(s)", len(warnings))
			result.Details = warnings
		} else {
			result.Status = "ok"
			result.Message = fmt.Sprintf("Trigger: %s", wh.Trigger)
			if opts.Verbose {
				result.Details = []string{
					fmt.Sprintf("URL: %s", wh.URL),
					fmt.Sprintf("Timeout: %s", wh.Timeout.Std()),
				}
				if wh.Token != "" {
					result.Details = append(result.Details, "Token: configured")
				}
			}
		}

		results = append(results, result)
	}

	// Optionally test webhook connectivity
	if opts.Verbose {
		for _, wh := range cfg.Webhooks {
			if wh.URL == "" {
				continue
			}

			name := wh.Name
			if name == "" {
				name = wh.URL
			}

			result := checkWebhookConnectivity(wh)
			result.Check = fmt.Sprintf("Webhook Connectivity: %s", name)
			results = append(results, result)
		}
	}

	return results
}

func checkWebhookConnectivity(wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	// HEAD only; the real delivery is a POST
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = "ok"
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may require POST method (will work during actual webhook send)",
			"Check authentication if using a token",
		}
	}

	return result
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
