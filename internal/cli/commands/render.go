package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/sippstat/pkg/render"
	"github.com/ccollicutt/sippstat/pkg/series"
)

// RenderOptions holds command-line options for the render command.
type RenderOptions struct {
	ConfigFile string
	EnvFile    string
	OutDir     string
	Prefix     string
	Min        int64
	Max        int64
}

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	opts := &RenderOptions{}

	cmd := &cobra.Command{
		Use:   "render <report-file>",
		Short: "Render PNG charts of a SIPp statistics report",
		Long: `Normalize a SIPp statistics report and draw PNG charts of it:

  <prefix>_call_rate.png     call rate and target rate
  <prefix>_calls.png         successful and failed calls per interval
  <prefix>_timing.png        average response time and call length (ms)
  <prefix>_distribution.png  final cumulative response-time distribution

The prefix defaults to the report file name without its extension.

Exit codes:
  0 - Charts written
  1 - No data in range
  2 - Configuration or runtime error`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "Configuration file (YAML or TOML)")
	cmd.Flags().StringVar(&opts.EnvFile, "env-file", "", "Load environment variables from a dotenv file")
	cmd.Flags().StringVarP(&opts.OutDir, "out-dir", "d", ".", "Directory to write charts into")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "Chart file name prefix")
	addWindowFlags(cmd, &opts.Min, &opts.Max)

	return cmd
}

func runRender(cmd *cobra.Command, args []string, opts *RenderOptions) error {
	ExitCode = 0
	reportFile := args[0]
	ctx := commandContext(cmd)

	cfg, err := loadConfig(ctx, opts.ConfigFile, opts.EnvFile)
	if err != nil {
		return err
	}

	window, err := resolveWindow(cmd, cfg, opts.Min, opts.Max)
	if err != nil {
		return err
	}

	delimiter, err := cfg.DelimiterRune()
	if err != nil {
		return fmt.Errorf("delimiter: %w", err)
	}

	_, table, err := readReport(reportFile, delimiter)
	if err != nil {
		return err
	}

	result, err := series.NewBuilder(cfg.SchemaColumns(), series.WithWindow(window)).Build(table)
	if result != nil {
		logResult(logrus.WithField("file", reportFile), result, false)
	}
	if err != nil {
		if series.IsEmptyResult(err) {
			ExitCode = 1
			return nil
		}
		return err
	}

	prefix := opts.Prefix
	if prefix == "" {
		base := filepath.Base(reportFile)
		prefix = strings.TrimSuffix(base, filepath.Ext(base))
	}

	paths, err := render.Render(ctx, result.Series, opts.OutDir, prefix)
	if err != nil {
		return fmt.Errorf("rendering charts: %w", err)
	}

	w := cmd.OutOrStdout()
	for _, p := range paths {
		fmt.Fprintf(w, "Wrote %s\n", p)
	}

	return nil
}
