package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/sippstat/pkg/config"
	"github.com/ccollicutt/sippstat/pkg/parser"
	"github.com/ccollicutt/sippstat/pkg/series"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadConfig loads the optional dotenv file first so its variables take part
// in the environment overrides.
func loadConfig(ctx context.Context, configPath, envFile string) (*config.Config, error) {
	if envFile != "" {
		if err := config.LoadEnvFile(envFile); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// resolveWindow lets --min and --max override the configured bounds
// individually.
func resolveWindow(cmd *cobra.Command, cfg *config.Config, minSeconds, maxSeconds int64) (series.Window, error) {
	if cmd.Flags().Changed("min") {
		cfg.Window.Min = &minSeconds
	}
	if cmd.Flags().Changed("max") {
		cfg.Window.Max = &maxSeconds
	}

	w, err := cfg.SeriesWindow()
	if err != nil {
		return series.Window{}, fmt.Errorf("window: %w", err)
	}
	return w, nil
}

func addWindowFlags(cmd *cobra.Command, minSeconds, maxSeconds *int64) {
	cmd.Flags().Int64Var(minSeconds, "min", 0, "Lower elapsed-time bound in seconds (inclusive)")
	cmd.Flags().Int64Var(maxSeconds, "max", 0, "Upper elapsed-time bound in seconds (inclusive)")
}

// readReport reads a report file and splits it into a table. The raw bytes
// are returned for digesting.
func readReport(path string, delimiter rune) ([]byte, *parser.Table, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided report path is expected
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", parser.ErrUnreadableInput, err)
	}

	table, err := parser.ReadTable(bytes.NewReader(data), delimiter)
	if err != nil {
		return nil, nil, err
	}
	return data, table, nil
}
