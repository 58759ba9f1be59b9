package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/sippstat/pkg/schema"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a sippstat configuration file without reading any report.

Checks:
  - YAML or TOML syntax (chosen by file extension)
  - Required column names
  - Delimiter and window bounds
  - Webhook URLs and triggers`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := commandContext(cmd)
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Validating %s...\n", configPath)

	cfg, err := loadConfig(ctx, configPath, "")
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	window, err := cfg.SeriesWindow()
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(w, "\nConfiguration valid!\n")
	fmt.Fprintf(w, "  Delimiter:        %q\n", cfg.Delimiter)
	fmt.Fprintf(w, "  Histogram prefix: %s\n", cfg.HistogramPrefix)
	fmt.Fprintf(w, "  Window:           %s\n", window)
	if cfg.Cache.Path != "" {
		fmt.Fprintf(w, "  Cache:            %s\n", cfg.Cache.Path)
	}
	fmt.Fprintf(w, "  Webhooks:         %d\n", len(cfg.Webhooks))

	cols := cfg.SchemaColumns()
	fmt.Fprintf(w, "\nColumns:\n")
	for _, f := range schema.AllFields() {
		name := cols.Name(f)
		if name == "" {
			name = "(not used)"
		}
		fmt.Fprintf(w, "  %-18s %s\n", f, name)
	}

	for i, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}
		if i == 0 {
			fmt.Fprintf(w, "\nWebhooks:\n")
		}
		fmt.Fprintf(w, "  %d. [%s] %s\n", i+1, wh.Trigger, name)
	}

	return nil
}
