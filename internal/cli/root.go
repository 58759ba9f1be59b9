// Package cli provides the command-line interface for sippstat.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/sippstat/internal/cli/commands"
	"github.com/ccollicutt/sippstat/internal/logging"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	rootCmd := NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	var logLevel, logFormat string

	rootCmd := &cobra.Command{
		Use:   "sippstat",
		Short: "Normalize SIPp statistics reports",
		Long: `sippstat reads the periodic statistics file written by the SIPp load
generator (-trace_stat) and turns it into a clean, chronologically ordered
time series.

Malformed cells are never silently zeroed: every fallback is reported as a
diagnostic, and rows missing a required field are excluded and listed.

The series can be printed as text, JSON, CSV or pgfplots tables, drawn as
PNG charts, cached in SQLite and posted to webhooks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(cmd.ErrOrStderr(), logFormat, logging.ParseLevel(logLevel))
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatText, "Log format (text|json)")

	// Add subcommands
	rootCmd.AddCommand(commands.NewNormalizeCommand())
	rootCmd.AddCommand(commands.NewRenderCommand())
	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
