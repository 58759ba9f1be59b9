package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ccollicutt/sippstat/pkg/cache"
	"github.com/ccollicutt/sippstat/pkg/config"
	"github.com/ccollicutt/sippstat/pkg/output"
	"github.com/ccollicutt/sippstat/pkg/parser"
	"github.com/ccollicutt/sippstat/pkg/schema"
	"github.com/ccollicutt/sippstat/pkg/series"
	"github.com/ccollicutt/sippstat/pkg/webhook"
)

// NormalizeOptions holds command-line options for the normalize command.
type NormalizeOptions struct {
	ConfigFile string
	EnvFile    string
	Output     string
	Min        int64
	Max        int64
	CachePath  string
	Parallel   int
	Verbose    bool
	Quiet      bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewNormalizeCommand creates the normalize command.
func NewNormalizeCommand() *cobra.Command {
	opts := &NormalizeOptions{}

	cmd := &cobra.Command{
		Use:   "normalize <report-file|glob>...",
		Short: "Normalize SIPp statistics reports into a time series",
		Long: `Normalize one or more SIPp statistics files (the -trace_stat output) into
chronologically ordered records.

Rows missing a required field (elapsed time, call rate, target rate) are
excluded; malformed optional cells fall back to zero and are reported as
diagnostics. Several files are normalized in parallel and printed in file
order.

Exit codes:
  0 - Series produced for every report
  1 - At least one report had no data in range
  2 - Configuration or runtime error`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "Configuration file (YAML or TOML)")
	cmd.Flags().StringVar(&opts.EnvFile, "env-file", "", "Load environment variables from a dotenv file")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (csv|json|latex|text)")
	addWindowFlags(cmd, &opts.Min, &opts.Max)
	cmd.Flags().StringVar(&opts.CachePath, "cache", "", "SQLite cache file (overrides cache.path)")
	cmd.Flags().IntVarP(&opts.Parallel, "parallel", "p", runtime.NumCPU(), "Maximum reports normalized at once")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show every diagnostic")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", string(config.WebhookTriggerOnDiagnostics), "When to fire webhook (on_diagnostics|always|never)")

	return cmd
}

func runNormalize(cmd *cobra.Command, args []string, opts *NormalizeOptions) error {
	ExitCode = 0
	ctx := commandContext(cmd)

	cfg, err := loadConfig(ctx, opts.ConfigFile, opts.EnvFile)
	if err != nil {
		return err
	}

	window, err := resolveWindow(cmd, cfg, opts.Min, opts.Max)
	if err != nil {
		return err
	}

	formatter, err := output.New(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
	if err != nil {
		return err
	}

	webhooks, err := collectWebhooks(cfg, opts)
	if err != nil {
		return err
	}

	files, err := parser.ExpandGlobs(args)
	if err != nil {
		return fmt.Errorf("expanding report paths: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no report files matched patterns: %v", args)
	}

	delimiter, err := cfg.DelimiterRune()
	if err != nil {
		return fmt.Errorf("delimiter: %w", err)
	}

	n := &normalizer{
		configFile: opts.ConfigFile,
		columns:    cfg.SchemaColumns(),
		delimiter:  delimiter,
		window:     window,
	}

	cachePath := cfg.Cache.Path
	if opts.CachePath != "" {
		cachePath = opts.CachePath
	}
	if cachePath != "" {
		store, err := cache.Open(cachePath)
		if err != nil {
			return err
		}
		defer store.Close()
		n.store = store
	}

	reports, err := n.normalizeAll(ctx, files, opts.Parallel)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, report := range reports {
		if err := formatter.Format(ctx, report, w); err != nil {
			return fmt.Errorf("formatting output: %w", err)
		}
	}

	// Send webhooks (errors logged but don't fail normalization)
	sendWebhooks(ctx, webhooks, reports)

	for _, report := range reports {
		if report.IsEmpty() {
			ExitCode = 1
		}
	}

	return nil
}

// normalizer turns report files into reports. It holds no per-file state and
// is shared by the worker goroutines.
type normalizer struct {
	configFile string
	columns    schema.Columns
	delimiter  rune
	window     series.Window
	store      *cache.Store
}

// normalizeAll processes files concurrently and returns the reports in the
// order of files. The first hard error cancels the remaining work.
func (n *normalizer) normalizeAll(ctx context.Context, files []string, parallel int) ([]*output.Report, error) {
	if parallel < 1 {
		parallel = 1
	}

	reports := make([]*output.Report, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			report, err := n.normalizeFile(gctx, file)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (n *normalizer) normalizeFile(ctx context.Context, path string) (*output.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	log := logrus.WithField("file", path)

	data, err := os.ReadFile(path) // #nosec G304 -- user-provided report path is expected
	if err != nil {
		return nil, fmt.Errorf("%w: %v", parser.ErrUnreadableInput, err)
	}

	digest := cache.Digest(data)
	key := cache.Key(digest, n.columns, n.delimiter)

	full := n.cached(ctx, log, key)
	fromCache := full != nil
	if full == nil {
		table, err := parser.ReadTable(bytes.NewReader(data), n.delimiter)
		if err != nil {
			return nil, err
		}

		full, err = series.NewBuilder(n.columns).Build(table)
		if err != nil && !series.IsEmptyResult(err) {
			return nil, err
		}
		n.save(ctx, log, key, path, full)
	}

	result, err := full.Windowed(n.window)
	if err != nil && !series.IsEmptyResult(err) {
		return nil, err
	}

	logResult(log, result, fromCache)

	return output.NewReport(result, output.Metadata{
		Source:       path,
		ConfigFile:   n.configFile,
		Digest:       digest,
		FromCache:    fromCache,
		NormalizedAt: start,
		Duration:     time.Since(start),
	}), nil
}

// cached returns the stored unwindowed result for key, or nil. Cache failures
// are logged and treated as a miss.
func (n *normalizer) cached(ctx context.Context, log *logrus.Entry, key string) *series.Result {
	if n.store == nil {
		return nil
	}

	result, err := n.store.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			log.WithError(err).Warn("Cache lookup failed, reading report")
		}
		return nil
	}

	log.Debug("Loaded series from cache")
	return result
}

func (n *normalizer) save(ctx context.Context, log *logrus.Entry, key, source string, result *series.Result) {
	if n.store == nil {
		return
	}
	if err := n.store.Save(ctx, key, source, result); err != nil {
		log.WithError(err).Warn("Failed to cache series")
	}
}

func logResult(log *logrus.Entry, result *series.Result, fromCache bool) {
	for _, w := range result.SchemaWarnings {
		log.Warn(w)
	}

	for _, d := range result.Diagnostics {
		entry := log.WithFields(logrus.Fields{
			"row":  d.Row,
			"kind": d.Kind,
		})
		if d.Line > 0 {
			entry = entry.WithField("line", d.Line)
		}
		if d.Column != "" {
			entry = entry.WithField("column", d.Column)
		}
		if d.Excluded() {
			entry.Warn("Row excluded: " + d.Reason)
		} else {
			entry.Warn(d.Reason)
		}
	}

	entry := log.WithFields(logrus.Fields{
		"rows":       result.RowsRead,
		"records":    result.Series.Len(),
		"excluded":   result.RowsExcluded,
		"window":     result.Window.String(),
		"from_cache": fromCache,
	})
	if err := result.Err(); err != nil {
		entry.Warn(err.Error())
		return
	}
	entry.Info("Report normalized")
}

// sendWebhooks sends every report to all configured webhooks.
// Errors are logged but don't fail normalization.
func sendWebhooks(ctx context.Context, webhooks []config.WebhookConfig, reports []*output.Report) {
	if len(webhooks) == 0 {
		return
	}

	client := webhook.NewClient()

	for _, report := range reports {
		for _, wh := range webhooks {
			if !webhook.ShouldFire(wh.Trigger, report) {
				continue
			}

			resp := client.Send(ctx, report, webhook.SendOptions{
				URL:     wh.URL,
				Token:   wh.Token,
				Timeout: wh.Timeout.Std(),
			})

			name := wh.Name
			if name == "" {
				name = wh.URL
			}

			log := logrus.WithFields(logrus.Fields{
				"webhook": name,
				"file":    report.Metadata.Source,
			})
			if resp.Success() {
				log.WithFields(logrus.Fields{
					"status":   resp.StatusCode,
					"duration": resp.Duration,
				}).Info("Webhook sent")
			} else {
				log.WithError(resp.Error).Warn("Webhook failed")
			}
		}
	}
}

// collectWebhooks merges config file webhooks with CLI webhook. The CLI
// webhook goes through the same validation as a configured one.
func collectWebhooks(cfg *config.Config, opts *NormalizeOptions) ([]config.WebhookConfig, error) {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)

	webhooks = append(webhooks, cfg.Webhooks...)

	if opts.WebhookURL != "" {
		wh := config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: config.WebhookTrigger(opts.WebhookTrigger),
		}
		if err := config.ValidateWebhook(&wh); err != nil {
			return nil, fmt.Errorf("--webhook-url/--webhook-trigger: %w", err)
		}
		webhooks = append(webhooks, wh)
	}

	return webhooks, nil
}
