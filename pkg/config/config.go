package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/sippstat/pkg/schema"
	"github.com/ccollicutt/sippstat/pkg/series"
)

// Load reads and validates a configuration file. An empty path yields the
// defaults with environment overrides applied.
func Load(_ context.Context, path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// decode picks the format from the file extension; anything but .toml is YAML.
func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

// LoadEnvFile loads KEY=value pairs from a dotenv file into the process
// environment. Variables that are already set keep their value.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// Validate checks a configuration for errors and fills in webhook defaults.
func Validate(cfg *Config) error {
	if err := validateColumns(&cfg.Columns); err != nil {
		return fmt.Errorf("columns: %w", err)
	}

	if _, err := cfg.DelimiterRune(); err != nil {
		return fmt.Errorf("delimiter: %w", err)
	}

	if _, err := cfg.SeriesWindow(); err != nil {
		return fmt.Errorf("window: %w", err)
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := ValidateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

func validateColumns(c *ColumnsConfig) error {
	required := []struct {
		key, value string
	}{
		{"elapsed_time", c.ElapsedTime},
		{"call_rate", c.CallRate},
		{"target_rate", c.TargetRate},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%s is required", r.key)
		}
	}
	return nil
}

// DelimiterRune returns the configured delimiter as a rune.
func (c *Config) DelimiterRune() (rune, error) {
	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return 0, fmt.Errorf("must be a single character, got %q", c.Delimiter)
	}
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	if r == '\n' || r == '\r' || r == '"' || r == utf8.RuneError {
		return 0, fmt.Errorf("invalid delimiter %q", c.Delimiter)
	}
	return r, nil
}

// SeriesWindow converts the window bounds, treating missing ones as open.
func (c *Config) SeriesWindow() (series.Window, error) {
	w := series.Unbounded()
	if c.Window.Min == nil && c.Window.Max == nil {
		return w, nil
	}

	lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
	if c.Window.Min != nil {
		lo = *c.Window.Min
	}
	if c.Window.Max != nil {
		hi = *c.Window.Max
	}
	return series.NewWindow(lo, hi)
}

// SchemaColumns returns the column mapping used for schema detection.
func (c *Config) SchemaColumns() schema.Columns {
	return schema.Columns{
		ElapsedTime:     strings.TrimSpace(c.Columns.ElapsedTime),
		CallRate:        strings.TrimSpace(c.Columns.CallRate),
		TargetRate:      strings.TrimSpace(c.Columns.TargetRate),
		CurrentTime:     strings.TrimSpace(c.Columns.CurrentTime),
		SuccessfulCalls: strings.TrimSpace(c.Columns.SuccessfulCalls),
		FailedCalls:     strings.TrimSpace(c.Columns.FailedCalls),
		ResponseTime:    strings.TrimSpace(c.Columns.ResponseTime),
		CallLength:      strings.TrimSpace(c.Columns.CallLength),
		HistogramPrefix: strings.TrimSpace(c.HistogramPrefix),
	}
}

// FromColumns builds a default configuration using the given column names,
// as suggested by header detection.
func FromColumns(cols schema.Columns) *Config {
	cfg := DefaultConfig()
	cfg.Columns = ColumnsConfig{
		ElapsedTime:     cols.ElapsedTime,
		CallRate:        cols.CallRate,
		TargetRate:      cols.TargetRate,
		CurrentTime:     cols.CurrentTime,
		SuccessfulCalls: cols.SuccessfulCalls,
		FailedCalls:     cols.FailedCalls,
		ResponseTime:    cols.ResponseTime,
		CallLength:      cols.CallLength,
	}
	cfg.HistogramPrefix = cols.HistogramPrefix
	return cfg
}

// Marshal encodes cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// ValidateWebhook checks a webhook endpoint and fills in its default trigger
// and timeout. Tokens are expanded from the environment.
func ValidateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	wh.Token = expandEnvVar(wh.Token)

	trigger, err := ParseWebhookTrigger(string(wh.Trigger))
	if err != nil {
		return err
	}
	wh.Trigger = trigger

	if wh.Timeout <= 0 {
		wh.Timeout = Duration(DefaultWebhookTimeout)
	}

	return nil
}

// ParseWebhookTrigger returns the trigger named by s. An empty string means
// on_diagnostics.
func ParseWebhookTrigger(s string) (WebhookTrigger, error) {
	switch t := WebhookTrigger(s); t {
	case WebhookTriggerOnDiagnostics, WebhookTriggerAlways, WebhookTriggerNever:
		return t, nil
	case "":
		return WebhookTriggerOnDiagnostics, nil
	default:
		return "", fmt.Errorf("invalid trigger %q (must be on_diagnostics, always, or never)", s)
	}
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}

	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}

	return s
}
