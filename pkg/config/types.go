// Package config provides configuration loading and validation for sippstat.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure loaded from YAML or TOML.
type Config struct {
	Columns ColumnsConfig `yaml:"columns" toml:"columns"`

	// HistogramPrefix selects the response-time repartition columns.
	HistogramPrefix string `yaml:"histogram_prefix" toml:"histogram_prefix"`

	// Delimiter is the single cell separator of the report.
	Delimiter string `yaml:"delimiter" toml:"delimiter"`

	Window   WindowConfig    `yaml:"window,omitempty" toml:"window,omitempty"`
	Cache    CacheConfig     `yaml:"cache,omitempty" toml:"cache,omitempty"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty" toml:"webhooks,omitempty"`
}

// ColumnsConfig maps logical fields to the header names of a SIPp version.
type ColumnsConfig struct {
	ElapsedTime     string `yaml:"elapsed_time" toml:"elapsed_time"`
	CallRate        string `yaml:"call_rate" toml:"call_rate"`
	TargetRate      string `yaml:"target_rate" toml:"target_rate"`
	CurrentTime     string `yaml:"current_time" toml:"current_time"`
	SuccessfulCalls string `yaml:"successful_calls" toml:"successful_calls"`
	FailedCalls     string `yaml:"failed_calls" toml:"failed_calls"`
	ResponseTime    string `yaml:"response_time" toml:"response_time"`
	CallLength      string `yaml:"call_length" toml:"call_length"`
}

// WindowConfig bounds the elapsed seconds kept in the series.
// A nil bound is open.
type WindowConfig struct {
	Min *int64 `yaml:"min,omitempty" toml:"min,omitempty"`
	Max *int64 `yaml:"max,omitempty" toml:"max,omitempty"`
}

// CacheConfig configures the normalized series cache.
type CacheConfig struct {
	// Path is the SQLite database file. Empty disables caching.
	Path string `yaml:"path,omitempty" toml:"path,omitempty"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnDiagnostics fires only when the report produced
	// diagnostics or an empty series (default).
	WebhookTriggerOnDiagnostics WebhookTrigger = "on_diagnostics"
	// WebhookTriggerAlways fires after every normalization.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint receiving normalization reports.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty" toml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url" toml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty" toml:"token,omitempty"`

	// Trigger defaults to "on_diagnostics" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty" toml:"trigger,omitempty"`

	// Timeout defaults to 10s if not specified.
	Timeout Duration `yaml:"timeout,omitempty" toml:"timeout,omitempty"`
}

// Duration is a time.Duration written as "10s" in both YAML and TOML.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText formats d as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// MarshalYAML formats d as a Go duration string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}
