package config

import (
	"os"
	"time"
)

// Default values for configuration. The column names are the ones SIPp
// writes with -trace_stat.
const (
	DefaultElapsedTimeColumn     = "ElapsedTime(C)"
	DefaultCallRateColumn        = "CallRate(P)"
	DefaultTargetRateColumn      = "TargetRate"
	DefaultCurrentTimeColumn     = "CurrentTime"
	DefaultSuccessfulCallsColumn = "SuccessfulCall(P)"
	DefaultFailedCallsColumn     = "FailedCall(P)"
	DefaultResponseTimeColumn    = "ResponseTime1(C)"
	DefaultCallLengthColumn      = "CallLength(C)"
	DefaultHistogramPrefix       = "ResponseTimeRepartition1"
	DefaultDelimiter             = ";"
	DefaultWebhookTimeout        = 10 * time.Second
)

// Environment variable names.
const (
	EnvHistogramPrefix = "SIPPSTAT_HISTOGRAM_PREFIX"
	EnvCachePath       = "SIPPSTAT_CACHE_PATH"
	EnvDelimiter       = "SIPPSTAT_DELIMITER"
)

// DefaultConfig returns a configuration matching a stock SIPp statistics file.
func DefaultConfig() *Config {
	return &Config{
		Columns: ColumnsConfig{
			ElapsedTime:     DefaultElapsedTimeColumn,
			CallRate:        DefaultCallRateColumn,
			TargetRate:      DefaultTargetRateColumn,
			CurrentTime:     DefaultCurrentTimeColumn,
			SuccessfulCalls: DefaultSuccessfulCallsColumn,
			FailedCalls:     DefaultFailedCallsColumn,
			ResponseTime:    DefaultResponseTimeColumn,
			CallLength:      DefaultCallLengthColumn,
		},
		HistogramPrefix: DefaultHistogramPrefix,
		Delimiter:       DefaultDelimiter,
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if prefix := os.Getenv(EnvHistogramPrefix); prefix != "" {
		c.HistogramPrefix = prefix
	}
	if path := os.Getenv(EnvCachePath); path != "" {
		c.Cache.Path = path
	}
	if delim := os.Getenv(EnvDelimiter); delim != "" {
		c.Delimiter = delim
	}
}
