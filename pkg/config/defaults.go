package config

import (
	"strings"
)

// Default values applied when the config file or environment leaves a
// field unset.
const (
	defaultLogLevel    = "INFO"
	defaultLogFormat   = "text"
	defaultLogOutput   = "stdout"
	defaultMetricsPort = 9841
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values (0, "", false, nil) are replaced with defaults; explicit
// values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = defaultLogLevel
	}
	// Normalize to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = defaultLogFormat
	}
	if cfg.Output == "" {
		cfg.Output = defaultLogOutput
	}
}

// applyMetricsDefaults sets ops server defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false; the bridge usually runs inside a Wine
	// prefix where an extra listener is unwanted.
	if cfg.Port == 0 {
		cfg.Port = defaultMetricsPort
	}
}

// GetDefaultConfig returns a fully populated default configuration.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
