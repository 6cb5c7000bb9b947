// Package config loads and validates the bridge configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority, applied by the commands layer)
//  2. Environment variables (SHMBRIDGE_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/marmos91/shmbridge/internal/bytesize"
	"github.com/marmos91/shmbridge/pkg/segment"
)

// Config represents the bridge configuration.
//
// The segment list may be declared here instead of on the command line,
// which is convenient when the bridge is launched by a wrapper script
// inside the guest's execution container.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Mount controls how the in-memory filesystem is located
	Mount MountConfig `mapstructure:"mount" yaml:"mount"`

	// Metrics contains the Prometheus ops server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Segments is the batch to create when none is given on the command line
	Segments []segment.Spec `mapstructure:"segments" validate:"omitempty,dive" yaml:"segments,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MountConfig controls the tmpfs mount resolution.
type MountConfig struct {
	// Candidates is an ordered list of directories probed for a writable
	// in-memory filesystem. Empty means the canonical locations plus the
	// system mount table.
	Candidates []string `mapstructure:"candidates" yaml:"candidates,omitempty"`
}

// MetricsConfig contains the Prometheus ops server configuration.
// The server exposes /metrics, /live and /ready while the bridge is
// resident; readiness reflects the all-or-nothing state of the batch.
type MetricsConfig struct {
	// Enabled controls whether the ops server is started
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the ops server listen port
	Port int `mapstructure:"port" validate:"omitempty,gte=1,lte=65535" yaml:"port"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns the loaded and validated configuration.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration against its struct tags.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the SHMBRIDGE_ prefix and underscores.
	// Example: SHMBRIDGE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("SHMBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/shm-bridge/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and integers to bytesize.ByteSize,
// so config files can use human-readable sizes like "64Mi" or plain numbers.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.Parse(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// GetDefaultConfigPath returns the default config file location.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// getConfigDir returns $XDG_CONFIG_HOME/shm-bridge, falling back to
// ~/.config/shm-bridge.
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "shm-bridge")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".shm-bridge")
	}
	return filepath.Join(home, ".config", "shm-bridge")
}
