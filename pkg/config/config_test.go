package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/shmbridge/internal/bytesize"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Empty(t, cfg.Segments)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: json
  output: stderr
mount:
  candidates:
    - /dev/shm
    - /custom/tmpfs
metrics:
  enabled: true
  port: 9000
segments:
  - name: acpmf_physics
    size: 820
  - name: telemetry_page
    size: 32Ki
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level, "level is normalized to uppercase")
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Equal(t, []string{"/dev/shm", "/custom/tmpfs"}, cfg.Mount.Candidates)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9000, cfg.Metrics.Port)

	require.Len(t, cfg.Segments, 2)
	assert.Equal(t, "acpmf_physics", cfg.Segments[0].Name)
	assert.Equal(t, bytesize.ByteSize(820), cfg.Segments[0].Size)
	assert.Equal(t, 32*bytesize.KiB, cfg.Segments[1].Size)
}

func TestLoadPartialConfigFillsDefaults(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: warn
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "WARN", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, defaultMetricsPort, cfg.Metrics.Port)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "logging: [not a map")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadInvalidSegmentSize(t *testing.T) {
	path := writeConfig(t, `
segments:
  - name: broken
    size: 12Qi
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Run("default config is valid", func(t *testing.T) {
		assert.NoError(t, Validate(GetDefaultConfig()))
	})

	t.Run("invalid log level", func(t *testing.T) {
		cfg := GetDefaultConfig()
		cfg.Logging.Level = "VERBOSE"
		assert.Error(t, Validate(cfg))
	})

	t.Run("invalid log format", func(t *testing.T) {
		cfg := GetDefaultConfig()
		cfg.Logging.Format = "xml"
		assert.Error(t, Validate(cfg))
	})

	t.Run("port out of range", func(t *testing.T) {
		cfg := GetDefaultConfig()
		cfg.Metrics.Port = 70000
		assert.Error(t, Validate(cfg))
	})

	t.Run("segment without size", func(t *testing.T) {
		path := writeConfig(t, `
segments:
  - name: empty_segment
`)
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SHMBRIDGE_LOGGING_LEVEL", "ERROR")

	path := writeConfig(t, `
logging:
  level: info
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ERROR", cfg.Logging.Level)
}

func TestGetConfigDirHonorsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	assert.Equal(t, "/tmp/xdg-test/shm-bridge", getConfigDir())
	assert.Equal(t, "/tmp/xdg-test/shm-bridge/config.yaml", GetDefaultConfigPath())
}
