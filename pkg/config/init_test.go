package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfigToPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, InitConfigToPath(path, false))
	assert.FileExists(t, path)

	// The generated sample must round-trip through Load.
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Segments, 3)
	assert.Equal(t, "acpmf_physics", cfg.Segments[0].Name)
	assert.NoError(t, Validate(cfg))
}

func TestInitConfigToPathRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, InitConfigToPath(path, false))
	assert.Error(t, InitConfigToPath(path, false))
	assert.NoError(t, InitConfigToPath(path, true))
}
