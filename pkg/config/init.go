package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/marmos91/shmbridge/pkg/segment"
)

// InitConfig writes a sample configuration file to the default location.
// Returns the path written. Fails if the file exists unless force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	return path, InitConfigToPath(path, force)
}

// InitConfigToPath writes a sample configuration file to the given path.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	cfg := GetDefaultConfig()
	// Seed the sample with the classic simulator maps so the segments
	// section documents itself.
	cfg.Segments = []segment.Spec{
		{Name: "acpmf_physics", Size: 820},
		{Name: "acpmf_graphics", Size: 1580},
		{Name: "acpmf_static", Size: 820},
	}

	return SaveConfig(cfg, path)
}

// SaveConfig saves the configuration to the specified file path in YAML
// format.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
