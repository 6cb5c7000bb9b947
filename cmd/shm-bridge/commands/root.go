// Package commands implements the CLI commands for the shared memory bridge.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/shmbridge/internal/logger"
	"github.com/marmos91/shmbridge/pkg/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "shm-bridge",
	Short: "Shared memory bridge between Wine/Proton guests and Linux",
	Long: `shm-bridge shares named memory maps between Windows applications running
under Wine/Proton and native Linux processes. It pre-creates a tmpfs backed
file for every named map before the guest allocates its own, so the guest's
allocation attaches to the bridge's backing store and the map's contents
become visible on the Linux side.

It is particularly useful for simulators and games that publish telemetry
through named shared memory, allowing Linux applications to read it
directly.

Example usage inside a Proton prefix:

  protontricks-launch --appid APPID shm-bridge run \
    --map acpmf_physics --size 820 \
    --map acpmf_graphics --size 1580

Use "shm-bridge [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/shm-bridge/config.yaml)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}

// loadConfig loads the configuration and initializes the logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, err
	}

	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
