package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/marmos91/shmbridge/internal/bytesize"
	"github.com/marmos91/shmbridge/internal/logger"
	"github.com/marmos91/shmbridge/pkg/bridge"
	"github.com/marmos91/shmbridge/pkg/config"
	"github.com/marmos91/shmbridge/pkg/metrics"
	"github.com/marmos91/shmbridge/pkg/mount"
	"github.com/marmos91/shmbridge/pkg/segment"
)

var (
	runMapNames  []string
	runMapSizes  []bytesize.ByteSize
	runCleanUp   bool
	runLogLevel  string
	runNoMetrics bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Create the shared memory mappings and stay resident",
	Long: `Run creates a tmpfs backed file for every named map, maps the whole
batch into memory, and stays resident until interrupted. Press CTRL-C
(or send SIGTERM) to unmap and remove the batch.

Each --map must be paired with a --size; flags are matched by position.
When no --map flags are given the segment list from the config file is
used instead.

With --clean-up the command removes any stale backing files left behind
by a previous run instead of creating mappings.`,
	Example: `  shm-bridge run --map acpmf_physics --size 820 --map acpmf_graphics --size 1580
  shm-bridge run --clean-up --map acpmf_physics --size 820`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringArrayVarP(&runMapNames, "map", "m", nil, "name of a shared memory map (repeatable)")
	runCmd.Flags().VarP(bytesize.NewSliceValue(&runMapSizes), "size", "s", "size of the matching --map in bytes (repeatable, accepts 820, 4Ki, 1.5Mi)")
	runCmd.Flags().BoolVar(&runCleanUp, "clean-up", false, "remove stale backing files instead of creating mappings")
	runCmd.Flags().StringVar(&runLogLevel, "log-level", "", "override the configured log level (DEBUG, INFO, WARN, ERROR)")
	runCmd.Flags().BoolVar(&runNoMetrics, "no-metrics", false, "disable the metrics/health server even if enabled in config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if runLogLevel != "" {
		logger.SetLevel(runLogLevel)
	}

	resolver := mount.NewResolver(cfg.Mount.Candidates...)

	if runCleanUp {
		names, err := cleanupNames(cfg)
		if err != nil {
			return err
		}
		removed, err := bridge.CleanUp(resolver, names)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d stale file(s)\n", removed)
		return nil
	}

	specs, err := resolveSpecs(cfg)
	if err != nil {
		return err
	}

	opts := bridge.Options{
		Specs:    specs,
		Resolver: resolver,
	}

	if cfg.Metrics.Enabled && !runNoMetrics {
		registry := prometheus.NewRegistry()
		opts.Metrics = metrics.NewSegmentMetrics(registry)
		opts.Ops = metrics.NewServer(cfg.Metrics.Port, registry)
	}

	b := bridge.New(opts)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Run the bridge in a goroutine so we can react to signals here.
	bridgeDone := make(chan error, 1)
	go func() {
		bridgeDone <- b.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
		return <-bridgeDone
	case err := <-bridgeDone:
		return err
	}
}

// cleanupNames collects segment names for clean-up mode, falling back to
// the config file when no --map flags were given. Sizes are not needed to
// remove files, so --map flags stand alone here and any --size flags are
// ignored.
func cleanupNames(cfg *config.Config) ([]string, error) {
	names := runMapNames
	if len(names) == 0 {
		for _, spec := range cfg.Segments {
			names = append(names, spec.Name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no segment names given: pass --map flags or declare segments in the config file")
	}
	return names, nil
}

// resolveSpecs builds the segment batch from CLI flags, falling back to the
// config file when no --map flags were given.
func resolveSpecs(cfg *config.Config) ([]segment.Spec, error) {
	if len(runMapNames) > 0 || len(runMapSizes) > 0 {
		return segment.BuildSpecs(runMapNames, runMapSizes)
	}

	if len(cfg.Segments) == 0 {
		return nil, fmt.Errorf("no segments given: pass --map/--size pairs or declare segments in the config file")
	}
	if err := segment.ValidateSpecs(cfg.Segments); err != nil {
		return nil, err
	}
	return cfg.Segments, nil
}
