package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/shmbridge/pkg/bridge"
	"github.com/marmos91/shmbridge/pkg/mount"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup [name...]",
	Short: "Remove stale backing files from the tmpfs mount",
	Long: `Cleanup removes backing files left on the tmpfs mount by a previous run
that did not shut down cleanly. Names can be given as arguments; when
none are given the segment names from the config file are used.

Removing a file that does not exist is not an error, so cleanup is safe
to run repeatedly.`,
	Example: `  shm-bridge cleanup acpmf_physics acpmf_graphics
  shm-bridge cleanup`,
	RunE: runCleanup,
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		for _, spec := range cfg.Segments {
			names = append(names, spec.Name)
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("no segment names given: pass names as arguments or declare segments in the config file")
	}

	resolver := mount.NewResolver(cfg.Mount.Candidates...)
	removed, err := bridge.CleanUp(resolver, names)
	if err != nil {
		return err
	}

	fmt.Printf("Removed %d stale file(s)\n", removed)
	return nil
}
