package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/shmbridge/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	Long: `Init writes a sample configuration file to the default location
($XDG_CONFIG_HOME/shm-bridge/config.yaml) with documented defaults and
an example segment list.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()

	var err error
	if path != "" {
		err = config.InitConfigToPath(path, initForce)
	} else {
		path, err = config.InitConfig(initForce)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Wrote config file to %s\n", path)
	return nil
}
