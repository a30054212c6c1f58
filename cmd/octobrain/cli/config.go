package cli

import (
	"github.com/spf13/cobra"

	"github.com/octobrain/octobrain/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the resolved configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the fully resolved configuration (defaults, file, env overrides) as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		printJSON(cfg)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configGetCmd)
}
