package cli

import (
	"github.com/spf13/cobra"
)

var graphDepth int

var graphCmd = &cobra.Command{
	Use:   "graph [memory-id]",
	Short: "Traverse the relationship graph outward from a memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		nodes, err := a.Graph.Related(args[0], graphDepth)
		if err != nil {
			return err
		}
		printJSON(map[string]any{"nodes": nodes})
		return nil
	},
}

func init() {
	graphCmd.Flags().IntVar(&graphDepth, "depth", 2, "maximum hop count, capped at 5")
}
