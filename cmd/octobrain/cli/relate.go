package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/octobrain/octobrain/internal/models"
)

var (
	relateStrength float64
	autoLinkThreshold float64
	autoLinkMaxLinks  int
)

var relateCmd = &cobra.Command{
	Use:   "relate [source-id] [type] [target-id]",
	Short: "Create or update a typed edge between two memories",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		relType := models.RelationshipType(args[1])
		if err := a.Graph.Relate(args[0], args[2], relType, relateStrength); err != nil {
			return err
		}
		fmt.Println("related", args[0], "->", args[2])
		return nil
	},
}

var autoLinkCmd = &cobra.Command{
	Use:   "auto-link [memory-id]",
	Short: "Link a memory to its nearest neighbors by embedding similarity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		linked, err := a.Graph.AutoLink(cmd.Context(), args[0], autoLinkThreshold, autoLinkMaxLinks)
		if err != nil {
			return err
		}
		printJSON(map[string]any{"linked": linked})
		return nil
	},
}

func init() {
	relateCmd.Flags().Float64Var(&relateStrength, "strength", 1.0, "edge strength in (0,1]")
	autoLinkCmd.Flags().Float64Var(&autoLinkThreshold, "threshold", 0.75, "minimum cosine similarity to link")
	autoLinkCmd.Flags().IntVar(&autoLinkMaxLinks, "max-links", 5, "maximum number of links to create")
	relateCmd.AddCommand(autoLinkCmd)
}
