package cli

import (
	"github.com/spf13/cobra"

	"github.com/octobrain/octobrain/internal/models"
)

var (
	memorizeTitle        string
	memorizeMemoryType   string
	memorizeTags         []string
	memorizeRelatedFiles []string
	memorizeImportance   float64
	memorizeImportanceSet bool
)

var memorizeCmd = &cobra.Command{
	Use:   "memorize [content]",
	Short: "Store a new memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		req := &models.StoreRequest{
			Title:        memorizeTitle,
			Content:      args[0],
			MemoryType:   models.MemoryType(memorizeMemoryType),
			Tags:         memorizeTags,
			RelatedFiles: memorizeRelatedFiles,
		}
		if memorizeImportanceSet {
			req.Importance = &memorizeImportance
		}

		resp, err := a.Memory.Memorize(cmd.Context(), req)
		if err != nil {
			return err
		}
		printJSON(resp)
		return nil
	},
}

func init() {
	memorizeCmd.Flags().StringVar(&memorizeTitle, "title", "", "short title")
	memorizeCmd.Flags().StringVar(&memorizeMemoryType, "type", "", "memory type (required)")
	memorizeCmd.Flags().StringSliceVar(&memorizeTags, "tags", nil, "comma-separated tags")
	memorizeCmd.Flags().StringSliceVar(&memorizeRelatedFiles, "files", nil, "comma-separated related file paths")
	memorizeCmd.Flags().Float64Var(&memorizeImportance, "importance", 0.5, "importance in [0,1]")
	_ = memorizeCmd.MarkFlagRequired("title")
	_ = memorizeCmd.MarkFlagRequired("type")
	memorizeCmd.PreRun = func(cmd *cobra.Command, args []string) {
		memorizeImportanceSet = cmd.Flags().Changed("importance")
	}
}
