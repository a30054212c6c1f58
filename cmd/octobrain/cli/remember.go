package cli

import (
	"github.com/spf13/cobra"

	"github.com/octobrain/octobrain/internal/models"
)

var (
	rememberLimit        int
	rememberMinRelevance float64
	rememberUseReranker  bool
)

var rememberCmd = &cobra.Command{
	Use:   "remember [queries...]",
	Short: "Retrieve memories by meaning",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.Memory.Remember(cmd.Context(), &models.SearchRequest{
			Queries:      args,
			Limit:        rememberLimit,
			MinRelevance: rememberMinRelevance,
			UseReranker:  rememberUseReranker,
		})
		if err != nil {
			return err
		}
		printJSON(resp)
		return nil
	},
}

func init() {
	rememberCmd.Flags().IntVar(&rememberLimit, "limit", 0, "maximum results, default 10")
	rememberCmd.Flags().Float64Var(&rememberMinRelevance, "min-relevance", 0, "drop results below this relevance")
	rememberCmd.Flags().BoolVar(&rememberUseReranker, "rerank", false, "apply the reranker pass if configured")
}
