package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/octobrain/octobrain/internal/models"
)

var (
	knowledgeSearchURL   string
	knowledgeSearchLimit int
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Manage and search indexed web knowledge",
}

var knowledgeIndexCmd = &cobra.Command{
	Use:   "index [url]",
	Short: "Fetch, extract, chunk, and index a URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Knowledge.Index(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printJSON(result)
		return nil
	},
}

var knowledgeSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed knowledge chunks by meaning",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.Knowledge.Search(cmd.Context(), &models.KnowledgeSearchRequest{
			Query: args[0],
			URL:   knowledgeSearchURL,
			Limit: knowledgeSearchLimit,
		})
		if err != nil {
			return err
		}
		printJSON(map[string]any{"results": results})
		return nil
	},
}

var knowledgeDeleteCmd = &cobra.Command{
	Use:   "delete [url]",
	Short: "Remove an indexed source and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Knowledge.Delete(args[0]); err != nil {
			return err
		}
		fmt.Println("deleted", args[0])
		return nil
	},
}

func init() {
	knowledgeSearchCmd.Flags().StringVar(&knowledgeSearchURL, "url", "", "restrict search to this URL, indexing/refreshing it first")
	knowledgeSearchCmd.Flags().IntVar(&knowledgeSearchLimit, "limit", 10, "maximum results")
	knowledgeCmd.AddCommand(knowledgeIndexCmd, knowledgeSearchCmd, knowledgeDeleteCmd)
}
