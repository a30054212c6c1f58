package cli

import (
	"github.com/spf13/cobra"

	"github.com/octobrain/octobrain/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP stdio server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		server := mcp.NewServer(a)
		return server.Run()
	},
}
