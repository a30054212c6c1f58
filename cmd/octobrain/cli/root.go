// Package cli is the octobrain command-line front door: memorize, remember,
// forget, relate, graph, knowledge, serve, mcp, and config, all built over
// the same in-process App that the MCP server and admin HTTP surface use.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgPath string
	workdir string
)

var RootCmd = &cobra.Command{
	Use:   "octobrain",
	Short: "A personal, single-node memory and knowledge service for AI assistants",
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	wd, _ := os.Getwd()
	RootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a YAML config file (optional)")
	RootCmd.PersistentFlags().StringVar(&workdir, "workdir", wd, "directory whose Git remote identifies the workspace")

	RootCmd.AddCommand(memorizeCmd)
	RootCmd.AddCommand(rememberCmd)
	RootCmd.AddCommand(forgetCmd)
	RootCmd.AddCommand(relateCmd)
	RootCmd.AddCommand(graphCmd)
	RootCmd.AddCommand(knowledgeCmd)
	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(mcpCmd)
	RootCmd.AddCommand(configCmd)
}
