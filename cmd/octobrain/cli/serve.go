package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/octobrain/octobrain/internal/api"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin HTTP surface (health, stats, debug search)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		port := servePort
		if port == 0 {
			port = a.Config.Port
		}

		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
		router := api.NewRouter(a, logger)
		addr := fmt.Sprintf(":%d", port)
		logger.Info("serving", "addr", addr)
		return http.ListenAndServe(addr, router)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on, default config's port")
}
