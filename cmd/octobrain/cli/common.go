package cli

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"

	"github.com/octobrain/octobrain/internal/app"
	"github.com/octobrain/octobrain/internal/config"
	"github.com/octobrain/octobrain/internal/models"
)

// bootstrap loads config and builds the App every subcommand runs against.
// Callers must defer a.Close().
func bootstrap() (*app.App, error) {
	logLevel := slog.LevelInfo
	if os.Getenv("OCTOBRAIN_LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, workdir, logger)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// exitCodeFor maps the closed error taxonomy to the CLI's exit codes: 0
// success (never reached here), 2 invalid argument, 3 not found, 4 embedder
// unavailable, 5 fetch failed, 1 other.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, models.ErrInvalidInput):
		return 2
	case errors.Is(err, models.ErrNotFound):
		return 3
	case errors.Is(err, models.ErrEmbedderUnavailable):
		return 4
	case errors.Is(err, models.ErrFetchFailed):
		return 5
	default:
		return 1
	}
}
