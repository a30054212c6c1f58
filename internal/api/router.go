package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/octobrain/octobrain/internal/app"
)

// NewRouter builds the admin HTTP surface: health, stats, and a debug
// search endpoint. It has no auth of its own — it's meant for localhost use
// alongside the CLI/MCP surfaces, which are the primary interfaces.
func NewRouter(a *app.App, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	h := NewHandler(a)
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)
	r.Post("/search", h.Search)
	r.Post("/knowledge/search", h.KnowledgeSearch)

	return r
}
