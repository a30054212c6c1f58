package tests

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/octobrain/octobrain/internal/api"
	"github.com/octobrain/octobrain/internal/app"
	"github.com/octobrain/octobrain/internal/config"
	"github.com/octobrain/octobrain/internal/models"
)

const fakeEmbedDim = 16

// fakeOllamaServer mimics just enough of Ollama's REST API (embed, tags) for
// the embedder client to exercise its real HTTP plumbing without a live
// Ollama instance; other paths answer 404. Embeddings are derived
// deterministically from a SHA-256 hash of the input text, so identical
// text always embeds identically; similar texts get unrelated vectors.
func fakeOllamaServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/embed":
			var req struct {
				Input []string `json:"input"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			embeddings := make([][]float32, len(req.Input))
			for i, text := range req.Input {
				embeddings[i] = fakeVector(text)
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"embeddings": embeddings})
		case "/api/tags":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"models": []any{}})
		default:
			http.NotFound(w, r)
		}
	}))
}

func fakeVector(text string) []float32 {
	h := sha256.Sum256([]byte(text))
	vec := make([]float32, fakeEmbedDim)
	for i := range vec {
		vec[i] = float32(h[i%len(h)]) / 255.0
	}
	return vec
}

func setupTestApp(t *testing.T) (*app.App, func()) {
	t.Helper()

	dir := t.TempDir()
	ollamaSrv := fakeOllamaServer()

	cfg := &config.Config{
		Port:          8741,
		DBPath:        filepath.Join(dir, "octobrain.db"),
		OllamaBaseURL: ollamaSrv.URL,
		LogLevel:      "error",
		Embedding:     config.EmbeddingConfig{Model: "ollama:nomic-embed-text", BatchSize: 32, MaxTokensPerBatch: 100000},
		Search: config.SearchConfig{
			SimilarityThreshold: 0.0,
			MaxResults:          50,
			Hybrid:              config.HybridConfig{Alpha: 0.7, Beta: 0.3},
		},
		Memory: config.MemoryConfig{
			Decay:   config.DecayConfig{HalfLifeDays: 90},
			Cleanup: config.CleanupConfig{MinImportance: 0.2, MaxAgeDays: 180},
		},
		Knowledge: config.KnowledgeConfig{TTLSeconds: 86400, ChunkTokens: 512, ChunkOverlap: 64},
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	a, err := app.New(cfg, dir, logger)
	if err != nil {
		t.Fatalf("app.New failed: %v", err)
	}

	cleanup := func() {
		a.Close()
		ollamaSrv.Close()
	}
	return a, cleanup
}

func TestMemorizeAndRemember(t *testing.T) {
	a, cleanup := setupTestApp(t)
	defer cleanup()

	storeResp, err := a.Memory.Memorize(t.Context(), &models.StoreRequest{
		Title:      "Effect generator patterns",
		Content:    "Always use Effect.gen for generator-based effects in this codebase",
		MemoryType: models.MemoryTypeLearning,
		Tags:       []string{"effect-ts", "patterns"},
	})
	if err != nil {
		t.Fatalf("memorize failed: %v", err)
	}
	if storeResp.ID == "" {
		t.Fatal("expected non-empty ID")
	}

	resp, err := a.Memory.Remember(t.Context(), &models.SearchRequest{
		Queries: []string{"Effect generator patterns"},
		Limit:   5,
	})
	if err != nil {
		t.Fatalf("remember failed: %v", err)
	}
	if len(resp.Results) == 0 {
		t.Fatal("expected at least 1 search result")
	}
	if resp.Results[0].Memory.ID != storeResp.ID {
		t.Fatalf("expected the memorized record to be the top hit, got %s", resp.Results[0].Memory.ID)
	}
}

func TestMemorizeRejectsInvalidType(t *testing.T) {
	a, cleanup := setupTestApp(t)
	defer cleanup()

	_, err := a.Memory.Memorize(t.Context(), &models.StoreRequest{
		Title:      "bad",
		Content:    "bad",
		MemoryType: models.MemoryType("not-a-real-type"),
	})
	if err == nil {
		t.Fatal("expected an error for an invalid memory type")
	}
}

func TestForgetRemovesMemory(t *testing.T) {
	a, cleanup := setupTestApp(t)
	defer cleanup()

	storeResp, err := a.Memory.Memorize(t.Context(), &models.StoreRequest{
		Title:      "temporary",
		Content:    "memory to delete",
		MemoryType: models.MemoryTypeDecision,
	})
	if err != nil {
		t.Fatalf("memorize failed: %v", err)
	}

	if err := a.Memory.Forget(storeResp.ID); err != nil {
		t.Fatalf("forget failed: %v", err)
	}

	if _, err := a.Memory.Get(storeResp.ID); err == nil {
		t.Fatal("expected get to fail after forget")
	}
}

func TestRelateAndGraph(t *testing.T) {
	a, cleanup := setupTestApp(t)
	defer cleanup()

	first, err := a.Memory.Memorize(t.Context(), &models.StoreRequest{
		Title: "root cause", Content: "the database connection pool was exhausted",
		MemoryType: models.MemoryTypeBugFix,
	})
	if err != nil {
		t.Fatalf("memorize first failed: %v", err)
	}
	second, err := a.Memory.Memorize(t.Context(), &models.StoreRequest{
		Title: "fix", Content: "raised the connection pool size to 50",
		MemoryType: models.MemoryTypeBugFix,
	})
	if err != nil {
		t.Fatalf("memorize second failed: %v", err)
	}

	if err := a.Graph.Relate(first.ID, second.ID, models.RelationshipDependsOn, 1.0); err != nil {
		t.Fatalf("relate failed: %v", err)
	}

	related, err := a.Graph.Related(first.ID, 2)
	if err != nil {
		t.Fatalf("related failed: %v", err)
	}
	found := false
	for _, r := range related {
		if r.ID == second.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %s to be reachable from %s, got %v", second.ID, first.ID, related)
	}
}

func TestAdminHTTPSurface(t *testing.T) {
	a, cleanup := setupTestApp(t)
	defer cleanup()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	router := api.NewRouter(a, logger)
	srv := httptest.NewServer(router)
	defer srv.Close()

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/health")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
	})

	if _, err := a.Memory.Memorize(t.Context(), &models.StoreRequest{
		Title: "chi router", Content: "use go-chi/chi for the admin HTTP surface",
		MemoryType: models.MemoryTypeArchitecture,
	}); err != nil {
		t.Fatalf("memorize failed: %v", err)
	}

	t.Run("stats", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/stats")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		var stats models.Stats
		json.NewDecoder(resp.Body).Decode(&stats)
		if stats.Total < 1 {
			t.Fatal("expected at least 1 memory in stats")
		}
	})

	t.Run("search", func(t *testing.T) {
		body, _ := json.Marshal(models.SearchRequest{Queries: []string{"admin HTTP router"}, Limit: 5})
		resp, err := http.Post(srv.URL+"/search", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
	})

	t.Run("search rejects empty queries", func(t *testing.T) {
		body, _ := json.Marshal(models.SearchRequest{Queries: nil})
		resp, err := http.Post(srv.URL+"/search", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for an empty query list, got %d", resp.StatusCode)
		}
	})
}
