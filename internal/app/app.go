// Package app is the composition root: it wires config, storage, the
// embedding provider, and C1–C7 into a ready-to-use App, shared by the CLI,
// the MCP server, and the admin HTTP surface so none of them duplicate
// startup wiring.
package app

import (
	"fmt"
	"log/slog"

	"github.com/octobrain/octobrain/internal/config"
	"github.com/octobrain/octobrain/internal/embedding"
	"github.com/octobrain/octobrain/internal/gitutil"
	"github.com/octobrain/octobrain/internal/graph"
	"github.com/octobrain/octobrain/internal/knowledge"
	"github.com/octobrain/octobrain/internal/memory"
	"github.com/octobrain/octobrain/internal/models"
	"github.com/octobrain/octobrain/internal/search"
	"github.com/octobrain/octobrain/internal/store"
)

type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	DB          *store.DB
	WorkspaceID string
	GitCommit   string

	Embedder  embedding.Embedder
	Memory    *memory.Service
	Graph     *graph.Graph
	Knowledge *knowledge.Pipeline
}

// New opens the database, resolves workspace identity from the Git remote
// in workdir, builds the embedding provider named by cfg.Embedding.Model
// ("provider:model"), and wires C1–C7 together.
func New(cfg *config.Config, workdir string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	embedder, err := buildEmbedder(cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	workspaceID := gitutil.WorkspaceID(workdir)
	gitCommit := gitutil.CommitHash(workdir)

	workspaceStore := store.NewWorkspaceStore(db)
	now := models.NowMillis()
	ws, err := workspaceStore.EnsureWorkspace(workspaceID, workdir, embedder.Dimension(), embedder.Model(), now)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure workspace: %w", err)
	}
	if ws.EmbeddingModel != "" && ws.EmbeddingModel != embedder.Model() {
		db.Close()
		return nil, fmt.Errorf("new: %w: workspace was indexed with %q, configured embedder is %q",
			models.ErrEmbeddingModelMismatch, ws.EmbeddingModel, embedder.Model())
	}

	memoryStore := store.NewMemoryStore(db)
	relationshipStore := store.NewRelationshipStore(db)
	vectorIndex := store.NewVectorIndex(memoryStore)
	knowledgeStore := store.NewKnowledgeStore(db)

	memLexical := search.NewLexicalIndex()
	retriever := search.NewHybridRetriever(memoryStore, vectorIndex, memLexical, embedder, cfg.Search.Hybrid.Alpha, cfg.Search.Hybrid.Beta, cfg.Search.MaxResults, cfg.Memory.Decay.HalfLifeDays)
	memSvc := memory.NewService(memoryStore, relationshipStore, memLexical, retriever, embedder, workspaceID, gitCommit)
	if err := memSvc.RefreshLexicalIndex(); err != nil {
		db.Close()
		return nil, err
	}

	g := graph.New(memoryStore, relationshipStore, vectorIndex, embedder)

	knowledgeLexical := search.NewLexicalIndex()
	pipeline := knowledge.NewPipeline(knowledgeStore, embedder, knowledgeLexical, workspaceID,
		cfg.Knowledge.ChunkTokens, cfg.Knowledge.ChunkOverlap, cfg.Knowledge.TTLSeconds,
		cfg.Embedding.BatchSize, cfg.Embedding.MaxTokensPerBatch,
		cfg.Search.Hybrid.Alpha, cfg.Search.Hybrid.Beta)
	if err := pipeline.RefreshLexicalIndex(); err != nil {
		db.Close()
		return nil, err
	}

	return &App{
		Config:      cfg,
		Logger:      logger,
		DB:          db,
		WorkspaceID: workspaceID,
		GitCommit:   gitCommit,
		Embedder:    embedder,
		Memory:      memSvc,
		Graph:       g,
		Knowledge:   pipeline,
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}

// buildEmbedder parses cfg.Embedding.Model ("provider:model") and wraps the
// result in a CachedEmbedder. Ollama is the only provider wired today,
// matching the teacher's deployment; a reranker is layered on when
// cfg.Search.Reranker.Enabled names a model.
func buildEmbedder(cfg *config.Config, db *store.DB) (embedding.Embedder, error) {
	provider, model, err := splitModelRef(cfg.Embedding.Model)
	if err != nil {
		return nil, err
	}

	cache := store.NewEmbeddingCacheStore(db)

	switch provider {
	case "ollama":
		base := embedding.NewOllamaEmbedder(cfg.OllamaBaseURL, model, 0)
		if cfg.Search.Reranker.Enabled && cfg.Search.Reranker.Model != "" {
			reranking := embedding.NewOllamaRerankingEmbedder(base, cfg.Search.Reranker.Model)
			return embedding.NewCachedRerankingEmbedder(reranking, cache), nil
		}
		return embedding.NewCachedEmbedder(base, cache), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}

func splitModelRef(ref string) (provider, model string, err error) {
	for i := 0; i < len(ref); i++ {
		if ref[i] == ':' {
			return ref[:i], ref[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("embedding.model must be \"provider:model\", got %q", ref)
}
