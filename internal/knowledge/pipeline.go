// Package knowledge is C7: the ingestion pipeline that turns a URL into
// searchable chunks, plus the knowledge_search/knowledge_delete surface
// that reuses C4's fusion machinery over those chunks instead of memories.
package knowledge

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/octobrain/octobrain/internal/embedding"
	"github.com/octobrain/octobrain/internal/models"
	"github.com/octobrain/octobrain/internal/search"
	"github.com/octobrain/octobrain/internal/store"
	"github.com/octobrain/octobrain/internal/vecmath"
)

const (
	knnPoolSize             = 50
	defaultEmbedConcurrency = 8
)

// Pipeline is C7.
type Pipeline struct {
	sources           *store.KnowledgeStore
	fetcher           *Fetcher
	embedder          embedding.Embedder
	lexical           *search.LexicalIndex
	workspaceID       string
	chunkTokens       int
	chunkOverlap      int
	ttlSeconds        int64
	batchSize         int
	maxTokensPerBatch int
	hybridAlpha       float64
	hybridBeta        float64
}

func NewPipeline(
	sources *store.KnowledgeStore,
	embedder embedding.Embedder,
	lexical *search.LexicalIndex,
	workspaceID string,
	chunkTokens, chunkOverlap, ttlSeconds int,
	batchSize, maxTokensPerBatch int,
	hybridAlpha, hybridBeta float64,
) *Pipeline {
	return &Pipeline{
		sources:           sources,
		fetcher:           NewFetcher(),
		embedder:          embedder,
		lexical:           lexical,
		workspaceID:       workspaceID,
		chunkTokens:       chunkTokens,
		chunkOverlap:      chunkOverlap,
		ttlSeconds:        int64(ttlSeconds),
		batchSize:         batchSize,
		maxTokensPerBatch: maxTokensPerBatch,
		hybridAlpha:       hybridAlpha,
		hybridBeta:        hybridBeta,
	}
}

// RefreshLexicalIndex rebuilds the chunk-text lexical index from the
// current store contents, mirroring the memory manager's C3 refresh.
func (p *Pipeline) RefreshLexicalIndex() error {
	rows, err := p.sources.AllText()
	if err != nil {
		return fmt.Errorf("refresh knowledge lexical index: %w", err)
	}
	docs := make([]search.LexicalDoc, len(rows))
	for i, r := range rows {
		docs[i] = search.LexicalDoc{ID: r.ID, Text: r.Text}
	}
	p.lexical.Build(docs)
	return nil
}

// Index fetches, extracts, chunks, embeds, and upserts url's content,
// skipping the network round trip entirely when a cached source is fresh.
func (p *Pipeline) Index(ctx context.Context, rawURL string) (*models.IndexResult, error) {
	url, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("index: %w: %v", models.ErrInvalidInput, err)
	}

	existing, err := p.sources.GetSource(url)
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}

	now := models.NowMillis()
	if existing != nil && !existing.Stale(now/1000) {
		return &models.IndexResult{URL: url, ChunksCreated: existing.ChunkCount, WasCached: true}, nil
	}

	body, _, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("index: %w: %v", models.ErrFetchFailed, err)
	}

	hash := embedding.ContentHash(string(body))
	if existing != nil && existing.ContentHash == hash {
		existing.FetchedAt = now / 1000
		existing.IndexedAt = now / 1000
		if err := p.sources.UpsertSource(p.workspaceID, existing); err != nil {
			return nil, fmt.Errorf("index: %w", err)
		}
		return &models.IndexResult{URL: url, ChunksCreated: existing.ChunkCount, WasCached: true, ContentChanged: false}, nil
	}

	extracted, err := Extract(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("index: extract: %w", err)
	}

	chunkTexts := Chunk(extracted, p.chunkTokens, p.chunkOverlap)
	if len(chunkTexts) == 0 {
		return nil, fmt.Errorf("index: %w: no extractable content at %s", models.ErrInvalidInput, url)
	}

	texts := make([]string, len(chunkTexts))
	for i, c := range chunkTexts {
		texts[i] = c.Text
	}
	vectors, err := embedding.BatchEmbed(ctx, p.embedder, texts, embedding.ModeDocument, p.batchSize, p.maxTokensPerBatch, defaultEmbedConcurrency)
	if err != nil {
		return nil, fmt.Errorf("index: %w: %v", models.ErrEmbedderUnavailable, err)
	}

	chunks := make([]*models.KnowledgeChunk, len(chunkTexts))
	for i, c := range chunkTexts {
		chunks[i] = &models.KnowledgeChunk{
			ID:             uuid.NewString(),
			SourceURL:      url,
			Ordinal:        i,
			SectionPath:    c.SectionPath,
			Text:           c.Text,
			Embedding:      vecmath.ToBytes(vectors[i]),
			EmbeddingModel: p.embedder.Model(),
			CreatedAt:      now,
		}
	}

	title := extracted.Title
	if title == "" && len(extracted.Sections) > 0 {
		title = extracted.Sections[0].Heading
	}
	src := &models.KnowledgeSource{
		URL:         url,
		Title:       title,
		ContentHash: hash,
		TTLSeconds:  p.ttlSeconds,
		FetchedAt:   now / 1000,
		IndexedAt:   now / 1000,
		ChunkCount:  len(chunks),
	}
	if err := p.sources.UpsertSource(p.workspaceID, src); err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	if err := p.sources.ReplaceChunks(url, chunks); err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}

	if err := p.RefreshLexicalIndex(); err != nil {
		return nil, err
	}

	return &models.IndexResult{URL: url, ChunksCreated: len(chunks), WasCached: false, ContentChanged: existing != nil}, nil
}

// Search answers knowledge_search: fuse dense and lexical candidates with
// no temporal decay and importance fixed at 1, since chunks carry neither.
func (p *Pipeline) Search(ctx context.Context, req *models.KnowledgeSearchRequest) ([]models.KnowledgeSearchResult, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("knowledge_search: %w: query must be non-empty", models.ErrInvalidInput)
	}

	scopeURL := ""
	if req.URL != "" {
		url, err := NormalizeURL(req.URL)
		if err != nil {
			return nil, fmt.Errorf("knowledge_search: %w: %v", models.ErrInvalidInput, err)
		}
		if _, err := p.Index(ctx, url); err != nil {
			return nil, err
		}
		scopeURL = url
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	vectors, err := p.embedder.Embed(ctx, []string{req.Query}, embedding.ModeQuery)
	if err != nil {
		return nil, fmt.Errorf("knowledge_search: %w: %v", models.ErrEmbedderUnavailable, err)
	}

	denseHits, err := p.sources.KNNChunks(vectors[0], knnPoolSize, scopeURL)
	if err != nil {
		return nil, fmt.Errorf("knowledge_search: %w", err)
	}
	dense := make(map[string]float64, len(denseHits))
	byID := make(map[string]*models.KnowledgeChunk, len(denseHits))
	for _, hit := range denseHits {
		dense[hit.Chunk.ID] = (hit.Score + 1) / 2
		byID[hit.Chunk.ID] = hit.Chunk
	}

	lexHits := p.lexical.Search(req.Query, knnPoolSize)
	lex := make(map[string]float64, len(lexHits))
	if len(lexHits) > 0 {
		max := lexHits[0].Score
		for _, h := range lexHits {
			if h.Score > max {
				max = h.Score
			}
		}
		for _, h := range lexHits {
			if scopeURL != "" {
				if _, ok := byID[h.ID]; !ok {
					continue // out of scope for a url-restricted search
				}
			}
			if max > 0 {
				lex[h.ID] = h.Score / max
			}
		}
	}

	fused := search.Fuse(dense, lex, p.hybridAlpha, p.hybridBeta)

	ids := make([]string, 0, len(fused))
	for id := range fused {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if fused[ids[i]] != fused[ids[j]] {
			return fused[ids[i]] > fused[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > limit {
		ids = ids[:limit]
	}

	results := make([]models.KnowledgeSearchResult, 0, len(ids))
	for _, id := range ids {
		chunk, ok := byID[id]
		if !ok {
			continue
		}
		results = append(results, models.KnowledgeSearchResult{Chunk: chunk, Relevance: fused[id]})
	}
	return results, nil
}

// Delete removes a source and its chunks atomically (via foreign-key
// cascade), then rebuilds the lexical index.
func (p *Pipeline) Delete(url string) error {
	normalized, err := NormalizeURL(url)
	if err != nil {
		return fmt.Errorf("knowledge_delete: %w: %v", models.ErrInvalidInput, err)
	}
	if err := p.sources.DeleteSource(normalized); err != nil {
		return fmt.Errorf("knowledge_delete: %w", err)
	}
	return p.RefreshLexicalIndex()
}

