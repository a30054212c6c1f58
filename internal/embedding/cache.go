package embedding

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/octobrain/octobrain/internal/models"
	"github.com/octobrain/octobrain/internal/store"
	"github.com/octobrain/octobrain/internal/vecmath"
)

// CachedEmbedder wraps an Embedder with content-hash caching in SQLite, so
// re-embedding identical content (a retried memorize call, a knowledge
// source whose chunk text didn't change) never pays for a second provider
// call. It deliberately does NOT implement Reranker itself — wrapping a
// reranking-capable provider would otherwise make every CachedEmbedder
// satisfy a Reranker type assertion whether or not the inner provider
// actually supports it. Use NewCachedEmbedder for a plain provider and
// NewCachedRerankingEmbedder when the inner provider implements Reranker.
type CachedEmbedder struct {
	inner Embedder
	cache *store.EmbeddingCacheStore
}

// NewCachedEmbedder wraps inner with caching. If inner also implements
// Reranker, prefer NewCachedRerankingEmbedder so that capability survives
// the wrap.
func NewCachedEmbedder(inner Embedder, cache *store.EmbeddingCacheStore) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache}
}

func (e *CachedEmbedder) Dimension() int { return e.inner.Dimension() }
func (e *CachedEmbedder) Model() string  { return e.inner.Model() }

// CachedRerankingEmbedder adds Reranker on top of CachedEmbedder, forwarding
// to the wrapped provider unchanged — reranking is never cached, since rerank
// scores depend on the full candidate set, not just one text.
type CachedRerankingEmbedder struct {
	*CachedEmbedder
	reranker Reranker
}

// NewCachedRerankingEmbedder wraps inner with caching while preserving its
// Reranker capability.
func NewCachedRerankingEmbedder(inner Reranker, cache *store.EmbeddingCacheStore) *CachedRerankingEmbedder {
	return &CachedRerankingEmbedder{
		CachedEmbedder: &CachedEmbedder{inner: inner.(Embedder), cache: cache},
		reranker:       inner,
	}
}

func (e *CachedRerankingEmbedder) Rerank(ctx context.Context, query string, docs []string) ([]float64, error) {
	return e.reranker.Rerank(ctx, query, docs)
}

// Embed checks the cache for each text by content hash, embeds only the
// misses in one batch call to the wrapped provider, and writes the results
// back. Cache writes are best-effort: a cache-store failure does not fail
// the embed call, since the vector itself is already in hand.
func (e *CachedEmbedder) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	hashes := make([]string, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		h := ContentHash(t)
		hashes[i] = h
		entry, err := e.cache.Get(h)
		if err != nil {
			return nil, fmt.Errorf("embedding cache lookup: %w", err)
		}
		if entry != nil {
			out[i] = vecmath.FromBytes(entry.Embedding)
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) > 0 {
		vectors, err := e.inner.Embed(ctx, missTexts, mode)
		if err != nil {
			return nil, err
		}
		for j, i := range missIdx {
			out[i] = vectors[j]
			entry := &models.EmbeddingCacheEntry{
				ContentHash: hashes[i],
				Embedding:   vecmath.ToBytes(vectors[j]),
				Dimension:   e.inner.Dimension(),
				Model:       e.inner.Model(),
			}
			_ = e.cache.Put(entry)
		}
	}

	return out, nil
}

// ContentHash computes a SHA-256 hash of text content, the key both the
// embedding cache and memory content-dedup use.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", h)
}
