package search

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/octobrain/octobrain/internal/embedding"
	"github.com/octobrain/octobrain/internal/models"
	"github.com/octobrain/octobrain/internal/store"
)

// rrfK is the Reciprocal Rank Fusion smoothing constant.
const rrfK = 60

// HybridRetriever is C4: the retrieve(queries, options) operation that
// drives memory search. Knowledge search lives in knowledge.Pipeline.Search.
type HybridRetriever struct {
	memories     *store.MemoryStore
	vectors      *store.VectorIndex
	lexical      *LexicalIndex
	embedder     embedding.Embedder
	alpha        float64
	beta         float64
	defaultK     int
	defaultLimit int
	halfLifeDays float64
}

// NewHybridRetriever wires C4. defaultK is the per-query candidate pool size
// pulled from each of C2 and C3 before fusion (search.max_results);
// halfLifeDays is the temporal decay half-life (memory.decay.half_life_days).
func NewHybridRetriever(memories *store.MemoryStore, vectors *store.VectorIndex, lexical *LexicalIndex, embedder embedding.Embedder, alpha, beta float64, defaultK int, halfLifeDays float64) *HybridRetriever {
	if defaultK <= 0 {
		defaultK = 50
	}
	if halfLifeDays <= 0 {
		halfLifeDays = 90.0
	}
	return &HybridRetriever{
		memories:     memories,
		vectors:      vectors,
		lexical:      lexical,
		embedder:     embedder,
		alpha:        alpha,
		beta:         beta,
		defaultK:     defaultK,
		defaultLimit: 10,
		halfLifeDays: halfLifeDays,
	}
}

// RetrieveOptions controls one retrieve call.
type RetrieveOptions struct {
	WorkspaceID  string
	Queries      []string
	Filter       *models.SearchFilter
	Limit        int
	MinRelevance float64
	K            int // candidate pool size per query, default 50
	UseReranker  bool
	DecayEnabled bool
}

// Retrieve runs C4's 8-step algorithm over memories and returns a ranked,
// post-filtered, tie-broken result set. Knowledge-chunk search does not go
// through this method: knowledge.Pipeline.Search calls Fuse on its own, with
// no RRF or decay, since chunks carry no importance or access counters.
func (h *HybridRetriever) Retrieve(ctx context.Context, opts RetrieveOptions) (*models.SearchResponse, error) {
	start := time.Now()
	if len(opts.Queries) == 0 {
		return nil, fmt.Errorf("retrieve: %w: at least one query is required", models.ErrInvalidInput)
	}
	k := opts.K
	if k <= 0 {
		k = h.defaultK
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = h.defaultLimit
	}

	denseTotal, lexTotal := 0, 0
	perQueryFinal := make([]map[string]float64, 0, len(opts.Queries))
	byID := make(map[string]*models.Memory)

	for _, q := range opts.Queries {
		vectors, err := h.embedder.Embed(ctx, []string{q}, embedding.ModeQuery)
		if err != nil {
			return nil, fmt.Errorf("retrieve: %w: %v", models.ErrEmbedderUnavailable, err)
		}
		qVec := vectors[0]

		denseHits, err := h.vectors.KNN(opts.WorkspaceID, qVec, k, opts.Filter)
		if err != nil {
			return nil, fmt.Errorf("retrieve: dense search: %w", err)
		}
		denseTotal += len(denseHits)
		dense := make(map[string]float64, len(denseHits))
		for _, hit := range denseHits {
			dense[hit.Memory.ID] = (hit.Score + 1) / 2
			byID[hit.Memory.ID] = hit.Memory
		}

		lexHits := h.lexical.Search(q, k)
		lexTotal += len(lexHits)
		lex := normalizeLexical(lexHits)
		lex = h.filterLexicalToMemories(opts.Filter, lex, byID)

		fused := Fuse(dense, lex, h.alpha, h.beta)
		final := make(map[string]float64, len(fused))
		now := models.NowMillis()
		for id, s := range fused {
			mem, ok := byID[id]
			if !ok {
				m, err := h.memories.GetByID(id)
				if err != nil || m == nil {
					continue
				}
				mem = m
				byID[id] = m
			}
			final[id] = applyDecay(s, mem, now, opts.DecayEnabled, h.halfLifeDays)
		}
		perQueryFinal = append(perQueryFinal, final)
	}

	orderScore, displayed := combine(perQueryFinal)

	ids := make([]string, 0, len(orderScore))
	for id := range orderScore {
		ids = append(ids, id)
	}

	reranked := false
	if opts.UseReranker {
		if reranker, ok := h.embedder.(embedding.Reranker); ok {
			sort.Slice(ids, func(i, j int) bool { return betterOrder(ids[i], ids[j], orderScore, byID) })
			topN := 2 * limit
			if topN > k || topN <= 0 {
				topN = k
			}
			if topN > len(ids) {
				topN = len(ids)
			}
			candidates := ids[:topN]
			docs := make([]string, len(candidates))
			for i, id := range candidates {
				docs[i] = formatRerankDoc(byID[id])
			}
			scores, err := reranker.Rerank(ctx, strings.Join(opts.Queries, " "), docs)
			if err == nil && len(scores) == len(candidates) {
				reranked = true
				for i, id := range candidates {
					displayed[id] = Sigmoid(scores[i])
				}
				ids = candidates
			}
		}
	}

	sort.Slice(ids, func(i, j int) bool {
		if reranked {
			if displayed[ids[i]] != displayed[ids[j]] {
				return displayed[ids[i]] > displayed[ids[j]]
			}
			return betterOrder(ids[i], ids[j], orderScore, byID)
		}
		return betterOrder(ids[i], ids[j], orderScore, byID)
	})

	results := make([]models.SearchResult, 0, limit)
	for _, id := range ids {
		rel := displayed[id]
		if rel < opts.MinRelevance {
			continue
		}
		mem, ok := byID[id]
		if !ok {
			continue
		}
		results = append(results, models.SearchResult{Memory: mem, Relevance: rel})
		if len(results) >= limit {
			break
		}
	}

	now := models.NowMillis()
	for _, r := range results {
		_ = h.memories.IncrementAccess(r.Memory.ID, now)
	}

	return &models.SearchResponse{
		Results: results,
		Meta: models.SearchMeta{
			DenseCandidates:   denseTotal,
			LexicalCandidates: lexTotal,
			Reranked:          reranked,
			SearchTimeMs:      time.Since(start).Milliseconds(),
		},
	}, nil
}

// betterOrder implements the deterministic tie-break: higher fused/RRF
// score, then higher importance, then more recent updated_at, then
// lexicographic id.
func betterOrder(a, b string, score map[string]float64, byID map[string]*models.Memory) bool {
	if score[a] != score[b] {
		return score[a] > score[b]
	}
	ma, mb := byID[a], byID[b]
	if ma != nil && mb != nil {
		if ma.Importance != mb.Importance {
			return ma.Importance > mb.Importance
		}
		if ma.UpdatedAt != mb.UpdatedAt {
			return ma.UpdatedAt > mb.UpdatedAt
		}
	}
	return a < b
}

// combine applies RRF when there is more than one query, otherwise passes
// the single query's scores straight through as both the ordering and
// displayed relevance.
func combine(perQuery []map[string]float64) (order, displayed map[string]float64) {
	if len(perQuery) == 1 {
		return perQuery[0], perQuery[0]
	}
	return ReciprocalRankFusion(perQuery, rrfK)
}

// applyDecay multiplies s by the exponential forgetting curve keyed on
// last_accessed_at, with importance acting as a floor so important memories
// never decay below their importance-weighted score.
func applyDecay(s float64, mem *models.Memory, nowMillis int64, enabled bool, halfLifeDays float64) float64 {
	if !enabled {
		return s
	}
	ageDays := float64(nowMillis-mem.LastAccessedAt) / 86400000.0
	if ageDays < 0 {
		ageDays = 0
	}
	lambda := math.Ln2 / halfLifeDays
	decay := math.Exp(-lambda * ageDays)
	return math.Max(s*decay, s*mem.Importance)
}

// normalizeLexical scales BM25 hits to [0,1] by dividing by the maximum
// score in the result set.
func normalizeLexical(hits []LexicalHit) map[string]float64 {
	if len(hits) == 0 {
		return map[string]float64{}
	}
	max := hits[0].Score
	for _, h := range hits {
		if h.Score > max {
			max = h.Score
		}
	}
	out := make(map[string]float64, len(hits))
	for _, h := range hits {
		if max > 0 {
			out[h.ID] = h.Score / max
		}
	}
	return out
}

// filterLexicalToMemories drops lexical hits whose memory no longer exists or
// that fail the filter predicate, fetching metadata as needed since the
// lexical index only knows ids and raw text. It does not check the workspace.
func (h *HybridRetriever) filterLexicalToMemories(filter *models.SearchFilter, lex map[string]float64, byID map[string]*models.Memory) map[string]float64 {
	out := make(map[string]float64, len(lex))
	for id, score := range lex {
		mem, ok := byID[id]
		if !ok {
			m, err := h.memories.GetByID(id)
			if err != nil || m == nil {
				continue
			}
			mem = m
			byID[id] = m
		}
		if filter != nil && !store.MatchesFilter(mem, filter) {
			continue
		}
		out[id] = score
	}
	return out
}

// formatRerankDoc renders a memory the way the reranker expects to see it:
// title, then content, then a trailing tag line.
func formatRerankDoc(m *models.Memory) string {
	return fmt.Sprintf("%s\n%s\nTags: %s", m.Title, m.Content, strings.Join(m.Tags, ", "))
}
