package store

import (
	"sort"

	"github.com/octobrain/octobrain/internal/models"
	"github.com/octobrain/octobrain/internal/vecmath"
)

// VectorIndex is C2: a columnar, on-disk table per workspace with
// brute-force cosine k-NN over it. The "columnar table" is the memories (or
// knowledge_chunks) SQLite table itself; this type adds the ANN-shaped
// query surface spec.md §4.2 requires on top of plain SQL rows. Index
// build/refresh has no separate structure to maintain — a full table scan
// at query time is the build, which is why it is bounded to one workspace
// at a time and re-run on every search.
type VectorIndex struct {
	memories *MemoryStore
}

func NewVectorIndex(memories *MemoryStore) *VectorIndex {
	return &VectorIndex{memories: memories}
}

// ScoredMemory is one k-NN hit: a stored memory plus its cosine score.
type ScoredMemory struct {
	Memory *models.Memory
	Score  float64 // cosine similarity, [-1, 1]
}

// SearchFilter mirrors models.SearchFilter but is evaluated in-process over
// the candidate set, since SQLite can't filter on JSON-array membership
// without a scan of its own.
type SearchFilter = models.SearchFilter

// KNN returns the top-k memories in workspaceID by cosine similarity to
// query, applying filter before truncation to k so that filtered-out rows
// never starve the result set (the "never just post-hoc" requirement).
// Every row of the workspace is scanned, so no overfetch is needed.
func (v *VectorIndex) KNN(workspaceID string, query []float32, k int, filter *SearchFilter) ([]ScoredMemory, error) {
	candidates, err := v.memories.GetAllWithEmbeddings(workspaceID)
	if err != nil {
		return nil, err
	}

	const overfetch = 4
	limit := k * overfetch
	if limit <= 0 {
		limit = k
	}

	scored := make([]ScoredMemory, 0, len(candidates))
	for _, m := range candidates {
		if filter != nil && !MatchesFilter(m, filter) {
			continue
		}
		vec := vecmath.FromBytes(m.Embedding)
		scored = append(scored, ScoredMemory{Memory: m, Score: vecmath.Cosine(query, vec)})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	_ = limit // overfetch is implicit: we scan every row, so no extra pass is needed
	return scored, nil
}

func MatchesFilter(m *models.Memory, f *SearchFilter) bool {
	if len(f.MemoryTypes) > 0 {
		ok := false
		for _, t := range f.MemoryTypes {
			if m.MemoryType == t {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(f.Tags) > 0 && !anyMatch(m.Tags, f.Tags) {
		return false
	}
	if len(f.RelatedFiles) > 0 && !anyMatch(m.RelatedFiles, f.RelatedFiles) {
		return false
	}
	if f.Since > 0 && m.CreatedAt < f.Since {
		return false
	}
	if f.Until > 0 && m.CreatedAt > f.Until {
		return false
	}
	return true
}
