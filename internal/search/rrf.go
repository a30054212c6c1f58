package search

import (
	"math"
	"sort"
)

// Fuse combines a dense candidate score map and a lexical candidate score
// map over the union of ids, treating a missing side as 0. Both maps must
// already be scaled to [0,1] by the caller.
func Fuse(dense, lexical map[string]float64, alpha, beta float64) map[string]float64 {
	fused := make(map[string]float64, len(dense)+len(lexical))
	for id, d := range dense {
		fused[id] = alpha * d
	}
	for id, l := range lexical {
		fused[id] += beta * l
	}
	return fused
}

// rankOf returns 1-based ranks for ids ordered by descending score, with a
// lexicographic id tie-break for determinism.
func rankOf(scores map[string]float64) map[string]int {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})
	ranks := make(map[string]int, len(ids))
	for i, id := range ids {
		ranks[id] = i + 1
	}
	return ranks
}

// ReciprocalRankFusion combines several per-query score maps into one
// ranking score per id: RRF(id) = Σ_q 1/(k + rank_q(id)), plus the best
// per-query score for each id, carried as the displayed relevance.
func ReciprocalRankFusion(perQuery []map[string]float64, k int) (rrfScore map[string]float64, displayed map[string]float64) {
	rrfScore = make(map[string]float64)
	displayed = make(map[string]float64)

	for _, scores := range perQuery {
		ranks := rankOf(scores)
		for id, rank := range ranks {
			rrfScore[id] += 1.0 / float64(k+rank)
			if s := scores[id]; s > displayed[id] {
				displayed[id] = s
			}
		}
	}
	return rrfScore, displayed
}

// Sigmoid maps an unbounded real score to [0,1] (large positive inputs round
// to exactly 1.0 in float64), used to normalize raw
// cross-encoder rerank scores before they are shown as relevance.
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
