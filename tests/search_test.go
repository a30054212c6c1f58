package tests

import (
	"testing"

	"github.com/octobrain/octobrain/internal/search"
	"github.com/octobrain/octobrain/internal/vecmath"
)

func TestCosineSimilarity(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		a := []float32{1.0, 0.0, 0.0}
		sim := vecmath.Cosine(a, a)
		if sim < 0.999 {
			t.Fatalf("expected ~1.0, got %f", sim)
		}
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		a := []float32{1.0, 0.0, 0.0}
		b := []float32{0.0, 1.0, 0.0}
		sim := vecmath.Cosine(a, b)
		if sim > 0.001 || sim < -0.001 {
			t.Fatalf("expected ~0.0, got %f", sim)
		}
	})

	t.Run("opposite vectors", func(t *testing.T) {
		a := []float32{1.0, 0.0, 0.0}
		b := []float32{-1.0, 0.0, 0.0}
		sim := vecmath.Cosine(a, b)
		if sim > -0.999 {
			t.Fatalf("expected ~-1.0, got %f", sim)
		}
	})

	t.Run("mismatched lengths", func(t *testing.T) {
		a := []float32{1.0, 0.0}
		b := []float32{1.0, 0.0, 0.0}
		sim := vecmath.Cosine(a, b)
		if sim != 0 {
			t.Fatalf("expected 0 for mismatched lengths, got %f", sim)
		}
	})
}

func TestVecmathByteRoundtrip(t *testing.T) {
	original := []float32{1.0, -0.5, 3.14, 0.0, -100.0}
	bytes := vecmath.ToBytes(original)
	restored := vecmath.FromBytes(bytes)

	if len(restored) != len(original) {
		t.Fatalf("length mismatch: %d != %d", len(restored), len(original))
	}
	for i := range original {
		if original[i] != restored[i] {
			t.Fatalf("value mismatch at %d: %f != %f", i, original[i], restored[i])
		}
	}
}

// TestFuseThenRRF exercises the two-stage combination the hybrid retriever
// runs per query (Fuse) and across queries (ReciprocalRankFusion), checking
// that a document strong on both legs of one query, and present in every
// query, outranks one that only shows up once.
func TestFuseThenRRF(t *testing.T) {
	queryA := search.Fuse(
		map[string]float64{"strong": 0.9, "weak": 0.2},
		map[string]float64{"strong": 0.8, "only-lexical": 0.6},
		0.7, 0.3,
	)
	queryB := search.Fuse(
		map[string]float64{"strong": 0.85},
		map[string]float64{"strong": 0.7},
		0.7, 0.3,
	)

	rrf, displayed := search.ReciprocalRankFusion([]map[string]float64{queryA, queryB}, 60)

	if rrf["strong"] <= rrf["weak"] {
		t.Fatalf("expected strong to outrank weak: strong=%f weak=%f", rrf["strong"], rrf["weak"])
	}
	if rrf["strong"] <= rrf["only-lexical"] {
		t.Fatalf("expected strong (present in both queries) to outrank a single-query hit")
	}
	if displayed["strong"] <= 0 {
		t.Fatalf("expected a positive displayed relevance for strong, got %f", displayed["strong"])
	}
}
