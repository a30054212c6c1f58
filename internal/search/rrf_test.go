package search

import "testing"

func TestFuse(t *testing.T) {
	t.Run("weighted sum over the union of ids", func(t *testing.T) {
		dense := map[string]float64{"a": 0.8, "b": 0.4}
		lexical := map[string]float64{"b": 1.0, "c": 0.5}
		fused := Fuse(dense, lexical, 0.7, 0.3)

		if got := fused["a"]; got < 0.56-1e-9 || got > 0.56+1e-9 {
			t.Fatalf("a: expected 0.56, got %v", got)
		}
		if got := fused["b"]; got < 0.579 || got > 0.581 {
			t.Fatalf("b: expected ~0.58, got %v", got)
		}
		if got := fused["c"]; got != 0.15 {
			t.Fatalf("c: expected 0.15, got %v", got)
		}
	})
}

func TestReciprocalRankFusion(t *testing.T) {
	t.Run("favors an id that ranks well across multiple queries", func(t *testing.T) {
		q1 := map[string]float64{"a": 0.9, "b": 0.5}
		q2 := map[string]float64{"a": 0.8, "c": 0.9}

		rrf, displayed := ReciprocalRankFusion([]map[string]float64{q1, q2}, 60)

		if rrf["a"] <= rrf["b"] || rrf["a"] <= rrf["c"] {
			t.Fatalf("expected a to rank highest, got %v", rrf)
		}
		if displayed["a"] != 0.9 {
			t.Fatalf("expected best per-query score 0.9 for a, got %v", displayed["a"])
		}
	})
}

func TestSigmoid(t *testing.T) {
	t.Run("maps zero to one half", func(t *testing.T) {
		if got := Sigmoid(0); got != 0.5 {
			t.Fatalf("expected 0.5, got %v", got)
		}
	})

	t.Run("is bounded between zero and one", func(t *testing.T) {
		if got := Sigmoid(100); got <= 0.99 || got > 1.0 {
			t.Fatalf("expected close to 1.0, got %v", got)
		}
		if got := Sigmoid(-100); got >= 0.01 || got <= 0.0 {
			t.Fatalf("expected close to 0.0, got %v", got)
		}
	})
}
