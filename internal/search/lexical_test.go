package search

import "testing"

func TestTokenize(t *testing.T) {
	t.Run("lowercases and splits on punctuation", func(t *testing.T) {
		got := Tokenize("Hello, World! Go-lang")
		want := []string{"hello", "world", "go", "lang"}
		assertTokens(t, got, want)
	})

	t.Run("discards single-character tokens", func(t *testing.T) {
		got := Tokenize("a b cd e")
		want := []string{"cd"}
		assertTokens(t, got, want)
	})

	t.Run("empty input", func(t *testing.T) {
		if got := Tokenize(""); len(got) != 0 {
			t.Fatalf("expected no tokens, got %v", got)
		}
	})
}

func assertTokens(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestLexicalIndexSearch(t *testing.T) {
	idx := NewLexicalIndex()
	idx.Build([]LexicalDoc{
		{ID: "a", Text: "the quick brown fox jumps over the lazy dog"},
		{ID: "b", Text: "go is a statically typed compiled language"},
		{ID: "c", Text: "the lazy dog sleeps all day"},
	})

	t.Run("ranks documents containing the query term higher", func(t *testing.T) {
		hits := idx.Search("lazy dog", 10)
		if len(hits) != 2 {
			t.Fatalf("expected 2 hits, got %d: %v", len(hits), hits)
		}
		ids := map[string]bool{hits[0].ID: true, hits[1].ID: true}
		if !ids["a"] || !ids["c"] {
			t.Fatalf("expected hits for a and c, got %v", hits)
		}
	})

	t.Run("unmatched query returns no hits", func(t *testing.T) {
		hits := idx.Search("xyzzy", 10)
		if len(hits) != 0 {
			t.Fatalf("expected no hits, got %v", hits)
		}
	})

	t.Run("respects the limit", func(t *testing.T) {
		hits := idx.Search("the", 1)
		if len(hits) != 1 {
			t.Fatalf("expected 1 hit, got %d", len(hits))
		}
	})

	t.Run("empty index returns nil", func(t *testing.T) {
		empty := NewLexicalIndex()
		if hits := empty.Search("anything", 10); hits != nil {
			t.Fatalf("expected nil, got %v", hits)
		}
	})
}
