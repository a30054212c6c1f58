// Package search implements C3 (the in-memory lexical index) and C4 (the
// hybrid retriever that fuses it with C2's dense k-NN).
package search

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
	// minTokenLen discards tokens shorter than this — single letters and
	// punctuation fragments carry no lexical signal.
	minTokenLen = 2
)

// Tokenize lowercases s and splits it into Unicode word segments, discarding
// anything shorter than minTokenLen. No stemming, no stopword removal — the
// index matches exactly what the query contains.
func Tokenize(s string) []string {
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() >= minTokenLen {
			tokens = append(tokens, b.String())
		}
		b.Reset()
	}
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// LexicalDoc is one entry indexed by LexicalIndex — a memory or a knowledge
// chunk, identified by its ID with its searchable text already joined.
type LexicalDoc struct {
	ID   string
	Text string
}

type postingEntry struct {
	docIdx int
	freq   int
}

// LexicalIndex is C3: a hand-rolled in-memory BM25 index (k1=1.2, b=0.75)
// rebuilt from scratch on every call to Build. SQLite's FTS5 bm25() ranking
// can't be parameterized to these constants or to this tokenization, so the
// index lives entirely in process memory instead of as a SQL virtual table.
type LexicalIndex struct {
	mu sync.RWMutex

	docIDs  []string
	docLens []int
	avgLen  float64
	postings map[string][]postingEntry
}

// NewLexicalIndex returns an empty index. Call Build before Search.
func NewLexicalIndex() *LexicalIndex {
	return &LexicalIndex{postings: make(map[string][]postingEntry)}
}

// Build replaces the index contents with a fresh tokenization of docs. It is
// not incremental: callers rebuild after any insert/update/delete, which is
// cheap enough for a personal-scale corpus and avoids drift between the
// index and the store.
func (idx *LexicalIndex) Build(docs []LexicalDoc) {
	postings := make(map[string][]postingEntry)
	docIDs := make([]string, len(docs))
	docLens := make([]int, len(docs))
	var totalLen int

	for i, d := range docs {
		docIDs[i] = d.ID
		tokens := Tokenize(d.Text)
		docLens[i] = len(tokens)
		totalLen += len(tokens)

		counts := make(map[string]int, len(tokens))
		for _, t := range tokens {
			counts[t]++
		}
		for t, freq := range counts {
			postings[t] = append(postings[t], postingEntry{docIdx: i, freq: freq})
		}
	}

	var avgLen float64
	if len(docs) > 0 {
		avgLen = float64(totalLen) / float64(len(docs))
	}

	idx.mu.Lock()
	idx.docIDs = docIDs
	idx.docLens = docLens
	idx.avgLen = avgLen
	idx.postings = postings
	idx.mu.Unlock()
}

// LexicalHit is one scored document from Search.
type LexicalHit struct {
	ID    string
	Score float64
}

// Search ranks indexed documents against query using Okapi BM25, returning
// the top k by descending score. Query terms that never appear in the
// corpus contribute nothing; an empty query or empty index returns nil.
func (idx *LexicalIndex) Search(query string, k int) []LexicalHit {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := len(idx.docIDs)
	if n == 0 {
		return nil
	}
	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	scores := make(map[int]float64)
	seen := make(map[string]bool, len(terms))
	for _, term := range terms {
		if seen[term] {
			continue
		}
		seen[term] = true

		entries := idx.postings[term]
		if len(entries) == 0 {
			continue
		}
		idf := inverseDocFrequency(n, len(entries))
		for _, e := range entries {
			docLen := float64(idx.docLens[e.docIdx])
			tf := float64(e.freq)
			denom := tf + bm25K1*(1-bm25B+bm25B*docLen/maxAvg(idx.avgLen))
			scores[e.docIdx] += idf * (tf * (bm25K1 + 1) / denom)
		}
	}

	hits := make([]LexicalHit, 0, len(scores))
	for docIdx, score := range scores {
		hits = append(hits, LexicalHit{ID: idx.docIDs[docIdx], Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func maxAvg(avgLen float64) float64 {
	if avgLen == 0 {
		return 1
	}
	return avgLen
}

// inverseDocFrequency is the standard BM25 IDF with the +1 smoothing term so
// it stays non-negative even when a term appears in every document.
func inverseDocFrequency(n, docFreq int) float64 {
	return math.Log((float64(n)-float64(docFreq)+0.5)/(float64(docFreq)+0.5) + 1)
}
