package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// EstimateTokens approximates token count from byte length, the same rough
// heuristic used to size knowledge chunks: tokens ≈ len(bytes)/4.
func EstimateTokens(s string) int {
	return len(s) / 4
}

// BatchEmbed splits texts into provider-sized batches — bounded by both
// maxBatch items and maxTokensPerBatch estimated tokens, whichever is hit
// first — and embeds them concurrently, bounded by maxConcurrent in-flight
// requests (default 8 when maxConcurrent <= 0). Results are returned in the
// original order.
//
// A failure in one batch does not abort the others: every batch runs to
// completion (or failure) independently, and BatchEmbed returns both the
// partial results and a joined error describing which batches failed. The
// result slice doubles as the resume list: out[i] == nil marks a text whose
// batch never completed, so a retrying caller can collect those positions
// and pass only their texts back into BatchEmbed rather than re-embedding
// everything.
func BatchEmbed(ctx context.Context, e Embedder, texts []string, mode Mode, maxBatch, maxTokensPerBatch, maxConcurrent int) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if maxBatch <= 0 {
		maxBatch = 32
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}

	type batch struct {
		start int
		texts []string
	}
	var batches []batch
	var cur []string
	curStart, curTokens := 0, 0
	for i, t := range texts {
		tokens := EstimateTokens(t)
		if len(cur) > 0 && (len(cur) >= maxBatch || (maxTokensPerBatch > 0 && curTokens+tokens > maxTokensPerBatch)) {
			batches = append(batches, batch{start: curStart, texts: cur})
			cur = nil
			curStart, curTokens = i, 0
		}
		cur = append(cur, t)
		curTokens += tokens
	}
	if len(cur) > 0 {
		batches = append(batches, batch{start: curStart, texts: cur})
	}

	out := make([][]float32, len(texts))
	var mu sync.Mutex
	var failures []error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for _, b := range batches {
		b := b
		g.Go(func() error {
			vectors, err := e.Embed(gctx, b.texts, mode)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, fmt.Errorf("embed batch at offset %d: %w", b.start, err))
				return nil // sibling batches still run; their results are worth keeping on retry
			}
			for i, v := range vectors {
				out[b.start+i] = v
			}
			return nil
		})
	}

	g.Wait() // goroutines never return a non-nil error; failures is the record of what failed
	if len(failures) > 0 {
		return out, errors.Join(failures...)
	}
	return out, nil
}
