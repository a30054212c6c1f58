// Package embedding is C1: a narrow capability set over embedding
// providers, {embed, rerank?}, rather than a provider interface with every
// method a provider might conceivably support. A provider advertises
// reranking by also implementing Reranker; callers query for it with a type
// assertion instead of calling a method that might return ErrNotSupported.
package embedding

import "context"

// Mode distinguishes how a text should be embedded, since some embedding
// models use different instructions for queries versus stored documents.
type Mode int

const (
	ModeDocument Mode = iota
	ModeQuery
)

// Embedder turns text into vectors. Implementations must be safe for
// concurrent use; callers may embed many texts through the same instance at
// once via errgroup-bounded batches.
type Embedder interface {
	// Embed returns one vector per text, in the same order. A partial
	// failure fails the whole call — partial embedding batches are never
	// returned, matching the "commit together or not at all" requirement.
	Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error)

	// Dimension reports the vector length this embedder produces, or 0 if
	// unknown before the first call.
	Dimension() int

	// Model identifies the embedding model, stored alongside each vector so
	// a later model change can be detected as ErrEmbeddingModelMismatch.
	Model() string
}

// Reranker is the optional capability of an Embedder: cross-encoder scoring
// of a query against a candidate document list. Queried at runtime with a
// type assertion, never assumed present.
type Reranker interface {
	// Rerank returns one raw score per document, in the same order as docs.
	// Scores are not normalized; callers apply sigmoid normalization.
	Rerank(ctx context.Context, query string, docs []string) ([]float64, error)
}
