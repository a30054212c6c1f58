package models

import "time"

// Memory is the core domain entity: a short textual insight tied to a
// workspace, retrievable by hybrid semantic and lexical search.
type Memory struct {
	ID             string     `json:"id"`
	WorkspaceID    string     `json:"workspaceId"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	MemoryType     MemoryType `json:"memoryType"`
	Tags           []string   `json:"tags"`
	RelatedFiles   []string   `json:"relatedFiles,omitempty"`
	Importance     float64    `json:"importance"`
	ContentHash    string     `json:"contentHash"`
	Embedding      []byte     `json:"-"`
	EmbeddingModel string     `json:"-"`
	GitCommit      string     `json:"gitCommit,omitempty"`
	AccessCount    int        `json:"accessCount"`
	CreatedAt      int64      `json:"createdAt"`
	UpdatedAt      int64      `json:"updatedAt"`
	LastAccessedAt int64      `json:"lastAccessedAt"`
}

// NowMillis returns the current time as Unix milliseconds, the precision
// mandated for every timestamp in the data model.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// Workspace is the logical namespace every persistent structure lives
// under, identified by a hash of the Git remote URL (or "default").
type Workspace struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	EmbeddingDim  int    `json:"embeddingDim"`
	EmbeddingModel string `json:"embeddingModel"`
	CreatedAt     int64  `json:"createdAt"`
	AccessedAt    int64  `json:"accessedAt"`
}

// DefaultWorkspaceID is used when a Git remote cannot be resolved.
const DefaultWorkspaceID = "default"

// EmbeddingCacheEntry stores a cached embedding keyed by content hash, so
// re-embedding identical text after a retry or an update is free.
type EmbeddingCacheEntry struct {
	ContentHash string `json:"contentHash"`
	Embedding   []byte `json:"embedding"`
	Dimension   int    `json:"dimension"`
	Model       string `json:"model"`
	UpdatedAt   int64  `json:"updatedAt"`
}
