package store

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/octobrain/octobrain/internal/models"
	"github.com/octobrain/octobrain/internal/vecmath"
)

// KnowledgeStore persists KnowledgeSource metadata and KnowledgeChunk text,
// backing C7's fetch/extract/chunk/index/search pipeline.
type KnowledgeStore struct {
	db *DB
}

func NewKnowledgeStore(db *DB) *KnowledgeStore {
	return &KnowledgeStore{db: db}
}

// GetSource returns the metadata record for a normalized URL, or (nil, nil)
// if it has never been indexed.
func (s *KnowledgeStore) GetSource(url string) (*models.KnowledgeSource, error) {
	var src models.KnowledgeSource
	err := s.db.QueryRow(`
		SELECT url, title, content_hash, ttl_seconds, fetched_at, indexed_at, chunk_count
		FROM knowledge_sources WHERE url = ?
	`, url).Scan(&src.URL, &src.Title, &src.ContentHash, &src.TTLSeconds, &src.FetchedAt, &src.IndexedAt, &src.ChunkCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get knowledge source: %w", err)
	}
	return &src, nil
}

// UpsertSource creates or replaces the metadata record for a URL.
func (s *KnowledgeStore) UpsertSource(workspaceID string, src *models.KnowledgeSource) error {
	_, err := s.db.Exec(`
		INSERT INTO knowledge_sources (url, workspace_id, title, content_hash, ttl_seconds, fetched_at, indexed_at, chunk_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title, content_hash = excluded.content_hash,
			ttl_seconds = excluded.ttl_seconds, fetched_at = excluded.fetched_at,
			indexed_at = excluded.indexed_at, chunk_count = excluded.chunk_count
	`, src.URL, workspaceID, src.Title, src.ContentHash, src.TTLSeconds, src.FetchedAt, src.IndexedAt, src.ChunkCount)
	if err != nil {
		return fmt.Errorf("upsert knowledge source: %w", err)
	}
	return nil
}

// DeleteSource removes a source and, via ON DELETE CASCADE, every chunk
// that belonged to it — the atomic knowledge_delete(url) operation.
func (s *KnowledgeStore) DeleteSource(url string) error {
	_, err := s.db.Exec(`DELETE FROM knowledge_sources WHERE url = ?`, url)
	if err != nil {
		return fmt.Errorf("delete knowledge source: %w", err)
	}
	return nil
}

// ReplaceChunks deletes every existing chunk for url and inserts the new
// set, implementing C7's "updates are replace-all, never incremental"
// requirement so ordinals stay stable within one generation.
func (s *KnowledgeStore) ReplaceChunks(url string, chunks []*models.KnowledgeChunk) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace chunks: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM knowledge_chunks WHERE source_url = ?`, url); err != nil {
		return fmt.Errorf("delete old chunks: %w", err)
	}

	for _, c := range chunks {
		_, err := tx.Exec(`
			INSERT INTO knowledge_chunks (id, source_url, ordinal, section_path, text, embedding, embedding_model, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, c.ID, c.SourceURL, c.Ordinal, c.SectionPath, c.Text, c.Embedding, c.EmbeddingModel, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}

	return tx.Commit()
}

// ChunksForSource returns every chunk belonging to url, ordered by ordinal.
func (s *KnowledgeStore) ChunksForSource(url string) ([]*models.KnowledgeChunk, error) {
	return s.queryChunks(`
		SELECT id, source_url, ordinal, section_path, text, embedding, embedding_model, created_at
		FROM knowledge_chunks WHERE source_url = ? ORDER BY ordinal ASC
	`, url)
}

// AllChunks returns every chunk in the store (global knowledge_search).
func (s *KnowledgeStore) AllChunks() ([]*models.KnowledgeChunk, error) {
	return s.queryChunks(`
		SELECT id, source_url, ordinal, section_path, text, embedding, embedding_model, created_at
		FROM knowledge_chunks
	`)
}

// AllText returns id/text pairs for every chunk, the raw material C3 builds
// the knowledge-chunk BM25 index from.
func (s *KnowledgeStore) AllText() ([]LexicalRow, error) {
	rows, err := s.db.Query(`SELECT id, text FROM knowledge_chunks`)
	if err != nil {
		return nil, fmt.Errorf("all chunk text: %w", err)
	}
	defer rows.Close()
	var out []LexicalRow
	for rows.Next() {
		var r LexicalRow
		if err := rows.Scan(&r.ID, &r.Text); err != nil {
			return nil, fmt.Errorf("scan chunk text: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *KnowledgeStore) queryChunks(query string, args ...any) ([]*models.KnowledgeChunk, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()
	var out []*models.KnowledgeChunk
	for rows.Next() {
		var c models.KnowledgeChunk
		var sectionPath sql.NullString
		if err := rows.Scan(&c.ID, &c.SourceURL, &c.Ordinal, &sectionPath, &c.Text, &c.Embedding, &c.EmbeddingModel, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if sectionPath.Valid {
			c.SectionPath = sectionPath.String
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// ScoredChunk is one k-NN hit over knowledge_chunks.
type ScoredChunk struct {
	Chunk *models.KnowledgeChunk
	Score float64
}

// KNNChunks ranks chunks by cosine similarity to query, optionally
// restricted to one source URL (scoped search).
func (s *KnowledgeStore) KNNChunks(query []float32, k int, sourceURL string) ([]ScoredChunk, error) {
	var chunks []*models.KnowledgeChunk
	var err error
	if sourceURL != "" {
		chunks, err = s.ChunksForSource(sourceURL)
	} else {
		chunks, err = s.AllChunks()
	}
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		vec := vecmath.FromBytes(c.Embedding)
		if vec == nil {
			continue
		}
		scored = append(scored, ScoredChunk{Chunk: c, Score: vecmath.Cosine(query, vec)})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}
