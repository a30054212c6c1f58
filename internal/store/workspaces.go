package store

import (
	"database/sql"
	"fmt"

	"github.com/octobrain/octobrain/internal/models"
)

// WorkspaceStore handles workspace registration and lookup. Workspace
// identity itself (hash of the Git remote URL, or "default") is computed by
// package gitutil; this store only persists the result.
type WorkspaceStore struct {
	db *DB
}

func NewWorkspaceStore(db *DB) *WorkspaceStore {
	return &WorkspaceStore{db: db}
}

// EnsureWorkspace registers a workspace if it doesn't exist (recording the
// embedding dimension/model the first time it is seen), or bumps
// accessed_at if it does. Returns the stored record.
func (s *WorkspaceStore) EnsureWorkspace(id, name string, embeddingDim int, embeddingModel string, now int64) (*models.Workspace, error) {
	_, err := s.db.Exec(`
		INSERT INTO workspaces (id, name, embedding_dim, embedding_model, created_at, accessed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET accessed_at = ?
	`, id, name, embeddingDim, embeddingModel, now, now, now)
	if err != nil {
		return nil, fmt.Errorf("ensure workspace: %w", err)
	}
	return s.GetWorkspace(id)
}

// GetWorkspace returns a workspace by ID, or (nil, nil) if absent.
func (s *WorkspaceStore) GetWorkspace(id string) (*models.Workspace, error) {
	var w models.Workspace
	err := s.db.QueryRow(`
		SELECT id, name, embedding_dim, embedding_model, created_at, accessed_at
		FROM workspaces WHERE id = ?
	`, id).Scan(&w.ID, &w.Name, &w.EmbeddingDim, &w.EmbeddingModel, &w.CreatedAt, &w.AccessedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get workspace: %w", err)
	}
	return &w, nil
}

// ListWorkspaces returns all registered workspaces, most recently accessed
// first.
func (s *WorkspaceStore) ListWorkspaces() ([]models.Workspace, error) {
	rows, err := s.db.Query(`
		SELECT id, name, embedding_dim, embedding_model, created_at, accessed_at
		FROM workspaces ORDER BY accessed_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	var workspaces []models.Workspace
	for rows.Next() {
		var w models.Workspace
		if err := rows.Scan(&w.ID, &w.Name, &w.EmbeddingDim, &w.EmbeddingModel, &w.CreatedAt, &w.AccessedAt); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		workspaces = append(workspaces, w)
	}
	return workspaces, rows.Err()
}
