package store

import (
	"fmt"

	"github.com/octobrain/octobrain/internal/models"
)

// RelationshipStore handles the relationships table: the typed directed
// edges C6 traverses. Keyed by (source_id, target_id, type), replacing
// strength on re-relate rather than rejecting the duplicate.
type RelationshipStore struct {
	db *DB
}

func NewRelationshipStore(db *DB) *RelationshipStore {
	return &RelationshipStore{db: db}
}

// Upsert creates an edge or replaces its strength if (source, target, type)
// already exists.
func (s *RelationshipStore) Upsert(r *models.Relationship) error {
	_, err := s.db.Exec(`
		INSERT INTO relationships (source_id, target_id, type, strength, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_id, target_id, type) DO UPDATE SET strength = excluded.strength
	`, r.SourceID, r.TargetID, string(r.Type), r.Strength, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert relationship: %w", err)
	}
	return nil
}

// Outgoing returns edges where id is the source.
func (s *RelationshipStore) Outgoing(id string) ([]models.Relationship, error) {
	return s.queryEdges(`SELECT source_id, target_id, type, strength, created_at FROM relationships WHERE source_id = ?`, id)
}

// Incoming returns edges where id is the target.
func (s *RelationshipStore) Incoming(id string) ([]models.Relationship, error) {
	return s.queryEdges(`SELECT source_id, target_id, type, strength, created_at FROM relationships WHERE target_id = ?`, id)
}

func (s *RelationshipStore) queryEdges(query string, args ...any) ([]models.Relationship, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query relationships: %w", err)
	}
	defer rows.Close()
	var out []models.Relationship
	for rows.Next() {
		var r models.Relationship
		if err := rows.Scan(&r.SourceID, &r.TargetID, &r.Type, &r.Strength, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteDangling removes every edge touching any id in deadIDs, purging
// references to memories that no longer exist. Called from cleanup();
// single-memory deletes use DeleteForMemory.
func (s *RelationshipStore) DeleteDangling(deadIDs []string) (int64, error) {
	if len(deadIDs) == 0 {
		return 0, nil
	}
	var total int64
	for _, id := range deadIDs {
		res, err := s.db.Exec(`DELETE FROM relationships WHERE source_id = ? OR target_id = ?`, id, id)
		if err != nil {
			return total, fmt.Errorf("delete dangling edges: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// DeleteForMemory removes every edge touching a single memory id, called
// when forget(id) deletes that memory.
func (s *RelationshipStore) DeleteForMemory(id string) error {
	_, err := s.db.Exec(`DELETE FROM relationships WHERE source_id = ? OR target_id = ?`, id, id)
	if err != nil {
		return fmt.Errorf("delete relationships for memory: %w", err)
	}
	return nil
}

// DeleteWorkspace drops every relationship whose endpoints belong to a
// workspace, used by clear_all().
func (s *RelationshipStore) DeleteWorkspace(workspaceID string) error {
	_, err := s.db.Exec(`
		DELETE FROM relationships WHERE source_id IN (SELECT id FROM memories WHERE workspace_id = ?)
		   OR target_id IN (SELECT id FROM memories WHERE workspace_id = ?)
	`, workspaceID, workspaceID)
	if err != nil {
		return fmt.Errorf("delete workspace relationships: %w", err)
	}
	return nil
}
