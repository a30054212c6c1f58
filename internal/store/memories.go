package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/octobrain/octobrain/internal/models"
)

// memoryColumns is the canonical column list for all SELECT queries. Order
// must match scanOne/scanMany.
const memoryColumns = `id, workspace_id, title, content, memory_type,
	tags, related_files, importance, content_hash,
	embedding, embedding_model, git_commit, access_count,
	created_at, updated_at, last_accessed_at`

// MemoryStore handles Memory CRUD operations on SQLite. It backs C2 (the
// vector table) and C5 (the memory manager) together, since both operate
// on the same row.
type MemoryStore struct {
	db *DB
}

func NewMemoryStore(db *DB) *MemoryStore {
	return &MemoryStore{db: db}
}

// Insert stores a new memory. The caller must set all required fields
// including ID and ContentHash.
func (s *MemoryStore) Insert(m *models.Memory) error {
	tagsJSON, _ := json.Marshal(m.Tags)
	relatedFilesJSON, _ := json.Marshal(m.RelatedFiles)

	_, err := s.db.Exec(`
		INSERT INTO memories (
			id, workspace_id, title, content, memory_type,
			tags, related_files, importance, content_hash,
			embedding, embedding_model, git_commit, access_count,
			created_at, updated_at, last_accessed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ID, m.WorkspaceID, m.Title, m.Content, string(m.MemoryType),
		string(tagsJSON), string(relatedFilesJSON), m.Importance, m.ContentHash,
		m.Embedding, m.EmbeddingModel, nullIfEmpty(m.GitCommit), m.AccessCount,
		m.CreatedAt, m.UpdatedAt, m.LastAccessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// GetByID fetches a single memory by ID. Returns (nil, nil) when absent.
func (s *MemoryStore) GetByID(id string) (*models.Memory, error) {
	m, err := s.scanOne(s.db.QueryRow(
		fmt.Sprintf(`SELECT %s FROM memories WHERE id = ?`, memoryColumns), id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// Delete removes a memory by ID. No error if it does not exist; callers
// that need NotFound semantics check existence first.
func (s *MemoryStore) Delete(id string) error {
	_, err := s.db.Exec("DELETE FROM memories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	return nil
}

// DeleteWorkspace drops every memory in a workspace, used by clear_all().
func (s *MemoryStore) DeleteWorkspace(workspaceID string) error {
	_, err := s.db.Exec("DELETE FROM memories WHERE workspace_id = ?", workspaceID)
	if err != nil {
		return fmt.Errorf("delete workspace memories: %w", err)
	}
	return nil
}

// Update applies the fields set on req and bumps updated_at.
func (s *MemoryStore) Update(id string, req *models.UpdateRequest, now int64) error {
	sets := []string{"updated_at = ?"}
	args := []any{now}

	if req.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *req.Title)
	}
	if req.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *req.Content)
	}
	if req.MemoryType != nil {
		sets = append(sets, "memory_type = ?")
		args = append(args, string(*req.MemoryType))
	}
	if req.Tags != nil {
		tagsJSON, _ := json.Marshal(*req.Tags)
		sets = append(sets, "tags = ?")
		args = append(args, string(tagsJSON))
	}
	if req.RelatedFiles != nil {
		filesJSON, _ := json.Marshal(*req.RelatedFiles)
		sets = append(sets, "related_files = ?")
		args = append(args, string(filesJSON))
	}
	if req.Importance != nil {
		sets = append(sets, "importance = ?")
		args = append(args, *req.Importance)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE memories SET %s WHERE id = ?", strings.Join(sets, ", "))
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("update memory: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("memory not found: %s", id)
	}
	return nil
}

// SetEmbedding replaces a memory's embedding (used on re-embed after a
// title/content update).
func (s *MemoryStore) SetEmbedding(id string, embedding []byte, model string) error {
	_, err := s.db.Exec(`UPDATE memories SET embedding = ?, embedding_model = ? WHERE id = ?`,
		embedding, model, id)
	return err
}

// FindByContentHash finds memories with the given content hash in a
// workspace, used by memorize()'s exact-duplicate check.
func (s *MemoryStore) FindByContentHash(workspaceID, hash string) ([]*models.Memory, error) {
	rows, err := s.db.Query(
		fmt.Sprintf(`SELECT %s FROM memories WHERE workspace_id = ? AND content_hash = ?`, memoryColumns),
		workspaceID, hash)
	if err != nil {
		return nil, fmt.Errorf("find by hash: %w", err)
	}
	defer rows.Close()
	return s.scanMany(rows)
}

// GetAllWithEmbeddings returns every embedded memory in a workspace, the
// candidate set for C2's brute-force cosine k-NN.
func (s *MemoryStore) GetAllWithEmbeddings(workspaceID string) ([]*models.Memory, error) {
	rows, err := s.db.Query(
		fmt.Sprintf(`SELECT %s FROM memories WHERE workspace_id = ? AND embedding IS NOT NULL`, memoryColumns),
		workspaceID)
	if err != nil {
		return nil, fmt.Errorf("get with embeddings: %w", err)
	}
	defer rows.Close()
	return s.scanMany(rows)
}

// AllText returns id and title plus content for every memory in a workspace,
// the raw material C3 rebuilds its BM25 index from.
func (s *MemoryStore) AllText(workspaceID string) ([]LexicalRow, error) {
	rows, err := s.db.Query(`SELECT id, title, content FROM memories WHERE workspace_id = ?`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("all text: %w", err)
	}
	defer rows.Close()
	var out []LexicalRow
	for rows.Next() {
		var r LexicalRow
		if err := rows.Scan(&r.ID, &r.Title, &r.Text); err != nil {
			return nil, fmt.Errorf("scan lexical row: %w", err)
		}
		r.Text = r.Title + "\n" + r.Text
		out = append(out, r)
	}
	return out, rows.Err()
}

// IncrementAccess bumps access_count and last_accessed_at, enforcing the
// access_count-is-monotone invariant.
func (s *MemoryStore) IncrementAccess(id string, now int64) error {
	_, err := s.db.Exec(`
		UPDATE memories SET access_count = access_count + 1, last_accessed_at = ?
		WHERE id = ?
	`, now, id)
	return err
}

// List returns memories matching filters, most recent first, for recent(),
// by_type(), by_tags(), and for_files().
func (s *MemoryStore) List(req *models.ListRequest) ([]*models.Memory, error) {
	var conditions []string
	var args []any

	if req.WorkspaceID != "" {
		conditions = append(conditions, "workspace_id = ?")
		args = append(args, req.WorkspaceID)
	}
	if len(req.MemoryTypes) > 0 {
		placeholders := make([]string, len(req.MemoryTypes))
		for i, mt := range req.MemoryTypes {
			placeholders[i] = "?"
			args = append(args, string(mt))
		}
		conditions = append(conditions, fmt.Sprintf("memory_type IN (%s)", strings.Join(placeholders, ",")))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := req.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := fmt.Sprintf(`SELECT %s FROM memories %s ORDER BY created_at DESC LIMIT ?`, memoryColumns, whereClause)
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	all, err := s.scanMany(rows)
	if err != nil {
		return nil, err
	}

	// Tags and related-files filters are any-of and applied in-process
	// since they are JSON-encoded columns, not separate normalized tables.
	if len(req.Tags) == 0 && len(req.RelatedFiles) == 0 {
		return all, nil
	}
	var filtered []*models.Memory
	for _, m := range all {
		if len(req.Tags) > 0 && !anyMatch(m.Tags, req.Tags) {
			continue
		}
		if len(req.RelatedFiles) > 0 && !anyMatch(m.RelatedFiles, req.RelatedFiles) {
			continue
		}
		filtered = append(filtered, m)
	}
	return filtered, nil
}

func anyMatch(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, h := range have {
		set[h] = true
	}
	for _, w := range want {
		if set[w] {
			return true
		}
	}
	return false
}

// Stats computes per-type counts, oldest created_at, and mean importance
// for stats().
func (s *MemoryStore) Stats(workspaceID string) (*models.Stats, error) {
	stats := &models.Stats{WorkspaceID: workspaceID, ByType: map[models.MemoryType]int{}}

	err := s.db.QueryRow(`SELECT COUNT(*) FROM memories WHERE workspace_id = ?`, workspaceID).Scan(&stats.Total)
	if err != nil {
		return nil, fmt.Errorf("count total: %w", err)
	}
	if stats.Total == 0 {
		return stats, nil
	}

	err = s.db.QueryRow(`SELECT MIN(created_at) FROM memories WHERE workspace_id = ?`, workspaceID).Scan(&stats.OldestCreatedAt)
	if err != nil {
		return nil, fmt.Errorf("oldest: %w", err)
	}
	err = s.db.QueryRow(`SELECT AVG(importance) FROM memories WHERE workspace_id = ?`, workspaceID).Scan(&stats.AverageImportance)
	if err != nil {
		return nil, fmt.Errorf("avg importance: %w", err)
	}

	rows, err := s.db.Query(`SELECT memory_type, COUNT(*) FROM memories WHERE workspace_id = ? GROUP BY memory_type`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("by type: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var mt string
		var c int
		if err := rows.Scan(&mt, &c); err != nil {
			return nil, fmt.Errorf("scan by type: %w", err)
		}
		stats.ByType[models.MemoryType(mt)] = c
	}
	return stats, rows.Err()
}

// DeleteBelowImportanceOlderThan implements cleanup()'s deletion rule and
// returns the deleted ids, so the caller can purge dangling relationships.
func (s *MemoryStore) DeleteBelowImportanceOlderThan(workspaceID string, minImportance float64, cutoffMillis int64) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT id FROM memories WHERE workspace_id = ? AND importance < ? AND created_at < ?`,
		workspaceID, minImportance, cutoffMillis)
	if err != nil {
		return nil, fmt.Errorf("query cleanup candidates: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan cleanup candidate: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	_, err = s.db.Exec(fmt.Sprintf(`DELETE FROM memories WHERE id IN (%s)`, strings.Join(placeholders, ",")), args...)
	if err != nil {
		return nil, fmt.Errorf("delete cleanup candidates: %w", err)
	}
	return ids, nil
}

func (s *MemoryStore) scanOne(row *sql.Row) (*models.Memory, error) {
	var m models.Memory
	var tagsJSON, relatedFilesJSON, embModel, gitCommit sql.NullString

	err := row.Scan(
		&m.ID, &m.WorkspaceID, &m.Title, &m.Content, &m.MemoryType,
		&tagsJSON, &relatedFilesJSON, &m.Importance, &m.ContentHash,
		&m.Embedding, &embModel, &gitCommit, &m.AccessCount,
		&m.CreatedAt, &m.UpdatedAt, &m.LastAccessedAt,
	)
	if err != nil {
		return nil, err
	}
	populateMemoryNullables(&m, tagsJSON, relatedFilesJSON, embModel, gitCommit)
	return &m, nil
}

func (s *MemoryStore) scanMany(rows *sql.Rows) ([]*models.Memory, error) {
	var result []*models.Memory
	for rows.Next() {
		var m models.Memory
		var tagsJSON, relatedFilesJSON, embModel, gitCommit sql.NullString

		if err := rows.Scan(
			&m.ID, &m.WorkspaceID, &m.Title, &m.Content, &m.MemoryType,
			&tagsJSON, &relatedFilesJSON, &m.Importance, &m.ContentHash,
			&m.Embedding, &embModel, &gitCommit, &m.AccessCount,
			&m.CreatedAt, &m.UpdatedAt, &m.LastAccessedAt,
		); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		populateMemoryNullables(&m, tagsJSON, relatedFilesJSON, embModel, gitCommit)
		result = append(result, &m)
	}
	return result, rows.Err()
}

func populateMemoryNullables(m *models.Memory, tagsJSON, relatedFilesJSON, embModel, gitCommit sql.NullString) {
	if tagsJSON.Valid {
		json.Unmarshal([]byte(tagsJSON.String), &m.Tags)
	}
	if relatedFilesJSON.Valid {
		json.Unmarshal([]byte(relatedFilesJSON.String), &m.RelatedFiles)
	}
	if embModel.Valid {
		m.EmbeddingModel = embModel.String
	}
	if gitCommit.Valid {
		m.GitCommit = gitCommit.String
	}
}

// LexicalRow is the raw text C3 indexes, id plus title+content joined.
type LexicalRow struct {
	ID    string
	Title string
	Text  string
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
