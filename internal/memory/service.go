// Package memory is C5: the memory manager. It owns strict input
// validation, orchestrates C1 (embed), C4 (via the hybrid retriever for
// remember), and the memories/relationships tables. It is the only package
// that writes memory content; the hybrid retriever only bumps access counters.
package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/octobrain/octobrain/internal/embedding"
	"github.com/octobrain/octobrain/internal/models"
	"github.com/octobrain/octobrain/internal/search"
	"github.com/octobrain/octobrain/internal/store"
	"github.com/octobrain/octobrain/internal/vecmath"
)

const (
	maxTags      = 32
	maxTagLength = 64
)

// normalizeTags lowercases each tag, rejects entries with whitespace or
// over maxTagLength, dedupes while preserving first-seen order, and
// enforces the maxTags ceiling.
func normalizeTags(tags []string) ([]string, error) {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, raw := range tags {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if tag == "" {
			continue
		}
		if len(tag) > maxTagLength {
			return nil, fmt.Errorf("%w: tag %q exceeds %d characters", models.ErrInvalidInput, tag, maxTagLength)
		}
		if strings.ContainsAny(tag, " \t\n\r\v\f") {
			return nil, fmt.Errorf("%w: tag %q contains whitespace", models.ErrInvalidInput, tag)
		}
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	if len(out) > maxTags {
		return nil, fmt.Errorf("%w: at most %d tags are allowed, got %d", models.ErrInvalidInput, maxTags, len(out))
	}
	return out, nil
}

// dedupeFiles removes duplicate entries from files, preserving the order of
// first occurrence.
func dedupeFiles(files []string) []string {
	seen := make(map[string]bool, len(files))
	out := make([]string, 0, len(files))
	for _, f := range files {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// Service is C5.
type Service struct {
	memories      *store.MemoryStore
	relationships *store.RelationshipStore
	lexical       *search.LexicalIndex
	retriever     *search.HybridRetriever
	embedder      embedding.Embedder
	workspaceID   string
	gitCommit     string
}

func NewService(
	memories *store.MemoryStore,
	relationships *store.RelationshipStore,
	lexical *search.LexicalIndex,
	retriever *search.HybridRetriever,
	embedder embedding.Embedder,
	workspaceID string,
	gitCommit string,
) *Service {
	return &Service{
		memories:      memories,
		relationships: relationships,
		lexical:       lexical,
		retriever:     retriever,
		embedder:      embedder,
		workspaceID:   workspaceID,
		gitCommit:     gitCommit,
	}
}

// RefreshLexicalIndex rebuilds C3 from the current store contents. Called
// once at startup and after every mutation, since the index is not
// incremental.
func (s *Service) RefreshLexicalIndex() error {
	rows, err := s.memories.AllText(s.workspaceID)
	if err != nil {
		return fmt.Errorf("refresh lexical index: %w", err)
	}
	docs := make([]search.LexicalDoc, len(rows))
	for i, r := range rows {
		docs[i] = search.LexicalDoc{ID: r.ID, Text: r.Text}
	}
	s.lexical.Build(docs)
	return nil
}

// Memorize validates fields, embeds title+content, and stores the memory.
// Validation happens entirely before the embed call so a rejected request
// never pays for one. An exact retry (identical title+content) short-
// circuits on the content hash and returns the existing memory's id rather
// than re-embedding and inserting a duplicate.
func (s *Service) Memorize(ctx context.Context, req *models.StoreRequest) (*models.StoreResponse, error) {
	title := strings.TrimSpace(req.Title)
	content := strings.TrimSpace(req.Content)
	if title == "" || content == "" {
		return nil, fmt.Errorf("memorize: %w: title and content must be non-empty", models.ErrInvalidInput)
	}
	if !req.MemoryType.IsValid() {
		return nil, fmt.Errorf("memorize: %w: unknown memory type %q", models.ErrInvalidInput, req.MemoryType)
	}
	importance := models.DefaultImportance
	if req.Importance != nil {
		importance = *req.Importance
		if importance < 0 || importance > 1 {
			return nil, fmt.Errorf("memorize: %w: importance must be in [0,1]", models.ErrInvalidInput)
		}
	}
	tags, err := normalizeTags(req.Tags)
	if err != nil {
		return nil, fmt.Errorf("memorize: %w", err)
	}
	relatedFiles := dedupeFiles(req.RelatedFiles)

	text := title + "\n" + content
	contentHash := embedding.ContentHash(text)
	existing, err := s.memories.FindByContentHash(s.workspaceID, contentHash)
	if err != nil {
		return nil, fmt.Errorf("memorize: %w", err)
	}
	if len(existing) > 0 {
		return &models.StoreResponse{ID: existing[0].ID}, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{text}, embedding.ModeDocument)
	if err != nil {
		return nil, fmt.Errorf("memorize: %w: %v", models.ErrEmbedderUnavailable, err)
	}

	now := models.NowMillis()
	m := &models.Memory{
		ID:             uuid.NewString(),
		WorkspaceID:    s.workspaceID,
		Title:          title,
		Content:        content,
		MemoryType:     req.MemoryType,
		Tags:           tags,
		RelatedFiles:   relatedFiles,
		Importance:     importance,
		ContentHash:    contentHash,
		Embedding:      vecmath.ToBytes(vectors[0]),
		EmbeddingModel: s.embedder.Model(),
		GitCommit:      s.gitCommit,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastAccessedAt: now,
	}
	if err := s.memories.Insert(m); err != nil {
		return nil, fmt.Errorf("memorize: %w", err)
	}
	if err := s.RefreshLexicalIndex(); err != nil {
		return nil, err
	}
	return &models.StoreResponse{ID: m.ID}, nil
}

// Remember delegates to C4.
func (s *Service) Remember(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	var nonEmpty []string
	for _, q := range req.Queries {
		if strings.TrimSpace(q) != "" {
			nonEmpty = append(nonEmpty, q)
		}
	}
	if len(nonEmpty) == 0 {
		return nil, fmt.Errorf("remember: %w: at least one non-empty query is required", models.ErrInvalidInput)
	}
	return s.retriever.Retrieve(ctx, search.RetrieveOptions{
		WorkspaceID:  s.workspaceID,
		Queries:      nonEmpty,
		Filter:       req.Filter,
		Limit:        req.Limit,
		MinRelevance: req.MinRelevance,
		UseReranker:  req.UseReranker,
		DecayEnabled: true,
	})
}

// Forget deletes a memory by id.
func (s *Service) Forget(id string) error {
	m, err := s.memories.GetByID(id)
	if err != nil {
		return fmt.Errorf("forget: %w", err)
	}
	if m == nil {
		return fmt.Errorf("forget: %w: %s", models.ErrNotFound, id)
	}
	if err := s.relationships.DeleteForMemory(id); err != nil {
		return fmt.Errorf("forget: %w", err)
	}
	if err := s.memories.Delete(id); err != nil {
		return fmt.Errorf("forget: %w", err)
	}
	return s.RefreshLexicalIndex()
}

// ForgetByQuery deletes every memory remember(query) would return. It
// requires explicit confirmation since a natural-language query can match
// an unbounded number of records.
func (s *Service) ForgetByQuery(ctx context.Context, query string, confirm bool) (int, error) {
	if strings.TrimSpace(query) == "" {
		return 0, fmt.Errorf("forget: %w: query must be non-empty", models.ErrInvalidInput)
	}
	if !confirm {
		return 0, fmt.Errorf("forget: %w: pass confirm=true to delete by query", models.ErrAmbiguous)
	}
	resp, err := s.Remember(ctx, &models.SearchRequest{Queries: []string{query}, Limit: 500})
	if err != nil {
		return 0, err
	}
	for _, r := range resp.Results {
		if err := s.Forget(r.Memory.ID); err != nil {
			return 0, err
		}
	}
	return len(resp.Results), nil
}

// Update merges patch into memory id, re-embedding when title or content
// changed.
func (s *Service) Update(ctx context.Context, id string, req *models.UpdateRequest) error {
	m, err := s.memories.GetByID(id)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if m == nil {
		return fmt.Errorf("update: %w: %s", models.ErrNotFound, id)
	}
	if req.MemoryType != nil && !req.MemoryType.IsValid() {
		return fmt.Errorf("update: %w: unknown memory type %q", models.ErrInvalidInput, *req.MemoryType)
	}
	if req.Importance != nil && (*req.Importance < 0 || *req.Importance > 1) {
		return fmt.Errorf("update: %w: importance must be in [0,1]", models.ErrInvalidInput)
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return fmt.Errorf("update: %w: title must be non-empty", models.ErrInvalidInput)
	}
	if req.Content != nil && strings.TrimSpace(*req.Content) == "" {
		return fmt.Errorf("update: %w: content must be non-empty", models.ErrInvalidInput)
	}
	if req.Tags != nil {
		normalized, err := normalizeTags(*req.Tags)
		if err != nil {
			return fmt.Errorf("update: %w", err)
		}
		req.Tags = &normalized
	}
	if req.RelatedFiles != nil {
		deduped := dedupeFiles(*req.RelatedFiles)
		req.RelatedFiles = &deduped
	}

	now := models.NowMillis()
	if err := s.memories.Update(id, req, now); err != nil {
		return fmt.Errorf("update: %w", err)
	}

	if req.Title != nil || req.Content != nil {
		title, content := m.Title, m.Content
		if req.Title != nil {
			title = *req.Title
		}
		if req.Content != nil {
			content = *req.Content
		}
		text := title + "\n" + content
		vectors, err := s.embedder.Embed(ctx, []string{text}, embedding.ModeDocument)
		if err != nil {
			return fmt.Errorf("update: %w: %v", models.ErrEmbedderUnavailable, err)
		}
		if err := s.memories.SetEmbedding(id, vecmath.ToBytes(vectors[0]), s.embedder.Model()); err != nil {
			return fmt.Errorf("update: %w", err)
		}
	}
	return s.RefreshLexicalIndex()
}

// Get returns a memory by id and bumps its access counters.
func (s *Service) Get(id string) (*models.Memory, error) {
	m, err := s.memories.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("get: %w: %s", models.ErrNotFound, id)
	}
	now := models.NowMillis()
	_ = s.memories.IncrementAccess(id, now)
	m.AccessCount++
	m.LastAccessedAt = now
	return m, nil
}

// Recent returns the most recently created memories.
func (s *Service) Recent(limit int) ([]*models.Memory, error) {
	return s.memories.List(&models.ListRequest{WorkspaceID: s.workspaceID, Limit: limit})
}

// ByType returns memories matching any of the given types.
func (s *Service) ByType(types []models.MemoryType, limit int) ([]*models.Memory, error) {
	return s.memories.List(&models.ListRequest{WorkspaceID: s.workspaceID, MemoryTypes: types, Limit: limit})
}

// ByTags returns memories matching any of the given tags.
func (s *Service) ByTags(tags []string, limit int) ([]*models.Memory, error) {
	return s.memories.List(&models.ListRequest{WorkspaceID: s.workspaceID, Tags: tags, Limit: limit})
}

// ForFiles returns memories related to any of the given file paths.
func (s *Service) ForFiles(files []string, limit int) ([]*models.Memory, error) {
	return s.memories.List(&models.ListRequest{WorkspaceID: s.workspaceID, RelatedFiles: files, Limit: limit})
}

// Stats computes per-type counts, total, oldest, and average importance.
func (s *Service) Stats() (*models.Stats, error) {
	return s.memories.Stats(s.workspaceID)
}

// Cleanup deletes memories below the importance floor that are also older
// than the age ceiling, then purges any relationship edges left dangling.
func (s *Service) Cleanup(policy *models.CleanupPolicy) (*models.CleanupResult, error) {
	minImportance := 0.2
	maxAgeDays := 180
	if policy != nil {
		if policy.MinImportance > 0 {
			minImportance = policy.MinImportance
		}
		if policy.MaxAgeDays > 0 {
			maxAgeDays = policy.MaxAgeDays
		}
	}
	cutoff := models.NowMillis() - int64(maxAgeDays)*86400000

	deletedIDs, err := s.memories.DeleteBelowImportanceOlderThan(s.workspaceID, minImportance, cutoff)
	if err != nil {
		return nil, fmt.Errorf("cleanup: %w", err)
	}
	danglingPurged, err := s.relationships.DeleteDangling(deletedIDs)
	if err != nil {
		return nil, fmt.Errorf("cleanup: %w", err)
	}
	if len(deletedIDs) > 0 {
		if err := s.RefreshLexicalIndex(); err != nil {
			return nil, err
		}
	}
	return &models.CleanupResult{Deleted: len(deletedIDs), DanglingEdges: int(danglingPurged)}, nil
}

// ClearAll drops every memory and relationship in the workspace. confirm
// must equal the workspace id, an explicit confirmation token, guarding
// against an accidental call wiping a whole workspace.
func (s *Service) ClearAll(confirm string) error {
	if confirm != s.workspaceID {
		return fmt.Errorf("clear_all: %w: pass the workspace id as confirm", models.ErrConfirmationRequired)
	}
	if err := s.relationships.DeleteWorkspace(s.workspaceID); err != nil {
		return fmt.Errorf("clear_all: %w", err)
	}
	if err := s.memories.DeleteWorkspace(s.workspaceID); err != nil {
		return fmt.Errorf("clear_all: %w", err)
	}
	return s.RefreshLexicalIndex()
}
