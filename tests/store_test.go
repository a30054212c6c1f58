package tests

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/octobrain/octobrain/internal/models"
	"github.com/octobrain/octobrain/internal/store"
)

func setupTestDB(t *testing.T) (*store.DB, func()) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return db, func() {
		db.Close()
		os.RemoveAll(dir)
	}
}

func TestWorkspaceStore(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ws := store.NewWorkspaceStore(db)
	now := models.NowMillis()

	t.Run("EnsureWorkspace creates new workspace", func(t *testing.T) {
		w, err := ws.EnsureWorkspace("ws-1", "/tmp/test-project", 768, "nomic-embed-text", now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if w.ID != "ws-1" {
			t.Fatalf("expected id ws-1, got %s", w.ID)
		}
		if w.EmbeddingModel != "nomic-embed-text" {
			t.Fatalf("expected embedding model recorded, got %q", w.EmbeddingModel)
		}

		// Re-ensuring bumps accessed_at but keeps the recorded embedding model.
		w2, err := ws.EnsureWorkspace("ws-1", "/tmp/test-project", 768, "nomic-embed-text", now+1000)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if w2.AccessedAt != now+1000 {
			t.Fatalf("expected accessed_at bumped, got %d", w2.AccessedAt)
		}
	})

	t.Run("GetWorkspace returns nil for unknown id", func(t *testing.T) {
		w, err := ws.GetWorkspace("does-not-exist")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if w != nil {
			t.Fatal("expected nil for unknown workspace")
		}
	})

	t.Run("ListWorkspaces returns all", func(t *testing.T) {
		_, _ = ws.EnsureWorkspace("ws-2", "/tmp/another-project", 768, "nomic-embed-text", now)
		list, err := ws.ListWorkspaces()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(list) < 2 {
			t.Fatalf("expected at least 2 workspaces, got %d", len(list))
		}
	})
}

func TestMemoryStore(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ms := store.NewMemoryStore(db)
	ws := store.NewWorkspaceStore(db)
	now := models.NowMillis()
	wsWorkspace, _ := ws.EnsureWorkspace("ws-1", "/tmp/test-project", 768, "nomic-embed-text", now)
	wsID := wsWorkspace.ID

	t.Run("Insert and GetByID", func(t *testing.T) {
		mem := &models.Memory{
			ID:             uuid.NewString(),
			WorkspaceID:    wsID,
			Title:          "effect patterns",
			Content:        "Use Effect.gen for generator-based effects",
			MemoryType:     models.MemoryTypeCode,
			Tags:           []string{"effect-ts"},
			Importance:     0.9,
			ContentHash:    "abc123",
			CreatedAt:      now,
			UpdatedAt:      now,
			LastAccessedAt: now,
		}

		if err := ms.Insert(mem); err != nil {
			t.Fatalf("insert failed: %v", err)
		}

		got, err := ms.GetByID(mem.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got == nil {
			t.Fatal("expected memory, got nil")
		}
		if got.Content != mem.Content {
			t.Fatalf("content mismatch: %s != %s", got.Content, mem.Content)
		}
		if got.MemoryType != models.MemoryTypeCode {
			t.Fatalf("type mismatch: %s", got.MemoryType)
		}
	})

	t.Run("Update", func(t *testing.T) {
		mem := &models.Memory{
			ID: uuid.NewString(), WorkspaceID: wsID, Title: "t", Content: "original",
			MemoryType: models.MemoryTypeDecision, Importance: 0.7,
			ContentHash: "def456", CreatedAt: now, UpdatedAt: now, LastAccessedAt: now,
		}
		ms.Insert(mem)

		newImportance := 0.95
		if err := ms.Update(mem.ID, &models.UpdateRequest{Importance: &newImportance}, models.NowMillis()); err != nil {
			t.Fatalf("update failed: %v", err)
		}
		got, _ := ms.GetByID(mem.ID)
		if got.Importance != 0.95 {
			t.Fatalf("expected importance 0.95, got %f", got.Importance)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		mem := &models.Memory{
			ID: uuid.NewString(), WorkspaceID: wsID, Title: "t", Content: "to delete",
			MemoryType: models.MemoryTypeDocumentation, Importance: 0.5,
			ContentHash: "ghi789", CreatedAt: now, UpdatedAt: now, LastAccessedAt: now,
		}
		ms.Insert(mem)

		if err := ms.Delete(mem.ID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}

		got, _ := ms.GetByID(mem.ID)
		if got != nil {
			t.Fatal("expected nil after delete")
		}
	})

	t.Run("FindByContentHash", func(t *testing.T) {
		hash := "unique-hash-123"
		mem := &models.Memory{
			ID: uuid.NewString(), WorkspaceID: wsID, Title: "t", Content: "hash test",
			MemoryType: models.MemoryTypeLearning, Importance: 0.8,
			ContentHash: hash, CreatedAt: now, UpdatedAt: now, LastAccessedAt: now,
		}
		ms.Insert(mem)

		found, err := ms.FindByContentHash(wsID, hash)
		if err != nil {
			t.Fatalf("find by hash failed: %v", err)
		}
		if len(found) != 1 {
			t.Fatalf("expected 1 result, got %d", len(found))
		}
		if found[0].ID != mem.ID {
			t.Fatalf("ID mismatch")
		}
	})

	t.Run("DeleteBelowImportanceOlderThan", func(t *testing.T) {
		past := now - 1000*86400000 // 1000 days ago
		mem := &models.Memory{
			ID: uuid.NewString(), WorkspaceID: wsID, Title: "t", Content: "stale and unimportant",
			MemoryType: models.MemoryTypeConfiguration, Importance: 0.05,
			ContentHash: "stale-hash", CreatedAt: past, UpdatedAt: past, LastAccessedAt: past,
		}
		ms.Insert(mem)

		deleted, err := ms.DeleteBelowImportanceOlderThan(wsID, 0.2, now-500*86400000)
		if err != nil {
			t.Fatalf("cleanup failed: %v", err)
		}
		found := false
		for _, id := range deleted {
			if id == mem.ID {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected %s among cleanup deletions, got %v", mem.ID, deleted)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		stats, err := ms.Stats(wsID)
		if err != nil {
			t.Fatalf("stats failed: %v", err)
		}
		if stats.Total < 1 {
			t.Fatal("expected at least 1 memory")
		}
	})
}

func TestEmbeddingCacheStore(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	cs := store.NewEmbeddingCacheStore(db)

	t.Run("Put and Get", func(t *testing.T) {
		entry := &models.EmbeddingCacheEntry{
			ContentHash: "test-hash",
			Embedding:   []byte{1, 2, 3, 4},
			Dimension:   768,
			Model:       "nomic-embed-text",
		}

		if err := cs.Put(entry); err != nil {
			t.Fatalf("put failed: %v", err)
		}

		got, err := cs.Get("test-hash")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got == nil {
			t.Fatal("expected entry, got nil")
		}
		if got.Model != "nomic-embed-text" {
			t.Fatalf("model mismatch: %s", got.Model)
		}
	})

	t.Run("Get miss returns nil", func(t *testing.T) {
		got, err := cs.Get("nonexistent")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Fatal("expected nil for cache miss")
		}
	})
}
