package memory

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/octobrain/octobrain/internal/embedding"
	"github.com/octobrain/octobrain/internal/models"
	"github.com/octobrain/octobrain/internal/search"
	"github.com/octobrain/octobrain/internal/store"
)

type fakeEmbedder struct{ calls int }

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string, mode embedding.Mode) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}
func (f *fakeEmbedder) Dimension() int { return 3 }
func (f *fakeEmbedder) Model() string  { return "fake" }

func setupTestService(t *testing.T, embedder *fakeEmbedder) *Service {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		os.RemoveAll(dir)
	})
	if _, err := store.NewWorkspaceStore(db).EnsureWorkspace("ws", "ws", 3, "fake", models.NowMillis()); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}

	memories := store.NewMemoryStore(db)
	relationships := store.NewRelationshipStore(db)
	vectors := store.NewVectorIndex(memories)
	lexical := search.NewLexicalIndex()
	retriever := search.NewHybridRetriever(memories, vectors, lexical, embedder, 0.7, 0.3, 50, 90)
	return NewService(memories, relationships, lexical, retriever, embedder, "ws", "abc123")
}

func TestMemorizeNormalizesTags(t *testing.T) {
	svc := setupTestService(t, &fakeEmbedder{})

	resp, err := svc.Memorize(t.Context(), &models.StoreRequest{
		Title: "t", Content: "c", MemoryType: models.MemoryTypeCode,
		Tags: []string{"Go", " go ", "SQLite"},
	})
	if err != nil {
		t.Fatalf("memorize: %v", err)
	}
	m, err := svc.Get(resp.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(m.Tags) != 2 || m.Tags[0] != "go" || m.Tags[1] != "sqlite" {
		t.Fatalf("expected deduped lowercase tags [go sqlite], got %v", m.Tags)
	}
}

func TestMemorizeRejectsTagWithWhitespace(t *testing.T) {
	svc := setupTestService(t, &fakeEmbedder{})

	_, err := svc.Memorize(t.Context(), &models.StoreRequest{
		Title: "t", Content: "c", MemoryType: models.MemoryTypeCode,
		Tags: []string{"bad tag"},
	})
	if err == nil {
		t.Fatal("expected an error for a tag containing whitespace")
	}
}

func TestMemorizeRejectsTooManyTags(t *testing.T) {
	svc := setupTestService(t, &fakeEmbedder{})
	tags := make([]string, 33)
	for i := range tags {
		tags[i] = "tag" + strconv.Itoa(i)
	}

	_, err := svc.Memorize(t.Context(), &models.StoreRequest{
		Title: "t", Content: "c", MemoryType: models.MemoryTypeCode, Tags: tags,
	})
	if err == nil {
		t.Fatal("expected an error for more than 32 tags")
	}
}

func TestMemorizeDedupesRelatedFiles(t *testing.T) {
	svc := setupTestService(t, &fakeEmbedder{})

	resp, err := svc.Memorize(t.Context(), &models.StoreRequest{
		Title: "t", Content: "c", MemoryType: models.MemoryTypeCode,
		RelatedFiles: []string{"a.go", "b.go", "a.go"},
	})
	if err != nil {
		t.Fatalf("memorize: %v", err)
	}
	m, _ := svc.Get(resp.ID)
	if len(m.RelatedFiles) != 2 || m.RelatedFiles[0] != "a.go" || m.RelatedFiles[1] != "b.go" {
		t.Fatalf("expected deduped related files [a.go b.go], got %v", m.RelatedFiles)
	}
}

func TestMemorizeExactRetryShortCircuits(t *testing.T) {
	embedder := &fakeEmbedder{}
	svc := setupTestService(t, embedder)

	req := &models.StoreRequest{Title: "t", Content: "same content", MemoryType: models.MemoryTypeCode}
	first, err := svc.Memorize(t.Context(), req)
	if err != nil {
		t.Fatalf("first memorize: %v", err)
	}
	second, err := svc.Memorize(t.Context(), req)
	if err != nil {
		t.Fatalf("second memorize: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected an exact retry to return the existing id, got %s != %s", second.ID, first.ID)
	}
	if embedder.calls != 1 {
		t.Fatalf("expected the retry to skip embedding, got %d embed calls", embedder.calls)
	}
}

func TestUpdateNormalizesTagsAndFiles(t *testing.T) {
	svc := setupTestService(t, &fakeEmbedder{})

	resp, err := svc.Memorize(t.Context(), &models.StoreRequest{
		Title: "t", Content: "c", MemoryType: models.MemoryTypeCode,
	})
	if err != nil {
		t.Fatalf("memorize: %v", err)
	}

	tags := []string{"Go", "go"}
	files := []string{"x.go", "x.go"}
	if err := svc.Update(t.Context(), resp.ID, &models.UpdateRequest{Tags: &tags, RelatedFiles: &files}); err != nil {
		t.Fatalf("update: %v", err)
	}

	m, _ := svc.Get(resp.ID)
	if len(m.Tags) != 1 || m.Tags[0] != "go" {
		t.Fatalf("expected deduped lowercase tag [go], got %v", m.Tags)
	}
	if len(m.RelatedFiles) != 1 || m.RelatedFiles[0] != "x.go" {
		t.Fatalf("expected deduped related file [x.go], got %v", m.RelatedFiles)
	}
}
