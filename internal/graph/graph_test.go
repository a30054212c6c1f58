package graph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/octobrain/octobrain/internal/embedding"
	"github.com/octobrain/octobrain/internal/models"
	"github.com/octobrain/octobrain/internal/store"
	"github.com/octobrain/octobrain/internal/vecmath"
)

func setupTestDB(t *testing.T) *store.DB {
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
	return db
}

type fakeEmbedder struct {
	vec []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string, mode embedding.Mode) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}
func (f *fakeEmbedder) Dimension() int { return len(f.vec) }
func (f *fakeEmbedder) Model() string  { return "fake" }

func insertMemory(t *testing.T, memories *store.MemoryStore, wsID, title string, vec []float32) string {
	t.Helper()
	id := uuid.NewString()
	now := models.NowMillis()
	m := &models.Memory{
		ID: id, WorkspaceID: wsID, Title: title, Content: "content",
		MemoryType: models.MemoryTypeDecision, Importance: 0.5,
		ContentHash: title, Embedding: vecmath.ToBytes(vec), EmbeddingModel: "fake",
		CreatedAt: now, UpdatedAt: now, LastAccessedAt: now,
	}
	if err := memories.Insert(m); err != nil {
		t.Fatalf("insert memory: %v", err)
	}
	return id
}

func TestRelate(t *testing.T) {
	db := setupTestDB(t)
	memories := store.NewMemoryStore(db)
	relationships := store.NewRelationshipStore(db)
	vectors := store.NewVectorIndex(memories)
	g := New(memories, relationships, vectors, &fakeEmbedder{})

	a := insertMemory(t, memories, "ws", "a", []float32{1, 0, 0})
	b := insertMemory(t, memories, "ws", "b", []float32{0, 1, 0})

	t.Run("rejects self-relation", func(t *testing.T) {
		if err := g.Relate(a, a, models.RelationshipRelatedTo, 1.0); err == nil {
			t.Fatal("expected error for self-relation")
		}
	})

	t.Run("creates an edge", func(t *testing.T) {
		if err := g.Relate(a, b, models.RelationshipRelatedTo, 0.9); err != nil {
			t.Fatalf("relate: %v", err)
		}
		set, err := g.Relationships(a)
		if err != nil {
			t.Fatalf("relationships: %v", err)
		}
		if len(set.Outgoing) != 1 || set.Outgoing[0].TargetID != b {
			t.Fatalf("expected one outgoing edge to b, got %v", set.Outgoing)
		}
	})

	t.Run("duplicate relate replaces strength", func(t *testing.T) {
		if err := g.Relate(a, b, models.RelationshipRelatedTo, 0.3); err != nil {
			t.Fatalf("relate: %v", err)
		}
		set, _ := g.Relationships(a)
		if set.Outgoing[0].Strength != 0.3 {
			t.Fatalf("expected strength replaced to 0.3, got %v", set.Outgoing[0].Strength)
		}
	})
}

func TestRelated(t *testing.T) {
	db := setupTestDB(t)
	memories := store.NewMemoryStore(db)
	relationships := store.NewRelationshipStore(db)
	vectors := store.NewVectorIndex(memories)
	g := New(memories, relationships, vectors, &fakeEmbedder{})

	a := insertMemory(t, memories, "ws", "a", []float32{1, 0, 0})
	b := insertMemory(t, memories, "ws", "b", []float32{0, 1, 0})
	c := insertMemory(t, memories, "ws", "c", []float32{0, 0, 1})

	mustRelate(t, g, a, b, 0.8)
	mustRelate(t, g, b, c, 0.5)
	mustRelate(t, g, c, a, 0.9) // cycle

	t.Run("BFS finds multi-hop nodes with accumulated strength", func(t *testing.T) {
		nodes, err := g.Related(a, 2)
		if err != nil {
			t.Fatalf("related: %v", err)
		}
		if len(nodes) != 2 {
			t.Fatalf("expected 2 reachable nodes, got %d: %v", len(nodes), nodes)
		}
		byID := map[string]models.RelatedNode{}
		for _, n := range nodes {
			byID[n.ID] = n
		}
		if byID[b].MinHop != 1 {
			t.Fatalf("expected b at hop 1, got %d", byID[b].MinHop)
		}
		if byID[c].MinHop != 2 {
			t.Fatalf("expected c at hop 2, got %d", byID[c].MinHop)
		}
		wantStrength := 0.8 * 0.5
		if diff := byID[c].AccumulatedStrength - wantStrength; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("expected accumulated strength %v, got %v", wantStrength, byID[c].AccumulatedStrength)
		}
	})

	t.Run("depth 1 only reaches direct neighbors", func(t *testing.T) {
		nodes, err := g.Related(a, 1)
		if err != nil {
			t.Fatalf("related: %v", err)
		}
		if len(nodes) != 1 || nodes[0].ID != b {
			t.Fatalf("expected only b, got %v", nodes)
		}
	})

	t.Run("depth 0 returns only the root at zero hops", func(t *testing.T) {
		nodes, err := g.Related(a, 0)
		if err != nil {
			t.Fatalf("related: %v", err)
		}
		if len(nodes) != 1 || nodes[0].ID != a || nodes[0].MinHop != 0 {
			t.Fatalf("expected only the root at hop 0, got %v", nodes)
		}
	})
}

func TestAutoLink(t *testing.T) {
	db := setupTestDB(t)
	memories := store.NewMemoryStore(db)
	relationships := store.NewRelationshipStore(db)
	vectors := store.NewVectorIndex(memories)

	a := insertMemory(t, memories, "ws", "a", []float32{1, 0, 0})
	insertMemory(t, memories, "ws", "b", []float32{0.99, 0.01, 0})
	insertMemory(t, memories, "ws", "c", []float32{0, 1, 0})

	g := New(memories, relationships, vectors, &fakeEmbedder{vec: []float32{1, 0, 0}})

	t.Run("links only above threshold", func(t *testing.T) {
		linked, err := g.AutoLink(context.Background(), a, 0.9, 5)
		if err != nil {
			t.Fatalf("auto_link: %v", err)
		}
		if len(linked) != 1 {
			t.Fatalf("expected 1 link above threshold, got %d: %v", len(linked), linked)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		first, _ := g.AutoLink(context.Background(), a, 0.9, 5)
		second, _ := g.AutoLink(context.Background(), a, 0.9, 5)
		if len(first) != len(second) {
			t.Fatalf("expected same link count on re-run, got %d and %d", len(first), len(second))
		}
	})
}

func mustRelate(t *testing.T, g *Graph, src, tgt string, strength float64) {
	t.Helper()
	if err := g.Relate(src, tgt, models.RelationshipRelatedTo, strength); err != nil {
		t.Fatalf("relate: %v", err)
	}
}
