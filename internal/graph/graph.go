// Package graph is C6: the typed relationship graph between memories.
// Edges live in their own table keyed by (source, target, type); this
// package is the only reader/writer of that table.
package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/octobrain/octobrain/internal/embedding"
	"github.com/octobrain/octobrain/internal/models"
	"github.com/octobrain/octobrain/internal/store"
)

const (
	defaultDepth     = 2
	maxDepth         = 5
	defaultThreshold = 0.75
	defaultMaxLinks  = 5
)

// Graph is C6.
type Graph struct {
	memories      *store.MemoryStore
	relationships *store.RelationshipStore
	vectors       *store.VectorIndex
	embedder      embedding.Embedder
}

func New(memories *store.MemoryStore, relationships *store.RelationshipStore, vectors *store.VectorIndex, embedder embedding.Embedder) *Graph {
	return &Graph{memories: memories, relationships: relationships, vectors: vectors, embedder: embedder}
}

// Relate creates or updates an edge. src and tgt must differ, and both
// must exist; a duplicate (src, tgt, type) replaces strength rather than
// compounding it.
func (g *Graph) Relate(src, tgt string, relType models.RelationshipType, strength float64) error {
	if src == tgt {
		return fmt.Errorf("relate: %w: source and target must differ", models.ErrInvalidInput)
	}
	if !relType.IsValid() {
		return fmt.Errorf("relate: %w: unknown relationship type %q", models.ErrInvalidInput, relType)
	}
	srcMem, err := g.memories.GetByID(src)
	if err != nil {
		return fmt.Errorf("relate: %w", err)
	}
	if srcMem == nil {
		return fmt.Errorf("relate: %w: source %s", models.ErrNotFound, src)
	}
	tgtMem, err := g.memories.GetByID(tgt)
	if err != nil {
		return fmt.Errorf("relate: %w", err)
	}
	if tgtMem == nil {
		return fmt.Errorf("relate: %w: target %s", models.ErrNotFound, tgt)
	}
	if strength <= 0 {
		strength = 1.0
	}
	return g.relationships.Upsert(&models.Relationship{
		SourceID:  src,
		TargetID:  tgt,
		Type:      relType,
		Strength:  strength,
		CreatedAt: models.NowMillis(),
	})
}

// Relationships returns id's outgoing and incoming edges, dropping any that
// point at a memory that no longer exists (dangling edges are filtered out
// at read time, per the graph's contract).
func (g *Graph) Relationships(id string) (*models.RelationshipSet, error) {
	out, err := g.relationships.Outgoing(id)
	if err != nil {
		return nil, fmt.Errorf("relationships: %w", err)
	}
	in, err := g.relationships.Incoming(id)
	if err != nil {
		return nil, fmt.Errorf("relationships: %w", err)
	}
	out, err = g.dropDangling(out, func(r models.Relationship) string { return r.TargetID })
	if err != nil {
		return nil, err
	}
	in, err = g.dropDangling(in, func(r models.Relationship) string { return r.SourceID })
	if err != nil {
		return nil, err
	}
	return &models.RelationshipSet{Outgoing: out, Incoming: in}, nil
}

func (g *Graph) dropDangling(edges []models.Relationship, otherEnd func(models.Relationship) string) ([]models.Relationship, error) {
	var live []models.Relationship
	for _, e := range edges {
		m, err := g.memories.GetByID(otherEnd(e))
		if err != nil {
			return nil, fmt.Errorf("check dangling edge: %w", err)
		}
		if m != nil {
			live = append(live, e)
		}
	}
	return live, nil
}

// Related runs breadth-first search from id up to depth hops, following
// outgoing edges only — the relationship graph is directed, so a->b does
// not make b's neighborhood include a. depth < 0 means unset and defaults
// to 2, capped at 5. The result carries each reachable node's minimum hop
// count and the strength accumulated by multiplying edge strengths along
// the path that first reached it. Cycles are broken by the visited set: a
// node is only ever expanded once, at its first (shortest) discovery.
// depth == 0 is a literal zero hops: the result is id itself, not the
// defaulted traversal.
func (g *Graph) Related(id string, depth int) ([]models.RelatedNode, error) {
	if depth < 0 {
		depth = defaultDepth
	}
	if depth > maxDepth {
		depth = maxDepth
	}

	visited := map[string]*models.RelatedNode{id: {ID: id, MinHop: 0, AccumulatedStrength: 1.0}}
	if depth == 0 {
		return []models.RelatedNode{*visited[id]}, nil
	}
	frontier := []string{id}

	for hop := 1; hop <= depth && len(frontier) > 0; hop++ {
		var next []string
		for _, nodeID := range frontier {
			parentStrength := visited[nodeID].AccumulatedStrength
			edges, err := g.relationships.Outgoing(nodeID)
			if err != nil {
				return nil, fmt.Errorf("related: %w", err)
			}
			for _, e := range edges {
				other := e.TargetID
				if _, seen := visited[other]; seen {
					continue
				}
				mem, err := g.memories.GetByID(other)
				if err != nil {
					return nil, fmt.Errorf("related: %w", err)
				}
				if mem == nil {
					continue // dangling edge, skip
				}
				visited[other] = &models.RelatedNode{
					ID:                  other,
					MinHop:              hop,
					AccumulatedStrength: parentStrength * e.Strength,
				}
				next = append(next, other)
			}
		}
		frontier = next
	}

	delete(visited, id)
	nodes := make([]models.RelatedNode, 0, len(visited))
	for _, n := range visited {
		nodes = append(nodes, *n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].MinHop != nodes[j].MinHop {
			return nodes[i].MinHop < nodes[j].MinHop
		}
		if nodes[i].AccumulatedStrength != nodes[j].AccumulatedStrength {
			return nodes[i].AccumulatedStrength > nodes[j].AccumulatedStrength
		}
		return nodes[i].ID < nodes[j].ID
	})
	return nodes, nil
}

// AutoLink embeds id's own content, runs a dense-only C2 search over the
// workspace excluding id itself, and creates related_to edges to every
// result scoring at or above threshold, up to maxLinks. Strength is set to
// the cosine score. Re-running produces the same edge set up to ties, since
// Relate replaces rather than accumulates strength.
func (g *Graph) AutoLink(ctx context.Context, id string, threshold float64, maxLinks int) ([]string, error) {
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	if maxLinks <= 0 {
		maxLinks = defaultMaxLinks
	}

	mem, err := g.memories.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("auto_link: %w", err)
	}
	if mem == nil {
		return nil, fmt.Errorf("auto_link: %w: %s", models.ErrNotFound, id)
	}

	vectors, err := g.embedder.Embed(ctx, []string{mem.Title + "\n" + mem.Content}, embedding.ModeDocument)
	if err != nil {
		return nil, fmt.Errorf("auto_link: %w: %v", models.ErrEmbedderUnavailable, err)
	}

	hits, err := g.vectors.KNN(mem.WorkspaceID, vectors[0], maxLinks+1, nil)
	if err != nil {
		return nil, fmt.Errorf("auto_link: %w", err)
	}

	var linked []string
	for _, hit := range hits {
		if hit.Memory.ID == id {
			continue
		}
		if hit.Score < threshold {
			continue
		}
		if err := g.Relate(id, hit.Memory.ID, models.RelationshipRelatedTo, hit.Score); err != nil {
			return nil, fmt.Errorf("auto_link: %w", err)
		}
		linked = append(linked, hit.Memory.ID)
		if len(linked) >= maxLinks {
			break
		}
	}
	return linked, nil
}
