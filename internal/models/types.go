package models

// MemoryType classifies what kind of knowledge a memory represents. The set
// is closed: validation rejects anything outside it before any embedding
// call is made.
type MemoryType string

const (
	MemoryTypeCode           MemoryType = "code"
	MemoryTypeArchitecture   MemoryType = "architecture"
	MemoryTypeBugFix         MemoryType = "bug_fix"
	MemoryTypeFeature        MemoryType = "feature"
	MemoryTypeDocumentation  MemoryType = "documentation"
	MemoryTypeUserPreference MemoryType = "user_preference"
	MemoryTypeDecision       MemoryType = "decision"
	MemoryTypeLearning       MemoryType = "learning"
	MemoryTypeConfiguration  MemoryType = "configuration"
	MemoryTypeTesting        MemoryType = "testing"
	MemoryTypePerformance    MemoryType = "performance"
	MemoryTypeSecurity       MemoryType = "security"
	MemoryTypeInsight        MemoryType = "insight"
)

var validMemoryTypes = map[MemoryType]bool{
	MemoryTypeCode:           true,
	MemoryTypeArchitecture:   true,
	MemoryTypeBugFix:         true,
	MemoryTypeFeature:        true,
	MemoryTypeDocumentation:  true,
	MemoryTypeUserPreference: true,
	MemoryTypeDecision:       true,
	MemoryTypeLearning:       true,
	MemoryTypeConfiguration:  true,
	MemoryTypeTesting:        true,
	MemoryTypePerformance:    true,
	MemoryTypeSecurity:       true,
	MemoryTypeInsight:        true,
}

// IsValid reports whether t is one of the closed set of memory types.
func (t MemoryType) IsValid() bool {
	return validMemoryTypes[t]
}

// DefaultImportance is assigned when a caller omits importance.
const DefaultImportance = 0.5

// RelationshipType classifies a directed edge between two memories. The set
// is closed, mirroring MemoryType.
type RelationshipType string

const (
	RelationshipDependsOn   RelationshipType = "depends_on"
	RelationshipRelatedTo   RelationshipType = "related_to"
	RelationshipSupersedes  RelationshipType = "supersedes"
	RelationshipContradicts RelationshipType = "contradicts"
	RelationshipDerivedFrom RelationshipType = "derived_from"
	RelationshipReferences  RelationshipType = "references"
)

var validRelationshipTypes = map[RelationshipType]bool{
	RelationshipDependsOn:   true,
	RelationshipRelatedTo:   true,
	RelationshipSupersedes:  true,
	RelationshipContradicts: true,
	RelationshipDerivedFrom: true,
	RelationshipReferences:  true,
}

// IsValid reports whether t is one of the closed set of relationship types.
func (t RelationshipType) IsValid() bool {
	return validRelationshipTypes[t]
}

// Relationship is a directed typed edge between two memory ids. The triple
// (SourceID, TargetID, Type) is the primary key; re-relating the same triple
// replaces Strength rather than erroring.
type Relationship struct {
	SourceID  string           `json:"sourceId"`
	TargetID  string           `json:"targetId"`
	Type      RelationshipType `json:"type"`
	Strength  float64          `json:"strength"`
	CreatedAt int64            `json:"createdAt"`
}

// RelationshipSet groups a memory's edges by direction, as returned by
// relationships(id).
type RelationshipSet struct {
	Outgoing []Relationship `json:"outgoing"`
	Incoming []Relationship `json:"incoming"`
}

// RelatedNode is one entry of a related(id, depth) BFS result.
type RelatedNode struct {
	ID                 string  `json:"id"`
	MinHop             int     `json:"minHop"`
	AccumulatedStrength float64 `json:"accumulatedStrength"`
}

// StoreRequest is the payload for memorize().
type StoreRequest struct {
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	MemoryType   MemoryType `json:"memoryType"`
	Tags         []string   `json:"tags,omitempty"`
	RelatedFiles []string   `json:"relatedFiles,omitempty"`
	Importance   *float64   `json:"importance,omitempty"`
}

// StoreResponse is returned from memorize().
type StoreResponse struct {
	ID string `json:"id"`
}

// SearchFilter narrows a remember()/retrieve() call.
type SearchFilter struct {
	MemoryTypes  []MemoryType `json:"memoryTypes,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
	RelatedFiles []string     `json:"relatedFiles,omitempty"`
	Since        int64        `json:"since,omitempty"`
	Until        int64        `json:"until,omitempty"`
}

// SearchRequest is the payload for remember().
type SearchRequest struct {
	Queries      []string      `json:"queries"`
	Filter       *SearchFilter `json:"filter,omitempty"`
	Limit        int           `json:"limit,omitempty"`
	MinRelevance float64       `json:"minRelevance,omitempty"`
	UseReranker  bool          `json:"useReranker,omitempty"`
}

// SearchResult is a single ranked memory returned by remember().
type SearchResult struct {
	Memory    *Memory `json:"memory"`
	Relevance float64 `json:"relevance"`
}

// SearchMeta reports how many candidates each leg of the hybrid retriever
// contributed, for observability.
type SearchMeta struct {
	DenseCandidates   int   `json:"denseCandidates"`
	LexicalCandidates int   `json:"lexicalCandidates"`
	Reranked          bool  `json:"reranked"`
	SearchTimeMs      int64 `json:"searchTimeMs"`
}

// SearchResponse is returned from remember().
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Meta    SearchMeta     `json:"meta"`
}

// UpdateRequest is the payload for update(id, patch). Nil fields are left
// unchanged.
type UpdateRequest struct {
	Title        *string     `json:"title,omitempty"`
	Content      *string     `json:"content,omitempty"`
	MemoryType   *MemoryType `json:"memoryType,omitempty"`
	Tags         *[]string   `json:"tags,omitempty"`
	RelatedFiles *[]string   `json:"relatedFiles,omitempty"`
	Importance   *float64    `json:"importance,omitempty"`
}

// ListRequest holds filter/pagination params shared by recent/by_type/
// by_tags/for_files.
type ListRequest struct {
	WorkspaceID  string       `json:"workspaceId"`
	MemoryTypes  []MemoryType `json:"memoryTypes,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
	RelatedFiles []string     `json:"relatedFiles,omitempty"`
	Limit        int          `json:"limit,omitempty"`
}

// Stats is returned by stats().
type Stats struct {
	WorkspaceID      string             `json:"workspaceId"`
	Total            int                `json:"total"`
	ByType           map[MemoryType]int `json:"byType"`
	OldestCreatedAt  int64              `json:"oldestCreatedAt"`
	AverageImportance float64           `json:"averageImportance"`
}

// CleanupPolicy parameterizes cleanup().
type CleanupPolicy struct {
	MinImportance float64 `json:"minImportance"`
	MaxAgeDays    int     `json:"maxAgeDays"`
}

// CleanupResult reports what cleanup() removed.
type CleanupResult struct {
	Deleted        int `json:"deleted"`
	DanglingEdges  int `json:"danglingEdgesPurged"`
}
