package mcp

// ToolDefinitions returns the MCP tool definitions for the octobrain server.
func ToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name: "memorize",
			Description: "Store a new memory — a short textual insight (code note, decision, bug fix, " +
				"preference) tied to this workspace, retrievable later by meaning via remember.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"title":   {Type: "string", Description: "Short title"},
					"content": {Type: "string", Description: "The memory body"},
					"memory_type": {Type: "string", Description: "Closed type classifying the memory",
						Enum: []string{"code", "architecture", "bug_fix", "feature", "documentation",
							"user_preference", "decision", "learning", "configuration", "testing",
							"performance", "security", "insight"}},
					"tags":          {Type: "array", Description: "Free-form tags", Items: &Items{Type: "string"}},
					"related_files": {Type: "array", Description: "File paths this memory relates to", Items: &Items{Type: "string"}},
					"importance":    {Type: "number", Description: "Importance in [0,1], default 0.5", Default: 0.5},
				},
				Required: []string{"title", "content", "memory_type"},
			},
		},
		{
			Name: "remember",
			Description: "Retrieve memories by meaning: hybrid dense + lexical search with temporal decay, " +
				"multi-query fusion, and an optional reranking pass.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"queries":       {Type: "array", Description: "One or more query strings", Items: &Items{Type: "string"}},
					"limit":         {Type: "number", Description: "Maximum results to return"},
					"min_relevance": {Type: "number", Description: "Drop results scoring below this threshold"},
					"use_reranker":  {Type: "boolean", Description: "Apply the reranker pass if one is configured"},
				},
				Required: []string{"queries"},
			},
		},
		{
			Name: "forget",
			Description: "Delete a memory by id, or delete every memory a query would return — the latter " +
				"requires confirm:true since a query can match an unbounded number of records.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"memory_id": {Type: "string", Description: "ID of a single memory to delete"},
					"query":     {Type: "string", Description: "Delete every memory this query would return"},
					"confirm":   {Type: "boolean", Description: "Must be true to delete by query"},
				},
			},
		},
		{
			Name: "auto_link",
			Description: "Find and create related_to edges from a memory to its nearest neighbors by " +
				"embedding similarity, above a threshold and capped at a maximum link count.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"memory_id":  {Type: "string", Description: "Memory to link from"},
					"threshold":  {Type: "number", Description: "Minimum cosine similarity to link, default 0.75", Default: 0.75},
					"max_links":  {Type: "number", Description: "Maximum number of links to create, default 5", Default: 5},
				},
				Required: []string{"memory_id"},
			},
		},
		{
			Name: "memory_graph",
			Description: "Traverse the typed relationship graph outward from a memory, returning every " +
				"reachable memory within depth hops with its accumulated link strength.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"memory_id": {Type: "string", Description: "Memory to traverse from"},
					"depth":     {Type: "number", Description: "Maximum hop count, default 2, capped at 5", Default: 2},
				},
				Required: []string{"memory_id"},
			},
		},
		{
			Name: "knowledge_search",
			Description: "Search indexed web knowledge chunks by meaning. Pass url to index or refresh that " +
				"page first and restrict the search to it.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"query": {Type: "string", Description: "Natural language search query"},
					"url":   {Type: "string", Description: "Restrict search to this URL, indexing/refreshing it first"},
					"limit": {Type: "number", Description: "Maximum results to return, default 10", Default: 10},
				},
				Required: []string{"query"},
			},
		},
	}
}
