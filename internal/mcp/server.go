package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/octobrain/octobrain/internal/app"
	"github.com/octobrain/octobrain/internal/models"
)

const protocolVersion = "2024-11-05"

// Server implements an MCP stdio server that dispatches tool calls directly
// into the in-process App — no HTTP hop, since the CLI and MCP surfaces are
// just two front doors onto the same library.
type Server struct {
	app *app.App
}

func NewServer(a *app.App) *Server {
	return &Server{app: a}
}

// Run starts the stdio event loop. Blocks until stdin is closed.
func (s *Server) Run() error {
	scanner := bufio.NewScanner(os.Stdin)
	buf := make([]byte, 0, 1024*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(s.errorResponse(nil, -32700, "parse error: "+err.Error()))
			continue
		}

		if resp := s.handleRequest(&req); resp != nil {
			s.writeResponse(resp)
		}
	}

	return scanner.Err()
}

func (s *Server) handleRequest(req *Request) *Response {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "initialized":
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]string{}}
	default:
		return s.errorResponse(req.ID, -32601, "method not found: "+req.Method)
	}
}

func (s *Server) handleInitialize(req *Request) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    ServerCapabilities{Tools: &ToolCapabilities{}},
			ServerInfo:      ServerInfo{Name: "octobrain", Version: "1.0.0"},
		},
	}
}

func (s *Server) handleToolsList(req *Request) *Response {
	return &Response{JSONRPC: "2.0", ID: req.ID, Result: ToolsListResult{Tools: ToolDefinitions()}}
}

func (s *Server) handleToolsCall(req *Request) *Response {
	paramsBytes, err := json.Marshal(req.Params)
	if err != nil {
		return s.errorResponse(req.ID, -32602, "invalid params")
	}
	var params CallToolParams
	if err := json.Unmarshal(paramsBytes, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "invalid params: "+err.Error())
	}

	text, isError := s.dispatchTool(context.Background(), params.Name, params.Arguments)
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  CallToolResult{Content: []ContentBlock{{Type: "text", Text: text}}, IsError: isError},
	}
}

func (s *Server) dispatchTool(ctx context.Context, name string, args map[string]interface{}) (string, bool) {
	switch name {
	case "memorize":
		return s.toolMemorize(ctx, args)
	case "remember":
		return s.toolRemember(ctx, args)
	case "forget":
		return s.toolForget(ctx, args)
	case "auto_link":
		return s.toolAutoLink(ctx, args)
	case "memory_graph":
		return s.toolMemoryGraph(args)
	case "knowledge_search":
		return s.toolKnowledgeSearch(ctx, args)
	default:
		return jsonOrError(nil, fmt.Errorf("unknown tool: %s", name))
	}
}

func (s *Server) toolMemorize(ctx context.Context, args map[string]interface{}) (string, bool) {
	req := &models.StoreRequest{
		Title:        getString(args, "title"),
		Content:      getString(args, "content"),
		MemoryType:   models.MemoryType(getString(args, "memory_type")),
		Tags:         getStringSlice(args, "tags"),
		RelatedFiles: getStringSlice(args, "related_files"),
	}
	if v, ok := args["importance"]; ok {
		f := toFloat(v, 0.5)
		req.Importance = &f
	}
	resp, err := s.app.Memory.Memorize(ctx, req)
	return jsonOrError(resp, err)
}

func (s *Server) toolRemember(ctx context.Context, args map[string]interface{}) (string, bool) {
	req := &models.SearchRequest{
		Queries:      getStringSlice(args, "queries"),
		Limit:        int(toFloat(args["limit"], 0)),
		MinRelevance: toFloat(args["min_relevance"], 0),
		UseReranker:  getBool(args, "use_reranker", false),
	}
	resp, err := s.app.Memory.Remember(ctx, req)
	return jsonOrError(resp, err)
}

func (s *Server) toolForget(ctx context.Context, args map[string]interface{}) (string, bool) {
	if id := getString(args, "memory_id"); id != "" {
		err := s.app.Memory.Forget(id)
		return jsonOrError(map[string]string{"deleted": id}, err)
	}
	query := getString(args, "query")
	confirm := getBool(args, "confirm", false)
	n, err := s.app.Memory.ForgetByQuery(ctx, query, confirm)
	return jsonOrError(map[string]int{"deleted": n}, err)
}

func (s *Server) toolAutoLink(ctx context.Context, args map[string]interface{}) (string, bool) {
	id := getString(args, "memory_id")
	threshold := toFloat(args["threshold"], 0.75)
	maxLinks := int(toFloat(args["max_links"], 5))
	linked, err := s.app.Graph.AutoLink(ctx, id, threshold, maxLinks)
	return jsonOrError(map[string]any{"linked": linked}, err)
}

func (s *Server) toolMemoryGraph(args map[string]interface{}) (string, bool) {
	id := getString(args, "memory_id")
	depth := int(toFloat(args["depth"], 2))
	nodes, err := s.app.Graph.Related(id, depth)
	return jsonOrError(map[string]any{"nodes": nodes}, err)
}

func (s *Server) toolKnowledgeSearch(ctx context.Context, args map[string]interface{}) (string, bool) {
	req := &models.KnowledgeSearchRequest{
		Query: getString(args, "query"),
		URL:   getString(args, "url"),
		Limit: int(toFloat(args["limit"], 10)),
	}
	results, err := s.app.Knowledge.Search(ctx, req)
	return jsonOrError(map[string]any{"results": results}, err)
}

// jsonOrError wraps a tool's result in the {ok, data|error} envelope every
// tool returns, independent of the transport-level IsError flag this text
// also gets attached to.
func jsonOrError(v any, err error) (string, bool) {
	if err != nil {
		data, merr := json.Marshal(map[string]any{"ok": false, "error": err.Error()})
		if merr != nil {
			return fmt.Sprintf(`{"ok":false,"error":%q}`, err.Error()), true
		}
		return string(data), true
	}
	data, merr := json.Marshal(map[string]any{"ok": true, "data": v})
	if merr != nil {
		return fmt.Sprintf(`{"ok":false,"error":%q}`, merr.Error()), true
	}
	return string(data), false
}

func (s *Server) writeResponse(resp *Response) {
	data, _ := json.Marshal(resp)
	fmt.Fprintf(os.Stdout, "%s\n", data)
}

func (s *Server) errorResponse(id interface{}, code int, message string) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
}

// --- Argument helpers ---

func getString(args map[string]interface{}, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getStringSlice(args map[string]interface{}, key string) []string {
	v, ok := args[key]
	if !ok {
		return nil
	}
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func getBool(args map[string]interface{}, key string, fallback bool) bool {
	if v, ok := args[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return fallback
}

func toFloat(v interface{}, fallback float64) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	default:
		return fallback
	}
}
