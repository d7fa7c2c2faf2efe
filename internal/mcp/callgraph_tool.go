package mcp

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/codescope/codescope/internal/graph"
	"github.com/codescope/codescope/internal/storage"
)

// graphCache loads relationship graphs on demand and refreshes them when
// the store's generation moves.
type graphCache struct {
	store *storage.Store

	mu     sync.Mutex
	graphs map[string]*graph.Graph
}

func newGraphCache(store *storage.Store) *graphCache {
	return &graphCache{store: store, graphs: make(map[string]*graph.Graph)}
}

func (c *graphCache) For(codebaseID string) (*graph.Graph, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.graphs[codebaseID]
	if !ok {
		loaded, err := graph.Load(c.store, codebaseID)
		if err != nil {
			return nil, err
		}
		c.graphs[codebaseID] = loaded
		return loaded, nil
	}
	if err := g.Refresh(); err != nil {
		return nil, err
	}
	return g, nil
}

// CallGraphEdge is one call edge in the response, with resolved names.
type CallGraphEdge struct {
	FromID     string  `json:"from_id"`
	FromName   string  `json:"from_name"`
	ToID       string  `json:"to_id"`
	ToName     string  `json:"to_name"`
	Confidence float64 `json:"confidence"`
	File       string  `json:"file"`
	Line       int     `json:"line"`
}

// CallGraphResponse is the codescope_callgraph payload.
type CallGraphResponse struct {
	EntityID  string          `json:"entity_id"`
	Direction string          `json:"direction"`
	Edges     []CallGraphEdge `json:"edges,omitempty"`
	Reachable []string        `json:"reachable,omitempty"`
	Total     int             `json:"total"`
}

// AddCallGraphTool registers the codescope_callgraph tool with an MCP server.
func AddCallGraphTool(s *server.MCPServer, store *storage.Store, graphs *graphCache, entities entitySource) {
	tool := mcp.NewTool(
		"codescope_callgraph",
		mcp.WithDescription("Walk the call graph around an entity: direct callers, direct callees, or everything reachable from it."),
		mcp.WithString("codebase_id",
			mcp.Required(),
			mcp.Description("Identifier of an indexed codebase")),
		mcp.WithString("entity_id",
			mcp.Required(),
			mcp.Description("Entity id in the form {file_path}::{name}::{start_line}")),
		mcp.WithString("direction",
			mcp.Description("One of: callers, callees, reachable (default: callers)")),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum entries to return (default: 50)")),
	)

	s.AddTool(tool, createCallGraphHandler(store, graphs, entities))
}

// createCallGraphHandler creates the handler function for the codescope_callgraph tool.
func createCallGraphHandler(store *storage.Store, graphs *graphCache, entities entitySource) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := requestArgs(request.Params.Arguments)
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		codebaseID, err := parseStringArg(argsMap, "codebase_id", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		entityID, err := parseStringArg(argsMap, "entity_id", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		direction, err := parseStringArg(argsMap, "direction", false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if direction == "" {
			direction = "callers"
		}
		maxResults := parseIntArg(argsMap, "max_results", 50)

		if _, err := store.RequireIndexed(codebaseID); err != nil {
			if result, terr := toolError(err); terr == nil {
				return result, nil
			}
			return nil, err
		}
		if _, err := entities.Get(codebaseID, entityID); err != nil {
			if result, terr := toolError(err); terr == nil {
				return result, nil
			}
			return nil, err
		}

		g, err := graphs.For(codebaseID)
		if err != nil {
			return nil, fmt.Errorf("failed to load relationship graph: %w", err)
		}

		response := &CallGraphResponse{EntityID: entityID, Direction: direction}
		switch direction {
		case "callers":
			response.Edges = toEdges(g, g.Callers(entityID), maxResults)
		case "callees":
			response.Edges = toEdges(g, g.Callees(entityID), maxResults)
		case "reachable":
			response.Reachable = g.Reachable(entityID, maxResults)
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown direction %q", direction)), nil
		}
		response.Total = len(response.Edges) + len(response.Reachable)
		return jsonResult(response)
	}
}

func toEdges(g *graph.Graph, edges []graph.Edge, maxResults int) []CallGraphEdge {
	if len(edges) > maxResults {
		edges = edges[:maxResults]
	}
	out := make([]CallGraphEdge, 0, len(edges))
	for _, e := range edges {
		out = append(out, CallGraphEdge{
			FromID:     e.FromID,
			FromName:   g.NameOf(e.FromID),
			ToID:       e.ToID,
			ToName:     g.NameOf(e.ToID),
			Confidence: e.Confidence,
			File:       e.FilePath,
			Line:       e.Line,
		})
	}
	return out
}
