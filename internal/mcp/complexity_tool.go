package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/codescope/codescope/internal/metrics"
	"github.com/codescope/codescope/internal/storage"
)

// ComplexityResponse is the codescope_complexity payload.
type ComplexityResponse struct {
	Results []metrics.ComplexityMetrics `json:"results"`
	Total   int                         `json:"total"`
}

// measurableKinds are the entity kinds complexity metrics apply to.
var measurableKinds = []storage.EntityKind{
	storage.KindFunction,
	storage.KindMethod,
	storage.KindConstructor,
	storage.KindArrowFunction,
}

// AddComplexityTool registers the codescope_complexity tool with an MCP server.
func AddComplexityTool(s *server.MCPServer, store *storage.Store, entities entitySource) {
	tool := mcp.NewTool(
		"codescope_complexity",
		mcp.WithDescription("Compute complexity metrics (cyclomatic, cognitive, maintainability index, rating) for one entity or for every function in a file."),
		mcp.WithString("codebase_id",
			mcp.Required(),
			mcp.Description("Identifier of an indexed codebase")),
		mcp.WithString("entity_id",
			mcp.Description("Entity id to analyze; mutually exclusive with file_path")),
		mcp.WithString("file_path",
			mcp.Description("Analyze every function in this file; mutually exclusive with entity_id")),
	)

	s.AddTool(tool, createComplexityHandler(store, entities))
}

// createComplexityHandler creates the handler function for the codescope_complexity tool.
func createComplexityHandler(store *storage.Store, entities entitySource) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := requestArgs(request.Params.Arguments)
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		codebaseID, err := parseStringArg(argsMap, "codebase_id", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		entityID, err := parseStringArg(argsMap, "entity_id", false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filePath, err := parseStringArg(argsMap, "file_path", false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if (entityID == "") == (filePath == "") {
			return mcp.NewToolResultError("exactly one of entity_id or file_path is required"), nil
		}

		if _, err := store.RequireIndexed(codebaseID); err != nil {
			if result, terr := toolError(err); terr == nil {
				return result, nil
			}
			return nil, err
		}

		var results []metrics.ComplexityMetrics
		if entityID != "" {
			entity, err := entities.Get(codebaseID, entityID)
			if err != nil {
				if result, terr := toolError(err); terr == nil {
					return result, nil
				}
				return nil, err
			}
			results = append(results, metrics.Calculate(entity))
		} else {
			entities, err := store.Entities(codebaseID, storage.EntityFilter{
				FilePath: filePath,
				Kinds:    measurableKinds,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to list entities: %w", err)
			}
			for i := range entities {
				results = append(results, metrics.Calculate(&entities[i]))
			}
		}

		return jsonResult(&ComplexityResponse{Results: results, Total: len(results)})
	}
}
