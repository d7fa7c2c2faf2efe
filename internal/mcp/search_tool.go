package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/codescope/codescope/internal/query"
)

// AddSearchTool registers the codescope_search tool with an MCP server.
// This function is composable - it can be combined with other tool registrations.
func AddSearchTool(s *server.MCPServer, engine *query.Engine) {
	tool := mcp.NewTool(
		"codescope_search",
		mcp.WithDescription("Search an indexed codebase for entities matching a query. Classifies query intent, picks a keyword, structural, or semantic strategy, and returns ranked declaration sites."),
		mcp.WithString("codebase_id",
			mcp.Required(),
			mcp.Description("Identifier of an indexed codebase")),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query: an identifier ('parseHeader'), a declaration shape ('class PaymentProcessor'), or natural language ('authentication functions')")),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of results to return (default: 20)")),
		mcp.WithString("file_filter",
			mcp.Description("Glob applied to result file paths, e.g. 'internal/**'")),
	)

	s.AddTool(tool, createSearchHandler(engine))
}

// createSearchHandler creates the handler function for the codescope_search tool.
func createSearchHandler(engine *query.Engine) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := requestArgs(request.Params.Arguments)
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		codebaseID, err := parseStringArg(argsMap, "codebase_id", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		rawQuery, err := parseStringArg(argsMap, "query", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		fileFilter, err := parseStringArg(argsMap, "file_filter", false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		opts := query.Options{
			MaxResults: parseIntArg(argsMap, "max_results", 0),
			FileFilter: fileFilter,
		}

		response, err := engine.Search(ctx, codebaseID, rawQuery, opts)
		if err != nil {
			if result, terr := toolError(err); terr == nil {
				return result, nil
			}
			return nil, fmt.Errorf("search failed: %w", err)
		}
		return jsonResult(response)
	}
}
