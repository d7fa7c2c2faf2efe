package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/codescope/codescope/internal/refs"
)

// AddReferencesTool registers the codescope_references tool with an MCP server.
func AddReferencesTool(s *server.MCPServer, resolver *refs.Resolver) {
	tool := mcp.NewTool(
		"codescope_references",
		mcp.WithDescription("Find all references to a code entity: call sites, assignments, imports, and property accesses, each classified and confidence-scored. Optionally includes one-hop indirect callers from the call graph."),
		mcp.WithString("codebase_id",
			mcp.Required(),
			mcp.Description("Identifier of an indexed codebase")),
		mcp.WithString("entity_id",
			mcp.Required(),
			mcp.Description("Entity id in the form {file_path}::{name}::{start_line}, or a bare entity name")),
		mcp.WithBoolean("include_tests",
			mcp.Description("Include references found in test files (default: false)")),
		mcp.WithBoolean("include_indirect",
			mcp.Description("Include indirect callers one hop past the direct callers (default: false)")),
		mcp.WithBoolean("include_comments",
			mcp.Description("Include occurrences inside comments (default: false)")),
		mcp.WithBoolean("include_strings",
			mcp.Description("Include occurrences inside string literals (default: false)")),
		mcp.WithNumber("context_lines",
			mcp.Description("Surrounding source lines to attach to each reference (default: 0)")),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of references to return (default: 100)")),
	)

	s.AddTool(tool, createReferencesHandler(resolver))
}

// createReferencesHandler creates the handler function for the codescope_references tool.
func createReferencesHandler(resolver *refs.Resolver) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

		opts := refs.Options{
			IncludeTests:    parseBoolArg(argsMap, "include_tests", false),
			IncludeIndirect: parseBoolArg(argsMap, "include_indirect", false),
			IncludeComments: parseBoolArg(argsMap, "include_comments", false),
			IncludeStrings:  parseBoolArg(argsMap, "include_strings", false),
			ContextLines:    parseIntArg(argsMap, "context_lines", 0),
			MaxResults:      parseIntArg(argsMap, "max_results", 0),
		}

		report, err := resolver.References(ctx, codebaseID, entityID, opts)
		if err != nil {
			if result, terr := toolError(err); terr == nil {
				return result, nil
			}
			return nil, fmt.Errorf("reference resolution failed: %w", err)
		}
		return jsonResult(report)
	}
}
