package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/codescope/codescope/internal/dupes"
)

// AddDuplicatesTool registers the codescope_duplicates tool with an MCP server.
func AddDuplicatesTool(s *server.MCPServer, detector *dupes.Detector) {
	tool := mcp.NewTool(
		"codescope_duplicates",
		mcp.WithDescription("Detect duplicated code blocks across a codebase. Reports exact copies, structural twins with renamed identifiers, and semantically similar blocks, grouped with estimated consolidation savings."),
		mcp.WithString("codebase_id",
			mcp.Required(),
			mcp.Description("Identifier of an indexed codebase")),
		mcp.WithNumber("min_lines",
			mcp.Description("Smallest block size considered, in normalized lines (default: 5)")),
		mcp.WithNumber("threshold",
			mcp.Description("Minimum similarity for semantic matches, 0-1 (default: 0.7)")),
		mcp.WithBoolean("group_by_similarity",
			mcp.Description("Merge groups whose blocks are similar to each other (default: false)")),
		mcp.WithString("types",
			mcp.Description("Comma-separated detection passes to run: exact, structural, semantic (default: all)")),
		mcp.WithString("file_filter",
			mcp.Description("Glob restricting detection to matching file paths (e.g. 'src/billing/**')")),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of duplicate groups to report (default: unlimited)")),
	)

	s.AddTool(tool, createDuplicatesHandler(detector))
}

// createDuplicatesHandler creates the handler function for the codescope_duplicates tool.
func createDuplicatesHandler(detector *dupes.Detector) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := requestArgs(request.Params.Arguments)
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		codebaseID, err := parseStringArg(argsMap, "codebase_id", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		typesArg, _ := parseStringArg(argsMap, "types", false)
		kinds, err := dupes.ParseKinds(typesArg)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		fileFilter, _ := parseStringArg(argsMap, "file_filter", false)

		opts := dupes.Options{
			MinLines:          parseIntArg(argsMap, "min_lines", 0),
			Threshold:         parseFloatArg(argsMap, "threshold", 0),
			FileFilter:        fileFilter,
			DetectionTypes:    kinds,
			MaxResults:        parseIntArg(argsMap, "max_results", 0),
			GroupBySimilarity: parseBoolArg(argsMap, "group_by_similarity", false),
		}

		report, err := detector.Detect(ctx, codebaseID, opts)
		if err != nil {
			if result, terr := toolError(err); terr == nil {
				return result, nil
			}
			return nil, fmt.Errorf("duplicate detection failed: %w", err)
		}
		return jsonResult(report)
	}
}
