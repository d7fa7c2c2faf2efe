package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/codescope/codescope/internal/storage"
)

// entitySource abstracts single-entity lookup so tools read through the
// generation-keyed entity cache instead of hitting the store per request.
type entitySource interface {
	Get(codebaseID, entityID string) (*storage.CodeEntity, error)
}

// jsonResult marshals a response value as a text tool result, the mcp-go
// convention for structured payloads.
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError maps domain errors onto MCP tool errors. Known conditions
// (missing codebase, unindexed codebase, missing entity) become tool error
// results the client can act on; anything else propagates as a Go error.
func toolError(err error) (*mcp.CallToolResult, error) {
	switch {
	case errors.Is(err, storage.ErrCodebaseNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("codebase_not_found: %v", err)), nil
	case errors.Is(err, storage.ErrCodebaseNotIndexed):
		return mcp.NewToolResultError(fmt.Sprintf("codebase_not_indexed: %v", err)), nil
	case errors.Is(err, storage.ErrEntityNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("entity_not_found: %v", err)), nil
	case errors.Is(err, storage.ErrIndexCorruption):
		return mcp.NewToolResultError(fmt.Sprintf("index_corruption: %v", err)), nil
	default:
		return nil, err
	}
}
