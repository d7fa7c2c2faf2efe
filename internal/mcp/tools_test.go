package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescope/codescope/internal/cache"
	"github.com/codescope/codescope/internal/dupes"
	"github.com/codescope/codescope/internal/query"
	"github.com/codescope/codescope/internal/refs"
	"github.com/codescope/codescope/internal/storage"
)

func toolRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func decodeResult[T any](t *testing.T, result *mcp.CallToolResult) T {
	t.Helper()
	require.NotNil(t, result)
	require.False(t, result.IsError)
	textContent, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "should be text content")
	var out T
	require.NoError(t, json.Unmarshal([]byte(textContent.Text), &out))
	return out
}

func newTestEntityCache(t *testing.T, store *storage.Store) *cache.EntityCache {
	t.Helper()
	entities, err := cache.NewEntityCache(store, 0)
	require.NoError(t, err)
	t.Cleanup(entities.Close)
	return entities
}

func seedToolFixture(t *testing.T, store *storage.Store) (codebaseID, entityID string) {
	t.Helper()

	cb, err := store.CreateCodebase("/tmp/mcp-fixture", []string{"go"})
	require.NoError(t, err)

	entityID = storage.EntityID("auth/login.go", "AuthenticateUser", 10)
	require.NoError(t, store.ReplaceFileEntities(cb.ID, "auth/login.go", "h1", []storage.CodeEntity{{
		ID: entityID, CodebaseID: cb.ID, Name: "AuthenticateUser",
		QualifiedName: "auth.AuthenticateUser", Kind: storage.KindFunction,
		FilePath: "auth/login.go", StartLine: 10, EndLine: 30, Language: "go",
		Signature: "func AuthenticateUser(name, password string) (*Session, error) {",
		Doc:       "AuthenticateUser checks credentials and opens a session.",
		Body:      "func AuthenticateUser(name, password string) (*Session, error) {\n\tif name == \"\" {\n\t\treturn nil, errEmpty\n\t}\n\treturn open(name)\n}",
	}}, nil))
	require.NoError(t, store.SetStatus(cb.ID, storage.StatusIndexed))
	return cb.ID, entityID
}

func TestSearchHandler(t *testing.T) {
	t.Parallel()

	store := storage.NewTestStore(t)
	codebaseID, _ := seedToolFixture(t, store)
	engine := query.NewEngine(store)
	t.Cleanup(engine.Close)
	handler := createSearchHandler(engine)

	t.Run("returns ranked results", func(t *testing.T) {
		result, err := handler(context.Background(), toolRequest(map[string]interface{}{
			"codebase_id": codebaseID,
			"query":       "AuthenticateUser",
		}))
		require.NoError(t, err)

		response := decodeResult[query.Response](t, result)
		assert.Equal(t, query.StrategyKeyword, response.SearchStrategy)
		require.NotEmpty(t, response.Results)
		assert.Equal(t, "auth/login.go", response.Results[0].File)
	})

	t.Run("missing query is a tool error", func(t *testing.T) {
		result, err := handler(context.Background(), toolRequest(map[string]interface{}{
			"codebase_id": codebaseID,
		}))
		require.NoError(t, err, "validation failures are tool errors, not system errors")
		require.NotNil(t, result)
		assert.True(t, result.IsError)
	})

	t.Run("unknown codebase is a tool error", func(t *testing.T) {
		result, err := handler(context.Background(), toolRequest(map[string]interface{}{
			"codebase_id": "missing",
			"query":       "anything",
		}))
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.True(t, result.IsError)
	})
}

func TestReferencesHandler(t *testing.T) {
	t.Parallel()

	store := storage.NewTestStore(t)
	codebaseID, entityID := seedToolFixture(t, store)
	resolver := refs.NewResolver(store)
	resolver.SetEntitySource(newTestEntityCache(t, store))
	handler := createReferencesHandler(resolver)

	t.Run("resolves references", func(t *testing.T) {
		result, err := handler(context.Background(), toolRequest(map[string]interface{}{
			"codebase_id": codebaseID,
			"entity_id":   entityID,
		}))
		require.NoError(t, err)

		report := decodeResult[refs.Report](t, result)
		assert.Equal(t, entityID, report.Entity.ID)
	})

	t.Run("unknown entity is a tool error", func(t *testing.T) {
		result, err := handler(context.Background(), toolRequest(map[string]interface{}{
			"codebase_id": codebaseID,
			"entity_id":   "auth/login.go::missing::1",
		}))
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.True(t, result.IsError)
	})
}

func TestComplexityHandler(t *testing.T) {
	t.Parallel()

	store := storage.NewTestStore(t)
	codebaseID, entityID := seedToolFixture(t, store)
	entities := newTestEntityCache(t, store)
	handler := createComplexityHandler(store, entities)

	t.Run("single entity", func(t *testing.T) {
		result, err := handler(context.Background(), toolRequest(map[string]interface{}{
			"codebase_id": codebaseID,
			"entity_id":   entityID,
		}))
		require.NoError(t, err)

		response := decodeResult[ComplexityResponse](t, result)
		require.Len(t, response.Results, 1)
		assert.Equal(t, entityID, response.Results[0].EntityID)
		assert.GreaterOrEqual(t, response.Results[0].Cyclomatic, 2) // one if branch
	})

	t.Run("whole file", func(t *testing.T) {
		result, err := handler(context.Background(), toolRequest(map[string]interface{}{
			"codebase_id": codebaseID,
			"file_path":   "auth/login.go",
		}))
		require.NoError(t, err)

		response := decodeResult[ComplexityResponse](t, result)
		assert.Equal(t, 1, response.Total)
	})

	t.Run("entity_id and file_path are mutually exclusive", func(t *testing.T) {
		result, err := handler(context.Background(), toolRequest(map[string]interface{}{
			"codebase_id": codebaseID,
			"entity_id":   entityID,
			"file_path":   "auth/login.go",
		}))
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.True(t, result.IsError)
	})
}

func TestCallGraphHandler(t *testing.T) {
	t.Parallel()

	store := storage.NewTestStore(t)
	codebaseID, entityID := seedToolFixture(t, store)

	callerID := storage.EntityID("api/handler.go", "handleLogin", 5)
	require.NoError(t, store.ReplaceFileEntities(codebaseID, "api/handler.go", "h2", []storage.CodeEntity{{
		ID: callerID, CodebaseID: codebaseID, Name: "handleLogin",
		QualifiedName: "api.handleLogin", Kind: storage.KindFunction,
		FilePath: "api/handler.go", StartLine: 5, EndLine: 9, Language: "go",
		Signature: "func handleLogin(w http.ResponseWriter, r *http.Request) {",
		Body:      "func handleLogin(w http.ResponseWriter, r *http.Request) {\n\tAuthenticateUser(n, p)\n}",
	}}, []storage.CodeRelationship{{
		CodebaseID: codebaseID, FromID: callerID, ToID: "name::AuthenticateUser",
		Kind: storage.RelCalls, Confidence: 0.9, FilePath: "api/handler.go", Line: 6,
	}}))

	handler := createCallGraphHandler(store, newGraphCache(store), newTestEntityCache(t, store))

	result, err := handler(context.Background(), toolRequest(map[string]interface{}{
		"codebase_id": codebaseID,
		"entity_id":   entityID,
		"direction":   "callers",
	}))
	require.NoError(t, err)

	response := decodeResult[CallGraphResponse](t, result)
	require.Len(t, response.Edges, 1)
	assert.Equal(t, "handleLogin", response.Edges[0].FromName)
	assert.Equal(t, 6, response.Edges[0].Line)
}

func TestParseArgs(t *testing.T) {
	t.Parallel()

	args := map[string]interface{}{
		"name":   "value",
		"count":  float64(7),
		"ratio":  0.85,
		"toggle": true,
	}

	s, err := parseStringArg(args, "name", true)
	require.NoError(t, err)
	assert.Equal(t, "value", s)

	_, err = parseStringArg(args, "absent", true)
	assert.Error(t, err)

	s, err = parseStringArg(args, "absent", false)
	require.NoError(t, err)
	assert.Empty(t, s)

	assert.Equal(t, 7, parseIntArg(args, "count", 1))
	assert.Equal(t, 1, parseIntArg(args, "absent", 1))
	assert.InDelta(t, 0.85, parseFloatArg(args, "ratio", 0), 0.001)
	assert.True(t, parseBoolArg(args, "toggle", false))
	assert.False(t, parseBoolArg(args, "absent", false))
}

func TestDuplicatesHandlerTypeSelection(t *testing.T) {
	t.Parallel()

	store := storage.NewTestStore(t)
	codebaseID, _ := seedToolFixture(t, store)
	handler := createDuplicatesHandler(dupes.NewDetector(store))

	result, err := handler(context.Background(), toolRequest(map[string]interface{}{
		"codebase_id": codebaseID,
		"types":       "exact, bogus",
	}))
	require.NoError(t, err, "validation failures are tool errors, not system errors")
	require.NotNil(t, result)
	require.True(t, result.IsError)
	textContent, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	assert.Contains(t, textContent.Text, "unknown duplicate kind")
}
