package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescope/codescope/internal/storage"
)

func TestClassifyIntent(t *testing.T) {
	t.Parallel()

	cases := []struct {
		query string
		want  Intent
	}{
		{"authentication functions", IntentAuthentication},
		{"login handler", IntentAuthentication},
		{"rest endpoint for users", IntentAPI},
		{"database migration runner", IntentDatabase},
		{"method that parses headers", IntentFunction},
		{"class hierarchy", IntentType},
		{"exception wrapping helpers", IntentErrorHandling},
		{"settings loader", IntentConfiguration},
		{"widget painter", IntentGeneral},
		{"", IntentGeneral},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ClassifyIntent(tc.query))
		})
	}

	t.Run("earlier bucket wins on overlap", func(t *testing.T) {
		t.Parallel()
		// Matches both the authentication and function buckets.
		assert.Equal(t, IntentAuthentication, ClassifyIntent("login function"))
	})
}

func TestSelectStrategy(t *testing.T) {
	t.Parallel()

	cases := []struct {
		query string
		want  Strategy
	}{
		{"parseHeader", StrategyKeyword},
		{"UserRepo", StrategyKeyword},
		{"foo and bar", StrategySemantic},           // conjunction disqualifies keyword
		{"handle retries", StrategySemantic},        // imperative disqualifies keyword
		{"function parseHeader", StrategyStructural},
		{"class PaymentProcessorImpl", StrategyStructural},
		{"computeTotals(", StrategyStructural},
		{"Config{", StrategyStructural},
		{"authentication functions", StrategySemantic},
		{"where users are validated in the session layer", StrategySemantic},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, SelectStrategy(tc.query))
		})
	}
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"parse_header", "http"}, Tokenize("Parse_Header for HTTP"))
	assert.Empty(t, Tokenize("the of to"))

	t.Run("stem expansion keeps originals first", func(t *testing.T) {
		t.Parallel()
		expanded := ExpandTokens([]string{"functions", "auth"})
		assert.Equal(t, "functions", expanded[0])
		assert.Contains(t, expanded, "function")
		assert.Contains(t, expanded, "auth")
	})
}

func seedSearchFixture(t *testing.T, store *storage.Store) string {
	t.Helper()

	cb, err := store.CreateCodebase("/tmp/fixture", []string{"go"})
	require.NoError(t, err)

	entities := []storage.CodeEntity{
		{
			ID:            storage.EntityID("auth/login.go", "AuthenticateUser", 10),
			CodebaseID:    cb.ID,
			Name:          "AuthenticateUser",
			QualifiedName: "auth.AuthenticateUser",
			Kind:          storage.KindFunction,
			FilePath:      "auth/login.go",
			StartLine:     10,
			EndLine:       30,
			Language:      "go",
			Signature:     "func AuthenticateUser(name, password string) (*Session, error) {",
			Doc:           "AuthenticateUser checks credentials and opens a session.",
			Body:          "func AuthenticateUser(name, password string) (*Session, error) {\n\treturn nil, nil\n}",
		},
		{
			ID:            storage.EntityID("auth/login.go", "validateToken", 40),
			CodebaseID:    cb.ID,
			Name:          "validateToken",
			QualifiedName: "auth.validateToken",
			Kind:          storage.KindFunction,
			FilePath:      "auth/login.go",
			StartLine:     40,
			EndLine:       55,
			Language:      "go",
			Signature:     "func validateToken(tok string) bool {",
			Body:          "func validateToken(tok string) bool {\n\treturn tok != \"\"\n}",
		},
		{
			ID:            storage.EntityID("billing/invoice.go", "ComputeTotals", 5),
			CodebaseID:    cb.ID,
			Name:          "ComputeTotals",
			QualifiedName: "billing.ComputeTotals",
			Kind:          storage.KindFunction,
			FilePath:      "billing/invoice.go",
			StartLine:     5,
			EndLine:       25,
			Language:      "go",
			Signature:     "func ComputeTotals(lines []Line) Money {",
			Body:          "func ComputeTotals(lines []Line) Money {\n\treturn Money{}\n}",
		},
		{
			ID:            storage.EntityID("billing/invoice.go", "Invoice", 30),
			CodebaseID:    cb.ID,
			Name:          "Invoice",
			QualifiedName: "billing.Invoice",
			Kind:          storage.KindClass,
			FilePath:      "billing/invoice.go",
			StartLine:     30,
			EndLine:       45,
			Language:      "go",
			Signature:     "type Invoice struct {",
			Body:          "type Invoice struct {\n\tID string\n}",
		},
	}
	byFile := map[string][]storage.CodeEntity{}
	for _, e := range entities {
		byFile[e.FilePath] = append(byFile[e.FilePath], e)
	}
	for path, group := range byFile {
		require.NoError(t, store.ReplaceFileEntities(cb.ID, path, "fixture", group, nil))
	}
	require.NoError(t, store.SetStatus(cb.ID, storage.StatusIndexed))
	return cb.ID
}

func TestEngineSearch(t *testing.T) {
	t.Parallel()

	store := storage.NewTestStore(t)
	codebaseID := seedSearchFixture(t, store)

	engine := NewEngine(store)
	t.Cleanup(engine.Close)
	ctx := context.Background()

	t.Run("natural language query uses the semantic path", func(t *testing.T) {
		resp, err := engine.Search(ctx, codebaseID, "authentication functions", Options{})
		require.NoError(t, err)

		assert.Equal(t, IntentAuthentication, resp.QueryIntent)
		assert.Equal(t, StrategySemantic, resp.SearchStrategy)
		require.NotEmpty(t, resp.Results)
		assert.Equal(t, "auth/login.go", resp.Results[0].File)
		assert.Equal(t, 10, resp.Results[0].Line)
		assert.Equal(t, len(resp.Results), resp.TotalMatches)
	})

	t.Run("identifier query uses the keyword path", func(t *testing.T) {
		resp, err := engine.Search(ctx, codebaseID, "ComputeTotals", Options{})
		require.NoError(t, err)

		assert.Equal(t, StrategyKeyword, resp.SearchStrategy)
		require.NotEmpty(t, resp.Results)
		assert.Equal(t, "billing/invoice.go", resp.Results[0].File)
		assert.Equal(t, "func ComputeTotals(lines []Line) Money {", resp.Results[0].Content)
		assert.Equal(t, 6, resp.Results[0].Column) // name offset inside the signature
	})

	t.Run("declaration-shaped query narrows by kind", func(t *testing.T) {
		resp, err := engine.Search(ctx, codebaseID, "class PaymentProcessorImplementation", Options{})
		require.NoError(t, err)
		assert.Equal(t, StrategyStructural, resp.SearchStrategy)
		assert.Zero(t, resp.TotalMatches)

		resp, err = engine.Search(ctx, codebaseID, "interface InvoiceRendererContract", Options{})
		require.NoError(t, err)
		assert.Equal(t, StrategyStructural, resp.SearchStrategy)
		for _, r := range resp.Results {
			assert.NotEqual(t, "type Invoice struct {", r.Content)
		}
	})

	t.Run("kind filter holds through the substring fallback", func(t *testing.T) {
		// "Invoice" exists only as a class, so an interface-shaped query
		// must come back empty even after the exact lookup misses.
		resp, err := engine.Search(ctx, codebaseID, "interface Invoice", Options{})
		require.NoError(t, err)
		assert.Equal(t, StrategyStructural, resp.SearchStrategy)
		assert.Empty(t, resp.Results)

		resp, err = engine.Search(ctx, codebaseID, "class Invoice", Options{})
		require.NoError(t, err)
		require.NotEmpty(t, resp.Results)
		assert.Equal(t, "type Invoice struct {", resp.Results[0].Content)
	})

	t.Run("zero matches is not an error", func(t *testing.T) {
		resp, err := engine.Search(ctx, codebaseID, "quantum flux regulator", Options{})
		require.NoError(t, err)
		assert.Zero(t, resp.TotalMatches)
		assert.Empty(t, resp.Results)
	})

	t.Run("file filter trims results", func(t *testing.T) {
		resp, err := engine.Search(ctx, codebaseID, "validateToken", Options{FileFilter: "billing/**"})
		require.NoError(t, err)
		assert.Empty(t, resp.Results)
	})

	t.Run("max results caps output but not the match count", func(t *testing.T) {
		resp, err := engine.Search(ctx, codebaseID, "authentication functions", Options{MaxResults: 1})
		require.NoError(t, err)
		assert.Len(t, resp.Results, 1)
		assert.GreaterOrEqual(t, resp.TotalMatches, 1)
	})
}

func TestEngineSearchErrors(t *testing.T) {
	t.Parallel()

	store := storage.NewTestStore(t)
	engine := NewEngine(store)
	t.Cleanup(engine.Close)
	ctx := context.Background()

	t.Run("unknown codebase", func(t *testing.T) {
		_, err := engine.Search(ctx, "missing", "anything", Options{})
		assert.ErrorIs(t, err, storage.ErrCodebaseNotFound)
	})

	t.Run("codebase not yet indexed", func(t *testing.T) {
		cb, err := store.CreateCodebase("/tmp/pending", []string{"go"})
		require.NoError(t, err)

		_, err = engine.Search(ctx, cb.ID, "anything", Options{})
		assert.ErrorIs(t, err, storage.ErrCodebaseNotIndexed)
	})
}
