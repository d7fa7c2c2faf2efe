package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntity(codebaseID, file, name string, startLine, endLine int) CodeEntity {
	return CodeEntity{
		ID:            EntityID(file, name, startLine),
		CodebaseID:    codebaseID,
		Name:          name,
		QualifiedName: "pkg." + name,
		Kind:          KindFunction,
		FilePath:      file,
		StartLine:     startLine,
		EndLine:       endLine,
		Language:      "go",
		Signature:     "func " + name + "()",
		Body:          "func " + name + "() {\n\treturn\n}",
	}
}

func TestCodebaseLifecycle(t *testing.T) {
	t.Parallel()
	store := NewTestStore(t)

	cb, err := store.CreateCodebase("/src/demo", []string{"go", "python"})
	require.NoError(t, err)
	assert.NotEmpty(t, cb.ID)
	assert.Equal(t, StatusUnindexed, cb.Status)

	t.Run("round trips languages and status", func(t *testing.T) {
		loaded, err := store.GetCodebase(cb.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"go", "python"}, loaded.Languages)
		assert.Equal(t, StatusUnindexed, loaded.Status)
		assert.True(t, loaded.LastIndexed.IsZero())
	})

	t.Run("unknown id surfaces ErrCodebaseNotFound", func(t *testing.T) {
		_, err := store.GetCodebase("no-such-id")
		assert.ErrorIs(t, err, ErrCodebaseNotFound)
	})

	t.Run("unindexed codebase is not queryable", func(t *testing.T) {
		_, err := store.RequireIndexed(cb.ID)
		assert.ErrorIs(t, err, ErrCodebaseNotIndexed)
	})

	t.Run("failed status is also not queryable", func(t *testing.T) {
		require.NoError(t, store.SetStatus(cb.ID, StatusFailed))
		_, err := store.RequireIndexed(cb.ID)
		assert.ErrorIs(t, err, ErrCodebaseNotIndexed)
	})

	t.Run("indexed status stamps last_indexed_at", func(t *testing.T) {
		require.NoError(t, store.SetStatus(cb.ID, StatusIndexed))
		loaded, err := store.RequireIndexed(cb.ID)
		require.NoError(t, err)
		assert.False(t, loaded.LastIndexed.IsZero())
	})
}

func TestReplaceFileEntities(t *testing.T) {
	t.Parallel()
	store := NewTestStore(t)

	cb, err := store.CreateCodebase("/src/demo", []string{"go"})
	require.NoError(t, err)

	first := []CodeEntity{
		testEntity(cb.ID, "a.go", "Alpha", 1, 5),
		testEntity(cb.ID, "a.go", "Beta", 7, 12),
	}
	require.NoError(t, store.ReplaceFileEntities(cb.ID, "a.go", "hash-1", first, nil))

	t.Run("entities are readable after upsert", func(t *testing.T) {
		entities, err := store.Entities(cb.ID, EntityFilter{FilePath: "a.go"})
		require.NoError(t, err)
		require.Len(t, entities, 2)
		assert.Equal(t, "Alpha", entities[0].Name)
		assert.Equal(t, "Beta", entities[1].Name)
	})

	t.Run("no-op re-index is idempotent", func(t *testing.T) {
		before, err := store.Entities(cb.ID, EntityFilter{FilePath: "a.go"})
		require.NoError(t, err)

		require.NoError(t, store.ReplaceFileEntities(cb.ID, "a.go", "hash-1", first, nil))

		after, err := store.Entities(cb.ID, EntityFilter{FilePath: "a.go"})
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("replacement drops entities absent from re-parse", func(t *testing.T) {
		second := []CodeEntity{testEntity(cb.ID, "a.go", "Alpha", 1, 5)}
		require.NoError(t, store.ReplaceFileEntities(cb.ID, "a.go", "hash-2", second, nil))

		entities, err := store.Entities(cb.ID, EntityFilter{FilePath: "a.go"})
		require.NoError(t, err)
		require.Len(t, entities, 1)
		assert.Equal(t, "Alpha", entities[0].Name)

		// Postings for the dropped entity are gone too.
		matches, err := store.MatchTokens(cb.ID, []string{"Beta"}, 10)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("upsert bumps the index generation", func(t *testing.T) {
		before, err := store.Generation()
		require.NoError(t, err)

		require.NoError(t, store.ReplaceFileEntities(cb.ID, "b.go",
			"hash-3", []CodeEntity{testEntity(cb.ID, "b.go", "Gamma", 1, 3)}, nil))

		after, err := store.Generation()
		require.NoError(t, err)
		assert.Equal(t, before+1, after)
	})

	t.Run("file hash round trips", func(t *testing.T) {
		hash, err := store.FileHash(cb.ID, "a.go")
		require.NoError(t, err)
		assert.Equal(t, "hash-2", hash)

		hash, err = store.FileHash(cb.ID, "never-indexed.go")
		require.NoError(t, err)
		assert.Empty(t, hash)
	})
}

func TestDeleteFile(t *testing.T) {
	t.Parallel()
	store := NewTestStore(t)

	cb, err := store.CreateCodebase("/src/demo", []string{"go"})
	require.NoError(t, err)

	e := testEntity(cb.ID, "gone.go", "Doomed", 1, 4)
	rel := CodeRelationship{
		CodebaseID: cb.ID,
		FromID:     e.ID,
		ToID:       "other.go::Target::1",
		Kind:       RelCalls,
		Confidence: 1.0,
		FilePath:   "gone.go",
		Line:       2,
	}
	require.NoError(t, store.ReplaceFileEntities(cb.ID, "gone.go", "h", []CodeEntity{e}, []CodeRelationship{rel}))

	require.NoError(t, store.DeleteFile(cb.ID, "gone.go"))

	entities, err := store.Entities(cb.ID, EntityFilter{FilePath: "gone.go"})
	require.NoError(t, err)
	assert.Empty(t, entities)

	rels, err := store.Relationships(cb.ID, RelationshipFilter{})
	require.NoError(t, err)
	assert.Empty(t, rels)

	matches, err := store.MatchTokens(cb.ID, []string{"Doomed"}, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)

	files, err := store.IndexedFiles(cb.ID)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestMatchTokens(t *testing.T) {
	t.Parallel()
	store := NewTestStore(t)

	cb, err := store.CreateCodebase("/src/demo", []string{"go"})
	require.NoError(t, err)

	auth := testEntity(cb.ID, "auth.go", "authenticate_user", 1, 20)
	auth.Doc = "authenticate_user validates login credentials"
	pay := testEntity(cb.ID, "pay.go", "ProcessPayment", 1, 15)
	require.NoError(t, store.ReplaceFileEntities(cb.ID, "auth.go", "h1", []CodeEntity{auth}, nil))
	require.NoError(t, store.ReplaceFileEntities(cb.ID, "pay.go", "h2", []CodeEntity{pay}, nil))

	t.Run("token lookup hits the right entity", func(t *testing.T) {
		matches, err := store.MatchTokens(cb.ID, []string{"credentials"}, 10)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, auth.ID, matches[0].EntityID)
	})

	t.Run("underscored identifiers stay one token", func(t *testing.T) {
		matches, err := store.MatchTokens(cb.ID, []string{"authenticate_user"}, 10)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, auth.ID, matches[0].EntityID)
	})

	t.Run("multiple tokens use OR semantics", func(t *testing.T) {
		matches, err := store.MatchTokens(cb.ID, []string{"credentials", "ProcessPayment"}, 10)
		require.NoError(t, err)
		assert.Len(t, matches, 2)
	})

	t.Run("no tokens means no matches, no error", func(t *testing.T) {
		matches, err := store.MatchTokens(cb.ID, nil, 10)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}

func TestMatchTokensWithoutFTS5(t *testing.T) {
	t.Parallel()
	store := NewTestStore(t)
	store.fts = false

	cb, err := store.CreateCodebase("/src/demo", []string{"go"})
	require.NoError(t, err)

	auth := testEntity(cb.ID, "auth.go", "authenticate_user", 1, 20)
	auth.Doc = "authenticate_user validates login credentials"
	pay := testEntity(cb.ID, "pay.go", "ProcessPayment", 1, 15)
	require.NoError(t, store.ReplaceFileEntities(cb.ID, "auth.go", "h1", []CodeEntity{auth}, nil))
	require.NoError(t, store.ReplaceFileEntities(cb.ID, "pay.go", "h2", []CodeEntity{pay}, nil))

	t.Run("substring scan serves token lookups", func(t *testing.T) {
		matches, err := store.MatchTokens(cb.ID, []string{"credentials"}, 10)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, auth.ID, matches[0].EntityID)
	})

	t.Run("matching is case-insensitive with OR semantics", func(t *testing.T) {
		matches, err := store.MatchTokens(cb.ID, []string{"CREDENTIALS", "processpayment"}, 10)
		require.NoError(t, err)
		assert.Len(t, matches, 2)
	})

	t.Run("deletes still commit without the postings table", func(t *testing.T) {
		require.NoError(t, store.DeleteFile(cb.ID, "pay.go"))
		matches, err := store.MatchTokens(cb.ID, []string{"processpayment"}, 10)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}

func TestIsMissingFTS5(t *testing.T) {
	t.Parallel()

	assert.True(t, isMissingFTS5(errors.New("failed to create FTS5 index: no such module: fts5")))
	assert.False(t, isMissingFTS5(errors.New("database is locked")))
	assert.False(t, isMissingFTS5(nil))
}

func TestSubstringScan(t *testing.T) {
	t.Parallel()
	store := NewTestStore(t)

	cb, err := store.CreateCodebase("/src/demo", []string{"go"})
	require.NoError(t, err)
	SeedEntity(t, store, testEntity(cb.ID, "a.go", "HandleLogin", 1, 5))
	SeedEntity(t, store, testEntity(cb.ID, "a.go", "HandleLogout", 7, 11))
	SeedEntity(t, store, testEntity(cb.ID, "b.go", "ParseConfig", 1, 9))

	entities, err := store.SubstringScan(cb.ID, "Handle", 10)
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "HandleLogin", entities[0].Name)
	assert.Equal(t, "HandleLogout", entities[1].Name)
}

func TestGetEntity(t *testing.T) {
	t.Parallel()
	store := NewTestStore(t)

	cb, err := store.CreateCodebase("/src/demo", []string{"go"})
	require.NoError(t, err)

	e := testEntity(cb.ID, "a.go", "WithParams", 1, 5)
	e.Parameters = []Parameter{
		{EntityID: e.ID, Name: "ctx", ParamType: "context.Context", Position: 0},
		{EntityID: e.ID, Name: "limit", ParamType: "int", Position: 1},
	}
	require.NoError(t, store.ReplaceFileEntities(cb.ID, "a.go", "h", []CodeEntity{e}, nil))

	loaded, err := store.GetEntity(cb.ID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "WithParams", loaded.Name)
	require.Len(t, loaded.Parameters, 2)
	assert.Equal(t, "ctx", loaded.Parameters[0].Name)
	assert.Equal(t, "int", loaded.Parameters[1].ParamType)

	_, err = store.GetEntity(cb.ID, "stale::id::0")
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestPurgeCodebase(t *testing.T) {
	t.Parallel()
	store := NewTestStore(t)

	cb, err := store.CreateCodebase("/src/demo", []string{"go"})
	require.NoError(t, err)
	SeedEntity(t, store, testEntity(cb.ID, "a.go", "Alpha", 1, 5))
	require.NoError(t, store.SetStatus(cb.ID, StatusIndexed))

	require.NoError(t, store.PurgeCodebase(cb.ID))

	entities, err := store.Entities(cb.ID, EntityFilter{})
	require.NoError(t, err)
	assert.Empty(t, entities)

	loaded, err := store.GetCodebase(cb.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusUnindexed, loaded.Status)
}
