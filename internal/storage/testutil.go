package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestStore creates a fully configured in-memory store for testing.
// Schema (tables, indexes, FTS5 postings) is created and cleanup is
// registered with t.Cleanup().
func NewTestStore(t testing.TB) *Store {
	t.Helper()

	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

// SeedEntity inserts one entity (with its file hash) through the regular
// per-file upsert path. Convenient for read-path tests that only need a few
// rows.
func SeedEntity(t testing.TB, store *Store, e CodeEntity) {
	t.Helper()

	existing, err := store.Entities(e.CodebaseID, EntityFilter{FilePath: e.FilePath})
	require.NoError(t, err)

	entities := append(existing, e)
	require.NoError(t, store.ReplaceFileEntities(e.CodebaseID, e.FilePath, "seed", entities, nil))
}
