package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescope/codescope/internal/storage"
)

// seedCallChain indexes a three-function chain: a calls b, b calls c.
func seedCallChain(t *testing.T) (*storage.Store, string, [3]string) {
	t.Helper()
	store := storage.NewTestStore(t)

	cb, err := store.CreateCodebase("/src/chain", []string{"go"})
	require.NoError(t, err)

	names := [3]string{"a", "b", "c"}
	starts := [3]int{1, 6, 11}
	var ids [3]string
	var entities []storage.CodeEntity
	for i, name := range names {
		e := storage.CodeEntity{
			ID:         storage.EntityID("chain.go", name, starts[i]),
			CodebaseID: cb.ID,
			Name:       name,
			Kind:       storage.KindFunction,
			FilePath:   "chain.go",
			StartLine:  starts[i],
			EndLine:    starts[i] + 3,
			Language:   "go",
			Body:       "func " + name + "() {}",
		}
		ids[i] = e.ID
		entities = append(entities, e)
	}

	rels := []storage.CodeRelationship{
		{CodebaseID: cb.ID, FromID: ids[0], ToID: "name::b", Kind: storage.RelCalls, Confidence: 0.9, FilePath: "chain.go", Line: 3},
		{CodebaseID: cb.ID, FromID: ids[1], ToID: "name::c", Kind: storage.RelCalls, Confidence: 0.9, FilePath: "chain.go", Line: 8},
	}
	require.NoError(t, store.ReplaceFileEntities(cb.ID, "chain.go", "h", entities, rels))
	return store, cb.ID, ids
}

func TestGraphCallIndexes(t *testing.T) {
	t.Parallel()
	store, codebaseID, ids := seedCallChain(t)

	g, err := Load(store, codebaseID)
	require.NoError(t, err)

	t.Run("name targets resolve to entity ids", func(t *testing.T) {
		callers := g.Callers(ids[2])
		require.Len(t, callers, 1)
		assert.Equal(t, ids[1], callers[0].FromID)
		assert.Equal(t, 8, callers[0].Line)
	})

	t.Run("callees mirror callers", func(t *testing.T) {
		callees := g.Callees(ids[0])
		require.Len(t, callees, 1)
		assert.Equal(t, ids[1], callees[0].ToID)
	})

	t.Run("indirect callers are one hop past direct", func(t *testing.T) {
		indirect := g.IndirectCallers(ids[2], 10)
		require.Len(t, indirect, 1)
		assert.Equal(t, ids[0], indirect[0].FromID)
		assert.Equal(t, "a", g.NameOf(indirect[0].FromID))
	})

	t.Run("direct callers are never reported as indirect", func(t *testing.T) {
		indirect := g.IndirectCallers(ids[1], 10)
		assert.Empty(t, indirect) // a is b's only caller, and nothing calls a
	})

	t.Run("reachability follows the DAG", func(t *testing.T) {
		reachable := g.Reachable(ids[0], 10)
		assert.ElementsMatch(t, []string{ids[1], ids[2]}, reachable)
	})
}

func TestGraphRefresh(t *testing.T) {
	t.Parallel()
	store, codebaseID, ids := seedCallChain(t)

	g, err := Load(store, codebaseID)
	require.NoError(t, err)
	require.Len(t, g.Callers(ids[2]), 1)

	// Rewriting the file without the b->c call must drop the edge after a
	// refresh.
	entities, err := store.Entities(codebaseID, storage.EntityFilter{FilePath: "chain.go"})
	require.NoError(t, err)
	rels := []storage.CodeRelationship{
		{CodebaseID: codebaseID, FromID: ids[0], ToID: "name::b", Kind: storage.RelCalls, Confidence: 0.9, FilePath: "chain.go", Line: 3},
	}
	require.NoError(t, store.ReplaceFileEntities(codebaseID, "chain.go", "h2", entities, rels))

	require.NoError(t, g.Refresh())
	assert.Empty(t, g.Callers(ids[2]))
	assert.Len(t, g.Callers(ids[1]), 1)
}

func TestGraphContainer(t *testing.T) {
	t.Parallel()
	store := storage.NewTestStore(t)

	cb, err := store.CreateCodebase("/src/demo", []string{"python"})
	require.NoError(t, err)

	class := storage.CodeEntity{
		ID: storage.EntityID("m.py", "Box", 1), CodebaseID: cb.ID, Name: "Box",
		Kind: storage.KindClass, FilePath: "m.py", StartLine: 1, EndLine: 10, Language: "python",
	}
	method := storage.CodeEntity{
		ID: storage.EntityID("m.py", "open", 3), CodebaseID: cb.ID, Name: "open",
		Kind: storage.KindMethod, FilePath: "m.py", StartLine: 3, EndLine: 6, Language: "python",
	}
	rels := []storage.CodeRelationship{
		{CodebaseID: cb.ID, FromID: class.ID, ToID: method.ID, Kind: storage.RelContains, Confidence: 1.0, FilePath: "m.py", Line: 3},
	}
	require.NoError(t, store.ReplaceFileEntities(cb.ID, "m.py", "h", []storage.CodeEntity{class, method}, rels))

	g, err := Load(store, cb.ID)
	require.NoError(t, err)

	containerID, ok := g.ContainerOf(method.ID)
	require.True(t, ok)
	assert.Equal(t, class.ID, containerID)

	_, ok = g.ContainerOf(class.ID)
	assert.False(t, ok)
}
