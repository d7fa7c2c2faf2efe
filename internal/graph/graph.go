// Package graph maintains the in-memory relationship graph for one
// codebase: a directed graph of entity ids with reverse indexes for O(1)
// caller/callee lookups. It is loaded from the Index Store and refreshed
// when the store's generation moves, so readers always traverse a
// consistent snapshot.
package graph

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dominikbraun/graph"

	"github.com/codescope/codescope/internal/storage"
)

// Edge is one resolved relationship in the loaded graph.
type Edge struct {
	FromID     string
	ToID       string
	Kind       storage.RelationshipKind
	Confidence float64
	FilePath   string
	Line       int
}

// Graph is the loaded relationship graph for a single codebase.
type Graph struct {
	store      *storage.Store
	codebaseID string

	mu         sync.RWMutex
	generation uint64
	dag        graph.Graph[string, string]
	callers    map[string][]Edge // callee id -> edges from its callers
	callees    map[string][]Edge // caller id -> edges to its callees
	container  map[string]string // contained id -> containing entity id
	names      map[string]string // entity id -> name (for tagging results)
}

// Load builds the graph for a codebase from the store's current snapshot.
func Load(store *storage.Store, codebaseID string) (*Graph, error) {
	g := &Graph{
		store:      store,
		codebaseID: codebaseID,
	}
	if err := g.Reload(); err != nil {
		return nil, err
	}
	return g, nil
}

// Reload rebuilds the graph and reverse indexes from storage. Unresolved
// call targets (recorded by name during extraction) are resolved here
// against the current entity set: a name that matches several entities
// yields one edge per candidate, each keeping the original confidence.
func (g *Graph) Reload() error {
	generation, err := g.store.Generation()
	if err != nil {
		return err
	}

	entities, err := g.store.Entities(g.codebaseID, storage.EntityFilter{})
	if err != nil {
		return fmt.Errorf("failed to load entities for graph: %w", err)
	}
	rels, err := g.store.Relationships(g.codebaseID, storage.RelationshipFilter{})
	if err != nil {
		return fmt.Errorf("failed to load relationships for graph: %w", err)
	}

	byName := make(map[string][]string)
	names := make(map[string]string, len(entities))
	dag := graph.New(graph.StringHash, graph.Directed())
	for _, e := range entities {
		byName[e.Name] = append(byName[e.Name], e.ID)
		names[e.ID] = e.Name
		_ = dag.AddVertex(e.ID)
	}

	callers := make(map[string][]Edge)
	callees := make(map[string][]Edge)
	container := make(map[string]string)

	for _, rel := range rels {
		for _, toID := range resolveTargets(rel.ToID, byName) {
			edge := Edge{
				FromID:     rel.FromID,
				ToID:       toID,
				Kind:       rel.Kind,
				Confidence: rel.Confidence,
				FilePath:   rel.FilePath,
				Line:       rel.Line,
			}

			// Self-edges from name resolution (a function calling its own
			// name recursively) stay in the index but not in the DAG.
			if edge.FromID != edge.ToID {
				_ = dag.AddEdge(edge.FromID, edge.ToID)
			}

			switch rel.Kind {
			case storage.RelCalls:
				callers[edge.ToID] = append(callers[edge.ToID], edge)
				callees[edge.FromID] = append(callees[edge.FromID], edge)
			case storage.RelContains:
				container[edge.ToID] = edge.FromID
			}
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.generation = generation
	g.dag = dag
	g.callers = callers
	g.callees = callees
	g.container = container
	g.names = names
	return nil
}

// Refresh reloads the graph if the store's generation has moved since the
// last load. Cheap when nothing changed.
func (g *Graph) Refresh() error {
	current, err := g.store.Generation()
	if err != nil {
		return err
	}

	g.mu.RLock()
	stale := current != g.generation
	g.mu.RUnlock()

	if !stale {
		return nil
	}
	return g.Reload()
}

// Callers returns the call edges pointing at an entity.
func (g *Graph) Callers(entityID string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Edge(nil), g.callers[entityID]...)
}

// Callees returns the call edges leaving an entity.
func (g *Graph) Callees(entityID string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Edge(nil), g.callees[entityID]...)
}

// ContainerOf returns the entity containing the given one (a class around
// its method, a function around a closure), if any.
func (g *Graph) ContainerOf(entityID string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.container[entityID]
	return id, ok
}

// NameOf returns the short name of a loaded entity.
func (g *Graph) NameOf(entityID string) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.names[entityID]
}

// IndirectCallers finds entities one hop beyond the direct callers: callers
// of each direct caller of the target. Traversal depth is fixed at one hop
// to keep results bounded and interpretable; deeper traversal means
// re-invoking per hop. maxResults bounds the expansion.
func (g *Graph) IndirectCallers(entityID string, maxResults int) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := map[string]bool{entityID: true}
	for _, direct := range g.callers[entityID] {
		seen[direct.FromID] = true
	}

	var indirect []Edge
	for _, direct := range g.callers[entityID] {
		for _, edge := range g.callers[direct.FromID] {
			if seen[edge.FromID] {
				continue
			}
			seen[edge.FromID] = true
			indirect = append(indirect, edge)
			if maxResults > 0 && len(indirect) >= maxResults {
				return indirect
			}
		}
	}
	return indirect
}

// Reachable walks the relationship DAG outward from an entity in BFS
// order, honoring the caller-supplied result bound. Used for transitive
// impact listings; the fixed one-hop contract for indirect references is
// IndirectCallers.
func (g *Graph) Reachable(entityID string, maxResults int) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []string
	_ = graph.BFS(g.dag, entityID, func(id string) bool {
		if id == entityID {
			return false
		}
		out = append(out, id)
		return maxResults > 0 && len(out) >= maxResults
	})
	return out
}

// resolveTargets maps a relationship target onto concrete entity ids. A
// target recorded by name ("name::foo") resolves to every entity named foo;
// unresolvable names produce no edges.
func resolveTargets(toID string, byName map[string][]string) []string {
	name, ok := strings.CutPrefix(toID, "name::")
	if !ok {
		return []string{toID}
	}
	return byName[name]
}
