package query

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"github.com/codescope/codescope/internal/storage"
)

const defaultMaxResults = 20

// Options controls a single search request.
type Options struct {
	MaxResults int    // cap on returned results, defaultMaxResults if <= 0
	FileFilter string // optional glob applied to result file paths
}

// Result is one ranked search hit pointing at a declaration site.
type Result struct {
	File    string  `json:"file"`
	Line    int     `json:"line"`
	Column  int     `json:"column"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Response is the stable search result shape. TotalMatches counts matches
// before the MaxResults cap; zero matches is a valid response, not an error.
type Response struct {
	Results         []Result `json:"results"`
	QueryIntent     Intent   `json:"query_intent"`
	ExecutionTimeMS int64    `json:"execution_time_ms"`
	TotalMatches    int      `json:"total_matches"`
	SearchStrategy  Strategy `json:"search_strategy"`
}

// Engine runs queries against an indexed codebase: classify intent, select
// a strategy, execute it, rank the candidates. Semantic indexes are built
// per codebase and reused across calls.
type Engine struct {
	store *storage.Store

	mu        sync.Mutex
	semantics map[string]*semanticIndex
}

func NewEngine(store *storage.Store) *Engine {
	return &Engine{
		store:     store,
		semantics: make(map[string]*semanticIndex),
	}
}

// Close releases any semantic indexes the engine has built.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, sem := range e.semantics {
		sem.close()
	}
	e.semantics = make(map[string]*semanticIndex)
}

// Search executes one query end to end. The codebase must exist and be
// indexed; storage.ErrCodebaseNotFound and storage.ErrCodebaseNotIndexed
// pass through wrapped for the caller to classify.
func (e *Engine) Search(ctx context.Context, codebaseID, rawQuery string, opts Options) (*Response, error) {
	started := time.Now()

	if _, err := e.store.RequireIndexed(codebaseID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	intent := ClassifyIntent(rawQuery)
	strategy := SelectStrategy(rawQuery)
	tokens := Tokenize(rawQuery)

	var (
		candidates []storage.CodeEntity
		err        error
	)
	switch strategy {
	case StrategyKeyword:
		candidates, err = e.keywordCandidates(codebaseID, tokens, maxResults)
	case StrategyStructural:
		candidates, err = e.structuralCandidates(codebaseID, rawQuery, maxResults)
	default:
		candidates, err = e.semanticCandidates(codebaseID, tokens, maxResults)
	}
	if err != nil {
		return nil, err
	}

	if opts.FileFilter != "" {
		candidates, err = filterByGlob(candidates, opts.FileFilter)
		if err != nil {
			return nil, err
		}
	}

	ranked := rankEntities(rawQuery, ExpandTokens(tokens), candidates)
	total := len(ranked)
	if len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}

	results := make([]Result, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, Result{
			File:    r.entity.FilePath,
			Line:    r.entity.StartLine,
			Column:  nameColumn(r.entity),
			Content: r.entity.Signature,
			Score:   r.score,
		})
	}

	return &Response{
		Results:         results,
		QueryIntent:     intent,
		ExecutionTimeMS: time.Since(started).Milliseconds(),
		TotalMatches:    total,
		SearchStrategy:  strategy,
	}, nil
}

// keywordCandidates resolves FTS postings into entities. The candidate pool
// is wider than the final result cap so ranking has something to reorder.
func (e *Engine) keywordCandidates(codebaseID string, tokens []string, maxResults int) ([]storage.CodeEntity, error) {
	matches, err := e.store.MatchTokens(codebaseID, tokens, candidatePool(maxResults))
	if err != nil {
		return nil, err
	}
	return e.entitiesByMatches(codebaseID, matches)
}

var structuralDecl = regexp.MustCompile(`\b(function|class|method|interface|type)\s+(\w+)`)
var structuralIdent = regexp.MustCompile(`(\w+)\s*[({]`)

// structuralCandidates handles queries shaped like declarations or call
// sites: the identifier becomes an exact name filter, the declaration
// keyword (if any) narrows the entity kinds.
func (e *Engine) structuralCandidates(codebaseID, rawQuery string, maxResults int) ([]storage.CodeEntity, error) {
	filter := storage.EntityFilter{Limit: candidatePool(maxResults)}

	var ident string
	if m := structuralDecl.FindStringSubmatch(rawQuery); m != nil {
		filter.Kinds = kindsForDeclWord(m[1])
		ident = m[2]
	} else if m := structuralIdent.FindStringSubmatch(rawQuery); m != nil {
		ident = m[1]
	}
	if ident == "" {
		return nil, nil
	}

	filter.Name = ident
	entities, err := e.store.Entities(codebaseID, filter)
	if err != nil {
		return nil, err
	}
	if len(entities) > 0 {
		return entities, nil
	}
	// No exact name hit, fall back to a substring scan so near-miss
	// identifiers still surface. The declaration keyword's kind filter
	// applies here too: "interface Invoice" must not surface a class.
	scanned, err := e.store.SubstringScan(codebaseID, ident, candidatePool(maxResults))
	if err != nil {
		return nil, err
	}
	return filterByKinds(scanned, filter.Kinds), nil
}

// filterByKinds keeps entities whose kind appears in kinds. An empty kinds
// slice keeps everything.
func filterByKinds(entities []storage.CodeEntity, kinds []storage.EntityKind) []storage.CodeEntity {
	if len(kinds) == 0 {
		return entities
	}
	wanted := make(map[storage.EntityKind]bool, len(kinds))
	for _, k := range kinds {
		wanted[k] = true
	}
	kept := entities[:0]
	for _, e := range entities {
		if wanted[e.Kind] {
			kept = append(kept, e)
		}
	}
	return kept
}

// semanticCandidates unions bleve hits with FTS postings over the stem
// expanded token set.
func (e *Engine) semanticCandidates(codebaseID string, tokens []string, maxResults int) ([]storage.CodeEntity, error) {
	expanded := ExpandTokens(tokens)
	pool := candidatePool(maxResults)

	ids, err := e.semanticFor(codebaseID).candidates(expanded, pool)
	if err != nil {
		return nil, err
	}

	matches, err := e.store.MatchTokens(codebaseID, expanded, pool)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(ids)+len(matches))
	merged := make([]string, 0, len(ids)+len(matches))
	for _, id := range ids {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			merged = append(merged, id)
		}
	}
	for _, m := range matches {
		if _, dup := seen[m.EntityID]; !dup {
			seen[m.EntityID] = struct{}{}
			merged = append(merged, m.EntityID)
		}
	}
	if len(merged) == 0 {
		return nil, nil
	}
	return e.store.Entities(codebaseID, storage.EntityFilter{IDs: merged})
}

func (e *Engine) semanticFor(codebaseID string) *semanticIndex {
	e.mu.Lock()
	defer e.mu.Unlock()
	sem, ok := e.semantics[codebaseID]
	if !ok {
		sem = newSemanticIndex(e.store, codebaseID)
		e.semantics[codebaseID] = sem
	}
	return sem
}

func (e *Engine) entitiesByMatches(codebaseID string, matches []storage.TokenMatch) ([]storage.CodeEntity, error) {
	if len(matches) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.EntityID)
	}
	return e.store.Entities(codebaseID, storage.EntityFilter{IDs: ids})
}

func filterByGlob(entities []storage.CodeEntity, pattern string) ([]storage.CodeEntity, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, err
	}
	kept := entities[:0]
	for _, e := range entities {
		if g.Match(e.FilePath) {
			kept = append(kept, e)
		}
	}
	return kept, nil
}

func kindsForDeclWord(word string) []storage.EntityKind {
	switch word {
	case "function":
		return []storage.EntityKind{storage.KindFunction, storage.KindArrowFunction}
	case "class":
		return []storage.EntityKind{storage.KindClass}
	case "method":
		return []storage.EntityKind{storage.KindMethod, storage.KindConstructor}
	case "interface":
		return []storage.EntityKind{storage.KindInterface}
	case "type":
		return []storage.EntityKind{storage.KindType, storage.KindClass, storage.KindInterface}
	default:
		return nil
	}
}

// candidatePool widens the retrieval limit beyond the final result cap so
// ranking operates on a meaningful candidate set.
func candidatePool(maxResults int) int {
	const floor = 100
	if maxResults*5 > floor {
		return maxResults * 5
	}
	return floor
}

// nameColumn locates the entity name inside its signature, 1-indexed.
// Falls back to column 1 when the signature does not carry the name.
func nameColumn(e storage.CodeEntity) int {
	if idx := strings.Index(e.Signature, e.Name); idx >= 0 {
		return idx + 1
	}
	return 1
}
