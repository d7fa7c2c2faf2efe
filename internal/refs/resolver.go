package refs

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/codescope/codescope/internal/graph"
	"github.com/codescope/codescope/internal/storage"
)

const defaultMaxReferences = 100

// Options controls which reference sites are reported.
type Options struct {
	IncludeTests    bool // keep references found in test files
	IncludeIndirect bool // add one-hop indirect callers from the graph
	IncludeComments bool // keep occurrences inside comments
	IncludeStrings  bool // keep occurrences inside string literals
	ContextLines    int  // surrounding source lines per reference
	MaxResults      int  // cap, defaultMaxReferences if <= 0
}

// Reference is one site that uses the target entity.
type Reference struct {
	File       string   `json:"file"`
	Line       int      `json:"line"`
	Column     int      `json:"column"`
	Content    string   `json:"content"`
	Usage      Usage    `json:"usage"`
	Confidence float64  `json:"confidence"`
	Context    []string `json:"context,omitempty"`
	Indirect   bool     `json:"indirect,omitempty"`
	Via        string   `json:"via,omitempty"` // calling function for indirect references
}

// Report is the full result for one entity.
type Report struct {
	Entity     *storage.CodeEntity `json:"entity"`
	References []Reference         `json:"references"`
	TotalFound int                 `json:"total_found"`
}

// EntitySource resolves single entities by id. The store satisfies this
// through GetEntity; long-lived callers pass a generation-keyed cache.
type EntitySource interface {
	Get(codebaseID, entityID string) (*storage.CodeEntity, error)
}

// storeSource adapts the store's GetEntity to EntitySource.
type storeSource struct {
	store *storage.Store
}

func (s storeSource) Get(codebaseID, entityID string) (*storage.CodeEntity, error) {
	return s.store.GetEntity(codebaseID, entityID)
}

// Resolver finds references to entities across an indexed codebase. Direct
// references come from a text scan over candidate entity bodies; indirect
// references come from the relationship graph, one hop past the direct
// callers. Graphs are cached per codebase and refreshed on access.
type Resolver struct {
	store    *storage.Store
	entities EntitySource

	mu     sync.Mutex
	graphs map[string]*graph.Graph
}

func NewResolver(store *storage.Store) *Resolver {
	return &Resolver{
		store:    store,
		entities: storeSource{store: store},
		graphs:   make(map[string]*graph.Graph),
	}
}

// SetEntitySource routes target lookups through src instead of the store.
func (r *Resolver) SetEntitySource(src EntitySource) {
	r.entities = src
}

// References resolves all reference sites for one entity. The codebase must
// be indexed and the entity must exist; sentinel errors from the storage
// layer pass through for classification. A bare name is accepted in place
// of a full entity id and resolves to its first declaration.
func (r *Resolver) References(ctx context.Context, codebaseID, entityID string, opts Options) (*Report, error) {
	cb, err := r.store.RequireIndexed(codebaseID)
	if err != nil {
		return nil, err
	}
	target, err := r.resolveTarget(codebaseID, entityID)
	if err != nil {
		return nil, err
	}
	entityID = target.ID
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxReferences
	}

	refs, err := r.directReferences(codebaseID, target, opts)
	if err != nil {
		return nil, err
	}

	if opts.IncludeIndirect {
		indirect, err := r.indirectReferences(codebaseID, entityID)
		if err != nil {
			return nil, err
		}
		refs = append(refs, indirect...)
	}

	refs = dedupe(refs)
	sort.SliceStable(refs, func(i, j int) bool {
		a, b := refs[i], refs[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})

	total := len(refs)
	if len(refs) > maxResults {
		refs = refs[:maxResults]
	}

	if opts.ContextLines > 0 {
		attachContext(cb.RootPath, refs, opts.ContextLines)
	}

	return &Report{Entity: target, References: refs, TotalFound: total}, nil
}

// directReferences scans the bodies of candidate entities for occurrences
// of the target's name. Candidates come from the postings index, so only
// entities whose text mentions the name are read at all. The declaration
// line of the target itself is never a reference.
// resolveTarget accepts either a full {file}::{name}::{line} id or a bare
// entity name, resolving the latter to its first declaration in file order.
func (r *Resolver) resolveTarget(codebaseID, entityID string) (*storage.CodeEntity, error) {
	if strings.Contains(entityID, "::") {
		return r.entities.Get(codebaseID, entityID)
	}
	matches, err := r.store.Entities(codebaseID, storage.EntityFilter{Name: entityID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return r.entities.Get(codebaseID, entityID)
	}
	return &matches[0], nil
}

func (r *Resolver) directReferences(codebaseID string, target *storage.CodeEntity, opts Options) ([]Reference, error) {
	matches, err := r.store.MatchTokens(codebaseID, []string{strings.ToLower(target.Name)}, 0)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.EntityID)
	}
	candidates, err := r.store.Entities(codebaseID, storage.EntityFilter{IDs: ids})
	if err != nil {
		return nil, err
	}

	var refs []Reference
	for _, cand := range candidates {
		if !opts.IncludeTests && isTestFile(cand.FilePath) {
			continue
		}
		refs = append(refs, scanBody(&cand, target, opts)...)
	}
	return refs, nil
}

// scanBody finds occurrences of the target name in one entity's body and
// classifies each.
func scanBody(cand, target *storage.CodeEntity, opts Options) []Reference {
	var refs []Reference
	name := target.Name

	for i, line := range strings.Split(cand.Body, "\n") {
		lineNo := cand.StartLine + i
		if cand.FilePath == target.FilePath && lineNo == target.StartLine {
			continue
		}
		for col := 0; ; {
			idx := strings.Index(line[col:], name)
			if idx < 0 {
				break
			}
			col += idx
			if !opts.IncludeComments && inComment(line, col) {
				break // the rest of the line is comment text too
			}
			if opts.IncludeStrings || !inString(line, col) {
				usage := classifyUsage(line, name, col)
				refs = append(refs, Reference{
					File:       cand.FilePath,
					Line:       lineNo,
					Column:     col + 1,
					Content:    strings.TrimRight(line, " \t"),
					Usage:      usage,
					Confidence: scoreReference(line, name, col, usage),
				})
			}
			col += len(name)
		}
	}
	return refs
}

// indirectReferences asks the relationship graph for callers one hop past
// the direct callers, tagged with the name of the calling function.
func (r *Resolver) indirectReferences(codebaseID, entityID string) ([]Reference, error) {
	g, err := r.graphFor(codebaseID)
	if err != nil {
		return nil, err
	}
	edges := g.IndirectCallers(entityID, defaultMaxReferences)

	refs := make([]Reference, 0, len(edges))
	for _, e := range edges {
		refs = append(refs, Reference{
			File:       e.FilePath,
			Line:       e.Line,
			Usage:      UsageCall,
			Confidence: e.Confidence,
			Indirect:   true,
			Via:        g.NameOf(e.FromID),
		})
	}
	return refs, nil
}

func (r *Resolver) graphFor(codebaseID string) (*graph.Graph, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.graphs[codebaseID]
	if !ok {
		loaded, err := graph.Load(r.store, codebaseID)
		if err != nil {
			return nil, err
		}
		r.graphs[codebaseID] = loaded
		return loaded, nil
	}
	if err := g.Refresh(); err != nil {
		return nil, err
	}
	return g, nil
}

// attachContext reads surrounding source lines from disk. A file that
// cannot be read yields a warning and references without context, never an
// error.
func attachContext(rootPath string, refs []Reference, contextLines int) {
	files := make(map[string][]string)
	for i := range refs {
		lines, ok := files[refs[i].File]
		if !ok {
			raw, err := os.ReadFile(filepath.Join(rootPath, refs[i].File))
			if err != nil {
				log.Printf("Warning: cannot read %s for reference context: %v", refs[i].File, err)
				files[refs[i].File] = nil
				continue
			}
			lines = strings.Split(string(raw), "\n")
			files[refs[i].File] = lines
		}
		if lines == nil {
			continue
		}
		start := refs[i].Line - 1 - contextLines
		if start < 0 {
			start = 0
		}
		end := refs[i].Line + contextLines
		if end > len(lines) {
			end = len(lines)
		}
		if start < end {
			refs[i].Context = append([]string(nil), lines[start:end]...)
		}
	}
}

func dedupe(refs []Reference) []Reference {
	type key struct {
		file      string
		line, col int
	}
	seen := make(map[key]struct{}, len(refs))
	kept := refs[:0]
	for _, ref := range refs {
		k := key{ref.File, ref.Line, ref.Column}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, ref)
	}
	return kept
}

var testPathMarkers = []string{"_test.", ".test.", ".spec.", "/tests/", "/test/", "/__tests__/"}

func isTestFile(path string) bool {
	normalized := "/" + strings.ToLower(filepath.ToSlash(path))
	for _, marker := range testPathMarkers {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return strings.HasPrefix(strings.ToLower(filepath.Base(path)), "test_")
}

// inComment reports whether the occurrence at col sits after a line comment
// marker. String literals containing markers are not accounted for; the
// scan is line-local by construction.
func inComment(line string, col int) bool {
	for _, marker := range []string{"//", "#", "--"} {
		if idx := strings.Index(line, marker); idx >= 0 && idx < col && !inString(line, idx) {
			return true
		}
	}
	return false
}

// inString reports whether position col sits inside a quoted literal, by
// counting unescaped quotes to its left.
func inString(line string, col int) bool {
	var inSingle, inDouble bool
	for i := 0; i < col && i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		}
	}
	return inSingle || inDouble
}
