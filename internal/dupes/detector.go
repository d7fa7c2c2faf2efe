package dupes

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"github.com/hbollon/go-edlib"

	"github.com/codescope/codescope/internal/storage"
)

// Kind orders detection precision: an exact group is also structurally and
// semantically similar, so each block lands in its most precise group only.
type Kind string

const (
	KindExact      Kind = "exact"
	KindStructural Kind = "structural"
	KindSemantic   Kind = "semantic"
)

// ParseKinds parses a comma-separated list of detection kinds, as accepted
// on the CLI and over MCP. An empty string selects all passes.
func ParseKinds(s string) ([]Kind, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var kinds []Kind
	for _, part := range strings.Split(s, ",") {
		switch k := Kind(strings.TrimSpace(part)); k {
		case KindExact, KindStructural, KindSemantic:
			kinds = append(kinds, k)
		default:
			return nil, fmt.Errorf("unknown duplicate kind %q (want exact, structural or semantic)", part)
		}
	}
	return kinds, nil
}

// Band buckets group similarity for reporting.
type Band string

const (
	BandExact    Band = "exact"     // similarity >= 0.95
	BandVeryHigh Band = "very_high" // similarity >= 0.85
	BandHigh     Band = "high"      // similarity >= 0.70
	BandMedium   Band = "medium"
)

// Effort estimates the cost of consolidating a group.
type Effort string

const (
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

const (
	defaultMinLines  = 5
	defaultThreshold = 0.7

	mediumEffortLines = 30
	highEffortLines   = 100

	// pairsPerGroup scales MaxResults into a pairwise-scan budget.
	pairsPerGroup = 16
)

// Options controls a detection run.
type Options struct {
	MinLines          int     // smallest block considered, defaultMinLines if <= 0
	Threshold         float64 // minimum semantic similarity, defaultThreshold if <= 0
	FileFilter        string  // glob restricting candidate files, empty scans the whole codebase
	DetectionTypes    []Kind  // passes to run, empty runs all three
	MaxResults        int     // cap on reported groups, 0 reports everything
	GroupBySimilarity bool    // merge groups whose representatives are similar
}

// Instance is one occurrence of a duplicated block.
type Instance struct {
	EntityID  string `json:"entity_id"`
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Name      string `json:"name"`
}

// Group is a set of blocks judged duplicates of each other.
type Group struct {
	ID                string     `json:"group_id"`
	Kind              Kind       `json:"kind"`
	Similarity        float64    `json:"similarity"`
	Band              Band       `json:"similarity_band"`
	Lines             int        `json:"lines"`
	Instances         []Instance `json:"instances"`
	EstimatedSavings  int        `json:"estimated_savings_lines"`
	MaintenanceEffort Effort     `json:"maintenance_effort"`

	rep string // normalized text of one member, for cross-group merging
}

// Report is the result of one detection run.
type Report struct {
	Groups          []Group `json:"groups"`
	TotalGroups     int     `json:"total_groups"`
	DuplicatedLines int     `json:"duplicated_lines"`
}

// Detector finds duplicated code blocks across an indexed codebase in three
// passes of decreasing precision: byte-equal normalized blocks, then
// identifier-blind structural twins, then edit-distance similarity over
// what remains.
type Detector struct {
	store *storage.Store
}

func NewDetector(store *storage.Store) *Detector {
	return &Detector{store: store}
}

// block is one candidate body with its precomputed fingerprints.
type block struct {
	entity     storage.CodeEntity
	normalized string
	lines      int
}

// blockKinds are the entity kinds with bodies worth comparing.
var blockKinds = []storage.EntityKind{
	storage.KindFunction,
	storage.KindMethod,
	storage.KindConstructor,
	storage.KindArrowFunction,
}

// Detect runs all three passes over the codebase and returns the grouped
// findings. A codebase without duplicates yields an empty report, not an
// error.
func (d *Detector) Detect(ctx context.Context, codebaseID string, opts Options) (*Report, error) {
	if _, err := d.store.RequireIndexed(codebaseID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	minLines := opts.MinLines
	if minLines <= 0 {
		minLines = defaultMinLines
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = defaultThreshold
	}

	var fileGlob glob.Glob
	if opts.FileFilter != "" {
		g, err := glob.Compile(opts.FileFilter, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid file filter %q: %w", opts.FileFilter, err)
		}
		fileGlob = g
	}
	wants := wantedKinds(opts.DetectionTypes)

	entities, err := d.store.Entities(codebaseID, storage.EntityFilter{Kinds: blockKinds})
	if err != nil {
		return nil, err
	}

	blocks := make([]block, 0, len(entities))
	for _, e := range entities {
		if fileGlob != nil && !fileGlob.Match(e.FilePath) {
			continue
		}
		normalized := normalizeBlock(e.Body)
		// normalizeBlock terminates every kept line with '\n'.
		lines := strings.Count(normalized, "\n")
		if lines < minLines {
			continue
		}
		blocks = append(blocks, block{entity: e, normalized: normalized, lines: lines})
	}

	// A pass that is not requested leaves its blocks for the next one, so
	// asking only for structural twins still surfaces byte-equal copies:
	// identical blocks share a structural fingerprint too.
	var groups []Group
	remaining := blocks

	if wants[KindExact] {
		var exact []Group
		exact, remaining = groupByFingerprint(remaining, KindExact, exactFingerprint)
		groups = append(groups, exact...)
	}

	if wants[KindStructural] {
		var structural []Group
		structural, remaining = groupByFingerprint(remaining, KindStructural, structuralFingerprint)
		groups = append(groups, structural...)
	}

	if wants[KindSemantic] {
		groups = append(groups, semanticGroups(remaining, threshold, pairScanBound(opts.MaxResults))...)
	}

	if opts.GroupBySimilarity {
		groups = mergeSimilar(groups, threshold)
	}

	finalizeGroups(groups)
	sortGroups(groups)

	if opts.MaxResults > 0 && len(groups) > opts.MaxResults {
		groups = groups[:opts.MaxResults]
	}

	report := &Report{Groups: groups, TotalGroups: len(groups)}
	for _, g := range groups {
		report.DuplicatedLines += g.EstimatedSavings
	}
	return report, nil
}

// wantedKinds expands the requested detection types; an empty request means
// all three passes.
func wantedKinds(types []Kind) map[Kind]bool {
	if len(types) == 0 {
		return map[Kind]bool{KindExact: true, KindStructural: true, KindSemantic: true}
	}
	wants := make(map[Kind]bool, len(types))
	for _, t := range types {
		wants[t] = true
	}
	return wants
}

// pairScanBound caps the quadratic similarity scan in proportion to the
// caller's result bound. Unbounded requests scan every comparable pair.
func pairScanBound(maxResults int) int {
	if maxResults <= 0 {
		return 0
	}
	return maxResults * pairsPerGroup
}

// groupByFingerprint buckets blocks by a hash of their normalized text.
// Buckets with at least two members become groups; singletons flow on to
// the next, less precise pass.
func groupByFingerprint(blocks []block, kind Kind, fingerprint func(string) uint64) ([]Group, []block) {
	buckets := make(map[uint64][]block)
	order := make([]uint64, 0, len(blocks))
	for _, b := range blocks {
		h := fingerprint(b.normalized)
		if _, seen := buckets[h]; !seen {
			order = append(order, h)
		}
		buckets[h] = append(buckets[h], b)
	}

	var groups []Group
	var rest []block
	for _, h := range order {
		members := buckets[h]
		if len(members) < 2 {
			rest = append(rest, members...)
			continue
		}
		groups = append(groups, newGroup(kind, members))
	}
	return groups, rest
}

// semanticGroups compares the leftover blocks pairwise with Jaro-Winkler
// similarity and unions pairs above the threshold. Only blocks of
// comparable size are compared; wildly different lengths cannot be
// duplicates worth reporting.
func semanticGroups(blocks []block, threshold float64, maxPairs int) []Group {
	parent := make([]int, len(blocks))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}

	similarities := make(map[[2]int]float64)
	for i := 0; i < len(blocks) && !pairLimitReached(similarities, maxPairs); i++ {
		for j := i + 1; j < len(blocks); j++ {
			if pairLimitReached(similarities, maxPairs) {
				break
			}
			if !comparableSize(blocks[i].lines, blocks[j].lines) {
				continue
			}
			sim, err := edlib.StringsSimilarity(blocks[i].normalized, blocks[j].normalized, edlib.JaroWinkler)
			if err != nil {
				continue
			}
			if float64(sim) >= threshold {
				similarities[[2]int{i, j}] = float64(sim)
				parent[find(i)] = find(j)
			}
		}
	}

	members := make(map[int][]int)
	for i := range blocks {
		root := find(i)
		members[root] = append(members[root], i)
	}

	var groups []Group
	for _, idxs := range members {
		if len(idxs) < 2 {
			continue
		}
		sort.Ints(idxs)
		group := make([]block, 0, len(idxs))
		var simSum float64
		var simCount int
		for a := 0; a < len(idxs); a++ {
			group = append(group, blocks[idxs[a]])
			for b := a + 1; b < len(idxs); b++ {
				key := [2]int{idxs[a], idxs[b]}
				if sim, ok := similarities[key]; ok {
					simSum += sim
					simCount++
				}
			}
		}
		g := newGroup(KindSemantic, group)
		if simCount > 0 {
			g.Similarity = simSum / float64(simCount)
		}
		groups = append(groups, g)
	}
	return groups
}

// newGroup builds a group from member blocks. Fingerprint-identical groups
// carry similarity 1.0; semantic groups overwrite it with the measured
// average.
func newGroup(kind Kind, members []block) Group {
	instances := make([]Instance, 0, len(members))
	maxLines := 0
	for _, m := range members {
		if m.lines > maxLines {
			maxLines = m.lines
		}
		instances = append(instances, Instance{
			EntityID:  m.entity.ID,
			File:      m.entity.FilePath,
			StartLine: m.entity.StartLine,
			EndLine:   m.entity.EndLine,
			Name:      m.entity.Name,
		})
	}
	sort.Slice(instances, func(i, j int) bool {
		if instances[i].File != instances[j].File {
			return instances[i].File < instances[j].File
		}
		return instances[i].StartLine < instances[j].StartLine
	})
	return Group{
		ID:         uuid.NewString(),
		Kind:       kind,
		Similarity: 1.0,
		Lines:      maxLines,
		Instances:  instances,
		rep:        members[0].normalized,
	}
}

// mergeSimilar unions groups whose representative blocks are similar above
// the threshold. The three detection passes partition the blocks, so the
// same duplicated logic can surface as one exact group plus a structural
// group of renamed variants; merging folds those back together. A merged
// group averages the member similarities and always reports high
// maintenance effort: the same code drifting across several groups is the
// expensive case.
func mergeSimilar(groups []Group, threshold float64) []Group {
	parent := make([]int, len(groups))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}

	for i := 0; i < len(groups); i++ {
		for j := i + 1; j < len(groups); j++ {
			sim, err := edlib.StringsSimilarity(groups[i].rep, groups[j].rep, edlib.JaroWinkler)
			if err != nil {
				continue
			}
			if float64(sim) >= threshold {
				parent[find(i)] = find(j)
			}
		}
	}

	buckets := make(map[int][]int)
	for i := range groups {
		root := find(i)
		buckets[root] = append(buckets[root], i)
	}

	merged := make([]Group, 0, len(buckets))
	for _, idxs := range buckets {
		if len(idxs) == 1 {
			merged = append(merged, groups[idxs[0]])
			continue
		}
		sort.Ints(idxs)
		out := groups[idxs[0]]
		out.ID = uuid.NewString()
		var simSum float64
		seen := make(map[string]struct{})
		instances := out.Instances[:0]
		for _, gi := range idxs {
			g := groups[gi]
			simSum += g.Similarity
			if g.Lines > out.Lines {
				out.Lines = g.Lines
			}
			if kindRank(g.Kind) < kindRank(out.Kind) {
				out.Kind = g.Kind
			}
			for _, inst := range g.Instances {
				if _, dup := seen[inst.EntityID]; dup {
					continue
				}
				seen[inst.EntityID] = struct{}{}
				instances = append(instances, inst)
			}
		}
		out.Instances = instances
		sort.Slice(out.Instances, func(i, j int) bool {
			if out.Instances[i].File != out.Instances[j].File {
				return out.Instances[i].File < out.Instances[j].File
			}
			return out.Instances[i].StartLine < out.Instances[j].StartLine
		})
		out.Similarity = simSum / float64(len(idxs))
		out.MaintenanceEffort = EffortHigh
		merged = append(merged, out)
	}
	return merged
}

// finalizeGroups fills the derived fields: similarity band, estimated
// savings, and maintenance effort (unless merging already pinned it high).
func finalizeGroups(groups []Group) {
	for i := range groups {
		g := &groups[i]
		g.Band = bandFor(g.Kind, g.Similarity)
		g.EstimatedSavings = (len(g.Instances) - 1) * g.Lines
		if g.MaintenanceEffort == "" {
			g.MaintenanceEffort = effortFor(g.EstimatedSavings)
		}
	}
}

func bandFor(kind Kind, similarity float64) Band {
	switch {
	case kind == KindExact || similarity >= 0.95:
		return BandExact
	case similarity >= 0.85:
		return BandVeryHigh
	case similarity >= 0.70:
		return BandHigh
	default:
		return BandMedium
	}
}

func effortFor(savings int) Effort {
	switch {
	case savings >= highEffortLines:
		return EffortHigh
	case savings >= mediumEffortLines:
		return EffortMedium
	default:
		return EffortLow
	}
}

func kindRank(k Kind) int {
	switch k {
	case KindExact:
		return 0
	case KindStructural:
		return 1
	default:
		return 2
	}
}

func pairLimitReached(similarities map[[2]int]float64, maxPairs int) bool {
	return maxPairs > 0 && len(similarities) >= maxPairs
}

// comparableSize gates the pairwise pass: block line counts must be within
// a factor of two of each other.
func comparableSize(a, b int) bool {
	if a > b {
		a, b = b, a
	}
	return a*2 >= b
}

func sortGroups(groups []Group) {
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.EstimatedSavings != b.EstimatedSavings {
			return a.EstimatedSavings > b.EstimatedSavings
		}
		if len(a.Instances) > 0 && len(b.Instances) > 0 {
			if a.Instances[0].File != b.Instances[0].File {
				return a.Instances[0].File < b.Instances[0].File
			}
			return a.Instances[0].StartLine < b.Instances[0].StartLine
		}
		return false
	})
}

