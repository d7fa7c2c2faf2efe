package query

import (
	"sort"
	"strings"

	"github.com/codescope/codescope/internal/storage"
)

const exactMatchBonus = 0.25

// scored pairs an entity with its relevance score during ranking.
type scored struct {
	entity storage.CodeEntity
	score  float64
}

// rankEntities orders candidates by relevance to the query. The base score
// is the fraction of query tokens found in the entity's searchable text,
// with a bonus when the raw query appears verbatim in the entity name.
// Ties break toward the shorter qualified name, then file path, then line,
// so ranking is fully deterministic.
func rankEntities(rawQuery string, tokens []string, entities []storage.CodeEntity) []scored {
	lowered := strings.ToLower(strings.TrimSpace(rawQuery))

	ranked := make([]scored, 0, len(entities))
	for _, e := range entities {
		s := overlapScore(tokens, e)
		if lowered != "" && strings.Contains(strings.ToLower(e.QualifiedName), lowered) {
			s += exactMatchBonus
		}
		if s > 1.0 {
			s = 1.0
		}
		ranked = append(ranked, scored{entity: e, score: s})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if len(a.entity.QualifiedName) != len(b.entity.QualifiedName) {
			return len(a.entity.QualifiedName) < len(b.entity.QualifiedName)
		}
		if a.entity.FilePath != b.entity.FilePath {
			return a.entity.FilePath < b.entity.FilePath
		}
		return a.entity.StartLine < b.entity.StartLine
	})
	return ranked
}

// overlapScore is the fraction of query tokens (stems included) present in
// the entity's name, qualified name, signature, or doc text.
func overlapScore(tokens []string, e storage.CodeEntity) float64 {
	if len(tokens) == 0 {
		return 0
	}
	haystack := strings.ToLower(strings.Join([]string{e.Name, e.QualifiedName, e.Signature, e.Doc}, " "))
	matched := 0
	for _, tok := range tokens {
		if strings.Contains(haystack, tok) {
			matched++
		}
	}
	return float64(matched) / float64(len(tokens))
}
