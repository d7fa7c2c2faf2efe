package query

import (
	"regexp"
	"strings"
)

// Strategy names the execution path a query takes through the engine.
type Strategy string

const (
	StrategyKeyword    Strategy = "keyword_search"
	StrategyStructural Strategy = "structural_search"
	StrategySemantic   Strategy = "semantic_search"
)

const keywordLengthLimit = 20

// conjunctions and imperatives disqualify a short query from the keyword
// path: their presence means the query describes behavior rather than
// naming an identifier.
var (
	conjunctions = []string{"and", "or", "where"}
	imperatives  = []string{"implement", "define", "create", "handle", "process"}

	declPattern    = regexp.MustCompile(`\b(function|class|method|interface|type)\s+\w+`)
	callPattern    = regexp.MustCompile(`\w+\(`)
	literalPattern = regexp.MustCompile(`\w+\{`)
)

// SelectStrategy picks the execution path for a query. Queries shaped like
// declarations or call sites go to structural search, short identifier-like
// queries go to keyword search, and everything else falls through to
// semantic search.
func SelectStrategy(rawQuery string) Strategy {
	trimmed := strings.TrimSpace(rawQuery)
	if declPattern.MatchString(trimmed) || callPattern.MatchString(trimmed) || literalPattern.MatchString(trimmed) {
		return StrategyStructural
	}
	if len(trimmed) < keywordLengthLimit && !containsWord(trimmed, conjunctions) && !containsWord(trimmed, imperatives) {
		return StrategyKeyword
	}
	return StrategySemantic
}

func containsWord(q string, words []string) bool {
	for _, field := range strings.Fields(strings.ToLower(q)) {
		for _, w := range words {
			if field == w {
				return true
			}
		}
	}
	return false
}
