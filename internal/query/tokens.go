package query

import (
	"strings"
	"unicode"

	"github.com/surgebase/porter2"
)

// stopwords are dropped during tokenization; they carry no signal for
// identifier matching.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "all": {}, "any": {}, "are": {}, "find": {},
	"for": {}, "in": {}, "is": {}, "of": {}, "show": {}, "that": {},
	"the": {}, "to": {}, "with": {},
}

// Tokenize lowercases the query and splits it on everything that is not a
// letter, digit, or underscore. Underscores stay inside tokens so
// snake_case identifiers survive intact.
func Tokenize(rawQuery string) []string {
	fields := strings.FieldsFunc(strings.ToLower(rawQuery), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, skip := stopwords[f]; skip {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// ExpandTokens appends the Porter2 stem of each token so that inflected
// query words ("functions", "authenticating") also match index entries
// built from their base forms. Order is preserved and duplicates removed.
func ExpandTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens)*2)
	expanded := make([]string, 0, len(tokens)*2)
	add := func(tok string) {
		if tok == "" {
			return
		}
		if _, dup := seen[tok]; dup {
			return
		}
		seen[tok] = struct{}{}
		expanded = append(expanded, tok)
	}
	for _, tok := range tokens {
		add(tok)
		add(porter2.Stem(tok))
	}
	return expanded
}
