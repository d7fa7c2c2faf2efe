package dupes

import (
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// normalizeBlock prepares a code block for exact comparison: per-line
// whitespace is trimmed, internal runs collapse to one space, and blank
// lines drop out. Formatting differences never break an exact match.
func normalizeBlock(body string) string {
	var b strings.Builder
	for _, line := range strings.Split(body, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		b.WriteString(strings.Join(fields, " "))
		b.WriteByte('\n')
	}
	return b.String()
}

// exactFingerprint hashes the normalized block.
func exactFingerprint(normalized string) uint64 {
	return xxhash.Sum64String(normalized)
}

// structuralFingerprint hashes an identifier-blind token stream: every
// identifier becomes ID, every number N, every string literal S, while
// punctuation and keywords stay. Two blocks with the same shape but
// different names collide here.
func structuralFingerprint(normalized string) uint64 {
	return xxhash.Sum64String(structuralTokens(normalized))
}

// keywords survive structural normalization so control flow still
// distinguishes blocks. The set is a cross-language union.
var structuralKeywords = map[string]struct{}{
	"if": {}, "else": {}, "elif": {}, "for": {}, "while": {}, "do": {},
	"switch": {}, "case": {}, "break": {}, "continue": {}, "return": {},
	"func": {}, "function": {}, "def": {}, "fn": {}, "class": {},
	"try": {}, "catch": {}, "except": {}, "finally": {}, "throw": {}, "raise": {},
	"var": {}, "let": {}, "const": {}, "new": {}, "nil": {}, "null": {}, "none": {},
	"true": {}, "false": {}, "and": {}, "or": {}, "not": {}, "in": {}, "range": {},
}

func structuralTokens(normalized string) string {
	var out strings.Builder
	var tok strings.Builder
	inString := byte(0)

	flush := func() {
		if tok.Len() == 0 {
			return
		}
		word := tok.String()
		tok.Reset()
		lower := strings.ToLower(word)
		if _, kw := structuralKeywords[lower]; kw {
			out.WriteString(lower)
		} else if unicode.IsDigit(rune(word[0])) {
			out.WriteString("N")
		} else {
			out.WriteString("ID")
		}
		out.WriteByte(' ')
	}

	for i := 0; i < len(normalized); i++ {
		c := normalized[i]
		if inString != 0 {
			if c == '\\' {
				i++
			} else if c == inString {
				inString = 0
				out.WriteString("S ")
			}
			continue
		}
		switch {
		case c == '"' || c == '\'':
			flush()
			inString = c
		case unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c)) || c == '_':
			tok.WriteByte(c)
		case c == ' ' || c == '\n' || c == '\t':
			flush()
		default:
			flush()
			out.WriteByte(c)
			out.WriteByte(' ')
		}
	}
	flush()
	return out.String()
}
