// Package metrics computes per-entity complexity metrics: cyclomatic and
// cognitive complexity, lines of code, and a 0-100 maintainability index.
// The ratings feed query-result ranking and external debt tooling.
package metrics

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/codescope/codescope/internal/storage"
)

// Rating buckets an entity's aggregate complexity.
type Rating string

const (
	RatingLow      Rating = "low"
	RatingMedium   Rating = "medium"
	RatingHigh     Rating = "high"
	RatingVeryHigh Rating = "very_high"
)

// ComplexityMetrics is the computed metric set for one entity.
type ComplexityMetrics struct {
	EntityID             string  `json:"entity_id"`
	Cyclomatic           int     `json:"cyclomatic_complexity"`
	Cognitive            int     `json:"cognitive_complexity"`
	LinesOfCode          int     `json:"lines_of_code"`
	MaintainabilityIndex float64 `json:"maintainability_index"`
	Rating               Rating  `json:"complexity_rating"`
	Incomplete           bool    `json:"computation_incomplete,omitempty"`
}

// Branch keywords counted as decision points, shared across the indexed
// languages. Word-operator forms cover Python and Ruby.
var decisionKeywords = map[string]bool{
	"if": true, "elif": true, "elsif": true,
	"for": true, "while": true, "until": true,
	"case": true, "when": true, "switch": true,
	"catch": true, "except": true, "rescue": true,
	"and": true, "or": true,
}

// Calculate computes all metrics for one entity. Pure computation, no I/O;
// a malformed entity body yields a zeroed record with Incomplete set rather
// than an error.
func Calculate(e *storage.CodeEntity) ComplexityMetrics {
	m := ComplexityMetrics{EntityID: e.ID}

	if e.Body == "" || !utf8.ValidString(e.Body) {
		m.Incomplete = true
		m.Rating = RatingLow
		return m
	}

	lines := strings.Split(e.Body, "\n")
	m.LinesOfCode = countCodeLines(lines)
	m.Cyclomatic, m.Cognitive = branchComplexity(lines)
	m.MaintainabilityIndex = maintainabilityIndex(m.Cyclomatic, m.LinesOfCode)
	m.Rating = RatingFor(m.Cyclomatic, m.Cognitive, m.LinesOfCode, m.MaintainabilityIndex)
	return m
}

// branchComplexity scans the body for decision points. Cyclomatic
// complexity is decision points + 1. Cognitive complexity additionally
// weights nesting: each decision point costs 1 plus its nesting depth, so
// deeply nested control flow is penalized beyond the raw branch count.
//
// Nesting depth is derived from indentation relative to the body's base
// indent, which behaves consistently across brace and offside-rule
// languages.
func branchComplexity(lines []string) (cyclomatic, cognitive int) {
	base, unit := indentProfile(lines)

	decisions := 0
	cognitive = 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isCommentLine(trimmed) {
			continue
		}

		depth := 0
		if unit > 0 {
			indent := leadingWidth(line) - base
			if indent > 0 {
				depth = indent / unit
			}
		}

		points := decisionPoints(trimmed)
		decisions += points
		cognitive += points * (1 + depth)
	}

	return decisions + 1, cognitive
}

// decisionPoints counts branch keywords and short-circuit operators on one
// line, matching keywords only at token boundaries.
func decisionPoints(line string) int {
	points := strings.Count(line, "&&") + strings.Count(line, "||")

	inWord := false
	start := 0
	for i := 0; i <= len(line); i++ {
		isWordChar := i < len(line) && (line[i] == '_' ||
			(line[i] >= 'a' && line[i] <= 'z') ||
			(line[i] >= 'A' && line[i] <= 'Z') ||
			(line[i] >= '0' && line[i] <= '9'))
		if isWordChar && !inWord {
			start = i
			inWord = true
		} else if !isWordChar && inWord {
			if decisionKeywords[line[start:i]] {
				points++
			}
			inWord = false
		}
	}
	return points
}

// maintainabilityIndex is the classic composite rescaled to 0-100, with
// lines of code standing in for Halstead volume. Lower complexity and
// shorter bodies score higher.
func maintainabilityIndex(cyclomatic, loc int) float64 {
	if loc <= 0 {
		return 100
	}
	v := float64(loc)
	raw := 171 - 5.2*math.Log(v) - 0.23*float64(cyclomatic) - 16.2*math.Log(v)
	scaled := raw * 100 / 171
	return math.Max(0, math.Min(100, scaled))
}

// Point accumulation table behind RatingFor. Each metric contributes an
// escalating bucket; the sum maps onto the fixed rating thresholds. This
// exact rule is a compatibility contract - do not retune without versioning.
func ratingPoints(cyclomatic, cognitive, loc int, mi float64) int {
	points := 0

	switch {
	case cyclomatic > 50:
		points += 5
	case cyclomatic > 35:
		points += 4
	case cyclomatic > 20:
		points += 3
	case cyclomatic > 10:
		points += 1
	}

	switch {
	case cognitive > 60:
		points += 5
	case cognitive > 40:
		points += 4
	case cognitive > 25:
		points += 3
	case cognitive > 15:
		points += 1
	}

	switch {
	case loc > 300:
		points += 4
	case loc > 200:
		points += 3
	case loc > 100:
		points += 2
	}

	switch {
	case mi < 10:
		points += 6
	case mi < 20:
		points += 5
	case mi < 40:
		points += 2
	}

	return points
}

// RatingFor maps component metrics onto the fixed rating buckets:
// >= 8 points very_high, >= 5 high, >= 2 medium, else low.
func RatingFor(cyclomatic, cognitive, loc int, mi float64) Rating {
	points := ratingPoints(cyclomatic, cognitive, loc, mi)
	switch {
	case points >= 8:
		return RatingVeryHigh
	case points >= 5:
		return RatingHigh
	case points >= 2:
		return RatingMedium
	default:
		return RatingLow
	}
}

// indentProfile finds the base indentation and the smallest positive indent
// step, used to convert leading whitespace into a nesting depth.
func indentProfile(lines []string) (base, unit int) {
	base = -1
	unit = 0
	var widths []int
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		w := leadingWidth(line)
		if base == -1 || w < base {
			base = w
		}
		widths = append(widths, w)
	}
	if base == -1 {
		return 0, 0
	}

	for _, w := range widths {
		if delta := w - base; delta > 0 && (unit == 0 || delta < unit) {
			unit = delta
		}
	}
	return base, unit
}

func leadingWidth(line string) int {
	width := 0
	for _, r := range line {
		switch r {
		case ' ':
			width++
		case '\t':
			width += 4
		default:
			return width
		}
	}
	return width
}

func countCodeLines(lines []string) int {
	count := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !isCommentLine(trimmed) {
			count++
		}
	}
	return count
}

func isCommentLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "//") ||
		strings.HasPrefix(trimmed, "#") ||
		strings.HasPrefix(trimmed, "/*") ||
		strings.HasPrefix(trimmed, "*")
}

