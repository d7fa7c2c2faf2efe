package refs

import (
	"strings"
	"unicode"
)

// Usage classifies how a reference site uses the target entity.
type Usage string

const (
	UsageCall           Usage = "call"
	UsageAssignment     Usage = "assignment"
	UsageDeclaration    Usage = "declaration"
	UsageReturn         Usage = "return"
	UsagePropertyAccess Usage = "property_access"
	UsageParameter      Usage = "parameter"
	UsageImport         Usage = "import"
	UsageOther          Usage = "other"
)

// declKeywords precede an identifier at its declaration site across the
// supported languages.
var declKeywords = []string{"function", "func", "def", "fn", "class", "interface", "type", "var", "let", "const"}

// importPrefixes open an import statement in the supported languages.
var importPrefixes = []string{"import ", "from ", "use ", "require(", "require ", "#include"}

// classifyUsage applies an ordered rule table to one occurrence of name at
// column col (0-indexed) in line. Earlier rules win: a call is a call even
// when it sits on a return statement.
func classifyUsage(line, name string, col int) Usage {
	after := line[col+len(name):]
	before := line[:col]
	trimmedAfter := strings.TrimLeft(after, " \t")
	trimmedLine := strings.TrimSpace(line)

	if isImportLine(trimmedLine) {
		return UsageImport
	}
	if strings.HasPrefix(trimmedAfter, "(") {
		return UsageCall
	}
	if isBareAssign(trimmedAfter) {
		return UsageAssignment
	}
	if precededByKeyword(before) {
		return UsageDeclaration
	}
	if strings.HasPrefix(trimmedLine, "return ") || strings.HasPrefix(trimmedLine, "return(") {
		return UsageReturn
	}
	if strings.HasSuffix(strings.TrimRight(before, " \t"), ".") || strings.HasPrefix(trimmedAfter, ".") {
		return UsagePropertyAccess
	}
	if insideArgList(before) {
		return UsageParameter
	}
	return UsageOther
}

// isBareAssign reports whether the text after the identifier starts with a
// plain assignment operator, distinguishing it from comparison operators.
func isBareAssign(after string) bool {
	if strings.HasPrefix(after, ":=") || strings.HasPrefix(after, "+=") || strings.HasPrefix(after, "-=") {
		return true
	}
	if !strings.HasPrefix(after, "=") {
		return false
	}
	return !strings.HasPrefix(after, "==") && !strings.HasPrefix(after, "=>")
}

func precededByKeyword(before string) bool {
	fields := strings.Fields(before)
	if len(fields) == 0 {
		return false
	}
	last := fields[len(fields)-1]
	for _, kw := range declKeywords {
		if last == kw {
			return true
		}
	}
	return false
}

func isImportLine(trimmedLine string) bool {
	for _, p := range importPrefixes {
		if strings.HasPrefix(trimmedLine, p) {
			return true
		}
	}
	return false
}

// insideArgList reports whether the occurrence sits inside an open argument
// list: an unclosed "(" earlier on the line with the identifier introduced
// by "(" or ",".
func insideArgList(before string) bool {
	depth := strings.Count(before, "(") - strings.Count(before, ")")
	if depth <= 0 {
		return false
	}
	trimmed := strings.TrimRight(before, " \t")
	return strings.HasSuffix(trimmed, "(") || strings.HasSuffix(trimmed, ",")
}

// boundedAt reports whether the occurrence at col is a whole-word match:
// not embedded in a longer identifier on either side.
func boundedAt(line, name string, col int) bool {
	if col > 0 && isIdentRune(rune(line[col-1])) {
		return false
	}
	end := col + len(name)
	if end < len(line) && isIdentRune(rune(line[end])) {
		return false
	}
	return true
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// scoreReference computes match confidence for one occurrence. The base
// covers any textual hit; bonuses accumulate for signals that the text
// really names the target, capped at 1.0.
func scoreReference(line, name string, col int, usage Usage) float64 {
	score := 0.5
	if boundedAt(line, name, col) {
		score += 0.3
	}
	after := strings.TrimLeft(line[col+len(name):], " \t")
	if strings.HasPrefix(after, "(") {
		score += 0.2
	}
	before := strings.TrimRight(line[:col], " \t")
	if strings.HasSuffix(before, ".") || strings.HasPrefix(after, ".") {
		score += 0.15
	}
	if usage == UsageImport {
		score += 0.25
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
