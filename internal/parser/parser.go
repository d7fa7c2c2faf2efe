// Package parser adapts per-language parsers to the normalized declaration
// tree consumed by the entity extractor. Tree-sitter grammars cover the
// dynamic languages; Go is parsed with go/ast. The core never sees grammar
// node kinds: each language contributes a declaration rule table (langSpec)
// mapping its node kinds onto normalized forms.
package parser

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/codescope/codescope/internal/extract"
)

// Parser produces a normalized parse tree for one source file.
type Parser interface {
	// ParseSource parses raw file content. A malformed source returns a
	// tree with Malformed set rather than an error; I/O and grammar
	// failures return errors.
	ParseSource(ctx context.Context, filePath string, source []byte) (*extract.ParsedFile, error)
}

// ParseFile reads and parses a file with the parser registered for its
// extension. Returns (nil, false, nil) for unsupported extensions.
func ParseFile(ctx context.Context, filePath string) (*extract.ParsedFile, bool, error) {
	p, ok := ForFile(filePath)
	if !ok {
		return nil, false, nil
	}

	source, err := os.ReadFile(filePath)
	if err != nil {
		return nil, true, err
	}

	parsed, err := p.ParseSource(ctx, filePath, source)
	if err != nil {
		return nil, true, err
	}
	return parsed, true, nil
}

// ForFile returns the parser registered for a file's extension.
func ForFile(filePath string) (Parser, bool) {
	ext := strings.ToLower(filepath.Ext(filePath))
	p, ok := registry[ext]
	return p, ok
}

// SupportedExtensions lists every extension with a registered parser.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(registry))
	for ext := range registry {
		exts = append(exts, ext)
	}
	return exts
}

// Language returns the language name a file would be indexed under, or ""
// if unsupported.
func Language(filePath string) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	if lang, ok := extensionLanguages[ext]; ok {
		return lang
	}
	return ""
}

var registry = map[string]Parser{}
var extensionLanguages = map[string]string{}

func register(p Parser, lang string, exts ...string) {
	for _, ext := range exts {
		registry[ext] = p
		extensionLanguages[ext] = lang
	}
}

func init() {
	register(NewGoParser(), "go", ".go")
	register(newTreeSitterParser(pythonSpec), "python", ".py")
	register(newTreeSitterParser(typescriptSpec), "typescript", ".ts", ".js", ".mjs")
	register(newTreeSitterParser(tsxSpec), "typescript", ".tsx", ".jsx")
	register(newTreeSitterParser(javaSpec), "java", ".java")
	register(newTreeSitterParser(rustSpec), "rust", ".rs")
	register(newTreeSitterParser(rubySpec), "ruby", ".rb")
	register(newTreeSitterParser(phpSpec), "php", ".php")
	register(newTreeSitterParser(cSpec), "c", ".c", ".h")
}
