package extract

import "fmt"

// The extractor is language-agnostic: it consumes an already-normalized
// parse tree produced by a parser adapter (internal/parser) and never sees
// grammar-specific node kinds. The adapter maps each language's declaration
// forms onto DeclForm before handing the tree over.

// DeclForm is the normalized declaration form of a parsed node.
type DeclForm string

const (
	FormFunction      DeclForm = "function"
	FormMethod        DeclForm = "method"
	FormClass         DeclForm = "class"
	FormInterface     DeclForm = "interface"
	FormType          DeclForm = "type"
	FormVariable      DeclForm = "variable"
	FormImport        DeclForm = "import"
	FormConstructor   DeclForm = "constructor"
	FormArrowFunction DeclForm = "arrow_function"
)

// Param is one pre-parsed parameter of a declaration.
type Param struct {
	Name string
	Type string
}

// CallSite records a call observed inside a declaration body.
type CallSite struct {
	Callee string // called identifier as written (receiver stripped)
	Line   int    // 1-indexed line of the call
}

// ParsedNode is one normalized declaration in a parsed file. Nested
// declarations (methods in a class, closures in a function) appear as
// Children.
type ParsedNode struct {
	Form      DeclForm
	Name      string
	Signature string // verbatim declaration line
	Doc       string // documentation string, empty if none
	StartLine int    // 1-indexed
	EndLine   int    // 1-indexed, inclusive
	StartByte int
	EndByte   int
	Body      string // raw source text of the declaration span
	Params    []Param
	Calls     []CallSite
	Children  []*ParsedNode
}

// ParsedFile is the normalized output of a parser adapter for one source
// file.
type ParsedFile struct {
	Language  string
	Module    string // package/module qualifier, may be empty
	Decls     []*ParsedNode
	Malformed bool // set when the underlying parse produced an error tree
}

// ParseError reports a malformed syntax tree. The indexer responds by
// skipping the file and retaining its previous entities (last-known-good),
// never by silently deleting them.
type ParseError struct {
	FilePath string
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse failure in %s: %s", e.FilePath, e.Reason)
}

// Span associates an extracted entity with its byte range in the raw file,
// for callers that index raw text offsets.
type Span struct {
	EntityID  string
	StartByte int
	EndByte   int
}
