package parser

import (
	"context"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codescope/codescope/internal/extract"
)

// langSpec is the declaration rule table for one tree-sitter grammar:
// which node kinds declare entities, which carry calls, and which carry
// imports. Keeping this as data preserves the normalization contract
// independent of any one grammar's shape.
type langSpec struct {
	name        string
	language    func() *sitter.Language
	decls       map[string]extract.DeclForm // node kind -> normalized form
	classForms  map[extract.DeclForm]bool   // forms whose nested functions become methods
	callKinds   map[string]bool             // node kinds that are call sites
	importKinds map[string]bool             // node kinds that are import declarations
	ctorNames   map[string]bool             // member names treated as constructors
	docKinds    map[string]bool             // node kinds usable as leading doc comments
}

// treeSitterParser walks any grammar's tree using its langSpec rule table.
type treeSitterParser struct {
	spec langSpec
}

func newTreeSitterParser(spec langSpec) *treeSitterParser {
	return &treeSitterParser{spec: spec}
}

// ParseSource parses the file and normalizes its declarations. A tree whose
// root contains syntax errors yields Malformed=true so the extractor can
// fail the file without losing last-known-good entities.
func (p *treeSitterParser) ParseSource(ctx context.Context, filePath string, source []byte) (*extract.ParsedFile, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	parser.SetLanguage(p.spec.language())

	tree := parser.Parse(source, nil)
	if tree == nil {
		return &extract.ParsedFile{Language: p.spec.name, Malformed: true}, nil
	}
	defer tree.Close()

	root := tree.RootNode()
	file := &extract.ParsedFile{
		Language:  p.spec.name,
		Malformed: root.HasError(),
	}
	if file.Malformed {
		return file, nil
	}

	lines := strings.Split(string(source), "\n")
	file.Decls = p.collectDecls(root, source, lines, false)
	return file, nil
}

// collectDecls walks the subtree for declaration nodes, recursing through
// non-declaration containers (module bodies, export wrappers, blocks).
// insideClass marks function declarations found in a class body as methods.
func (p *treeSitterParser) collectDecls(node *sitter.Node, source []byte, lines []string, insideClass bool) []*extract.ParsedNode {
	var decls []*extract.ParsedNode

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		kind := child.Kind()

		if p.spec.importKinds[kind] {
			if imp := p.importNode(child, source, lines); imp != nil {
				decls = append(decls, imp)
			}
			continue
		}

		form, isDecl := p.spec.decls[kind]
		if !isDecl {
			// Not a declaration itself: recurse so wrapped declarations
			// (export statements, decorated definitions) are still found.
			decls = append(decls, p.collectDecls(child, source, lines, insideClass)...)
			continue
		}

		decl := p.declNode(child, source, lines, form, insideClass)
		if decl != nil {
			decls = append(decls, decl)
		}
	}

	return decls
}

// declNode normalizes one declaration node.
func (p *treeSitterParser) declNode(node *sitter.Node, source []byte, lines []string, form extract.DeclForm, insideClass bool) *extract.ParsedNode {
	name := nodeName(node, source)
	if name == "" {
		return nil
	}

	if insideClass && (form == extract.FormFunction || form == extract.FormArrowFunction) {
		form = extract.FormMethod
	}
	if p.spec.ctorNames[name] && (form == extract.FormMethod || form == extract.FormFunction) {
		form = extract.FormConstructor
	}

	startLine := int(node.StartPosition().Row) + 1
	endLine := int(node.EndPosition().Row) + 1

	decl := &extract.ParsedNode{
		Form:      form,
		Name:      name,
		Signature: signatureLine(lines, startLine),
		Doc:       p.leadingDoc(node, source),
		StartLine: startLine,
		EndLine:   endLine,
		StartByte: int(node.StartByte()),
		EndByte:   int(node.EndByte()),
		Body:      string(source[node.StartByte():node.EndByte()]),
		Params:    paramList(node, source),
	}

	if p.spec.classForms[form] {
		if body := node.ChildByFieldName("body"); body != nil {
			decl.Children = p.collectDecls(body, source, lines, true)
		}
	} else {
		decl.Calls = p.collectCalls(node, source)
	}

	return decl
}

// importNode normalizes an import declaration. The imported module text
// (dotted path, string literal, or bare identifier) becomes the entity name.
func (p *treeSitterParser) importNode(node *sitter.Node, source []byte, lines []string) *extract.ParsedNode {
	startLine := int(node.StartPosition().Row) + 1
	text := string(source[node.StartByte():node.EndByte()])

	name := importedModule(text)
	if name == "" {
		return nil
	}

	return &extract.ParsedNode{
		Form:      extract.FormImport,
		Name:      name,
		Signature: signatureLine(lines, startLine),
		StartLine: startLine,
		EndLine:   int(node.EndPosition().Row) + 1,
		StartByte: int(node.StartByte()),
		EndByte:   int(node.EndByte()),
	}
}

// collectCalls finds call sites inside a declaration body.
func (p *treeSitterParser) collectCalls(node *sitter.Node, source []byte) []extract.CallSite {
	var calls []extract.CallSite
	walkTree(node, func(n *sitter.Node) bool {
		if !p.spec.callKinds[n.Kind()] {
			return true
		}
		callee := calleeName(n, source)
		if callee != "" {
			calls = append(calls, extract.CallSite{
				Callee: callee,
				Line:   int(n.StartPosition().Row) + 1,
			})
		}
		return true
	})
	return calls
}

// leadingDoc returns the text of a doc comment node immediately preceding
// the declaration, with comment markers stripped.
func (p *treeSitterParser) leadingDoc(node *sitter.Node, source []byte) string {
	if len(p.spec.docKinds) == 0 {
		return ""
	}
	prev := node.PrevSibling()
	if prev == nil || !p.spec.docKinds[prev.Kind()] {
		return ""
	}
	return cleanComment(string(source[prev.StartByte():prev.EndByte()]))
}

// nodeName resolves the declared name of a node. Most grammars expose a
// "name" field; variable declarations hide it one level down in a
// declarator child.
func nodeName(node *sitter.Node, source []byte) string {
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		return string(source[nameNode.StartByte():nameNode.EndByte()])
	}

	// C-style declarations nest the name inside declarator chains
	// (function_declarator, pointer_declarator).
	if decl := node.ChildByFieldName("declarator"); decl != nil {
		for decl != nil && decl.Kind() != "identifier" {
			next := decl.ChildByFieldName("declarator")
			if next == nil {
				break
			}
			decl = next
		}
		if decl != nil && decl.Kind() == "identifier" {
			return string(source[decl.StartByte():decl.EndByte()])
		}
	}

	for _, kind := range []string{"variable_declarator", "init_declarator", "assignment"} {
		if decl := findChildByKind(node, kind); decl != nil {
			if nameNode := decl.ChildByFieldName("name"); nameNode != nil {
				return string(source[nameNode.StartByte():nameNode.EndByte()])
			}
			if left := decl.ChildByFieldName("left"); left != nil && left.Kind() == "identifier" {
				return string(source[left.StartByte():left.EndByte()])
			}
		}
	}
	return ""
}

// calleeName extracts the called identifier from a call node, stripping any
// receiver chain (obj.method() -> method).
func calleeName(node *sitter.Node, source []byte) string {
	target := node.ChildByFieldName("function")
	if target == nil {
		target = node.ChildByFieldName("name")
	}
	if target == nil {
		target = node.ChildByFieldName("method")
	}
	if target == nil {
		return ""
	}

	text := string(source[target.StartByte():target.EndByte()])
	if idx := strings.LastIndexAny(text, ".:"); idx >= 0 {
		text = text[idx+1:]
	}
	if !isIdentifier(text) {
		return ""
	}
	return text
}

// paramList parses the parameter field of a declaration into name/type
// pairs. Parameter grammar varies widely, so this keeps the raw text of
// each comma-separated parameter and splits a type annotation if one is
// present.
func paramList(node *sitter.Node, source []byte) []extract.Param {
	paramsNode := node.ChildByFieldName("parameters")
	if paramsNode == nil {
		return nil
	}

	text := string(source[paramsNode.StartByte():paramsNode.EndByte()])
	text = strings.Trim(text, "()")
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var params []extract.Param
	for _, raw := range splitTopLevel(text, ',') {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		name, typ := raw, ""
		if idx := strings.Index(raw, ":"); idx >= 0 {
			name = strings.TrimSpace(raw[:idx])
			typ = strings.TrimSpace(raw[idx+1:])
		}
		params = append(params, extract.Param{Name: name, Type: typ})
	}
	return params
}

// signatureLine is the verbatim declaration line, used for fallback display.
func signatureLine(lines []string, startLine int) string {
	if startLine < 1 || startLine > len(lines) {
		return ""
	}
	return strings.TrimRight(lines[startLine-1], " \t")
}

// importedModule pulls the module path out of an import statement's text.
func importedModule(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexAny(text, "'\""); idx >= 0 {
		rest := text[idx+1:]
		if end := strings.IndexAny(rest, "'\""); end >= 0 {
			return rest[:end]
		}
		return ""
	}

	fields := strings.Fields(strings.TrimSuffix(text, ";"))
	// Skip leading keywords: "import a.b", "from x import y", "use a::b".
	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "import", "from", "use", "require", "include", "static":
			continue
		default:
			return strings.TrimSuffix(fields[i], ";")
		}
	}
	return ""
}

// splitTopLevel splits on sep outside of brackets, so generic parameter
// types like Map<String, Integer> survive.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{', '<':
			depth++
		case ')', ']', '}', '>':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || r == '$' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

func cleanComment(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "/**")
		line = strings.TrimPrefix(line, "/*")
		line = strings.TrimPrefix(line, "*/")
		line = strings.TrimPrefix(line, "*")
		line = strings.TrimPrefix(line, "//")
		line = strings.TrimPrefix(line, "#")
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, " ")
}

// walkTree recursively walks a tree-sitter tree and calls the visitor for
// each node. Returning false stops descent into that subtree.
func walkTree(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}

	if !visitor(node) {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walkTree(node.Child(uint(i)), visitor)
	}
}

func findChildByKind(node *sitter.Node, kind string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child.Kind() == kind {
			return child
		}
	}
	return nil
}
