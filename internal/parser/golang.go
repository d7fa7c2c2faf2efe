package parser

import (
	"context"
	goast "go/ast"
	goparser "go/parser"
	"go/token"
	"strings"

	"github.com/codescope/codescope/internal/extract"
)

// goParser parses Go files with go/ast instead of a tree-sitter grammar:
// the standard library parser is exact and already ships doc comments and
// typed parameter lists.
type goParser struct{}

// NewGoParser creates the Go parser adapter.
func NewGoParser() *goParser {
	return &goParser{}
}

// ParseSource parses a Go file into the normalized declaration tree.
func (p *goParser) ParseSource(ctx context.Context, filePath string, source []byte) (*extract.ParsedFile, error) {
	fset := token.NewFileSet()
	astFile, err := goparser.ParseFile(fset, filePath, source, goparser.ParseComments)
	if err != nil {
		// Syntax errors are a malformed tree, not an adapter failure.
		return &extract.ParsedFile{Language: "go", Malformed: true}, nil
	}

	lines := strings.Split(string(source), "\n")
	file := &extract.ParsedFile{
		Language: "go",
		Module:   astFile.Name.Name,
	}

	for _, imp := range astFile.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		pos := fset.Position(imp.Pos())
		end := fset.Position(imp.End())
		file.Decls = append(file.Decls, &extract.ParsedNode{
			Form:      extract.FormImport,
			Name:      path,
			Signature: signatureLine(lines, pos.Line),
			StartLine: pos.Line,
			EndLine:   end.Line,
			StartByte: fset.Position(imp.Pos()).Offset,
			EndByte:   fset.Position(imp.End()).Offset,
		})
	}

	for _, decl := range astFile.Decls {
		switch d := decl.(type) {
		case *goast.FuncDecl:
			file.Decls = append(file.Decls, p.funcNode(fset, d, source, lines))
		case *goast.GenDecl:
			file.Decls = append(file.Decls, p.genNodes(fset, d, source, lines)...)
		}
	}

	return file, nil
}

func (p *goParser) funcNode(fset *token.FileSet, d *goast.FuncDecl, source []byte, lines []string) *extract.ParsedNode {
	form := extract.FormFunction
	name := d.Name.Name
	if d.Recv != nil {
		form = extract.FormMethod
		if recv := receiverType(d.Recv); recv != "" {
			name = recv + "." + d.Name.Name
		}
	} else if strings.HasPrefix(d.Name.Name, "New") {
		form = extract.FormConstructor
	}

	node := p.baseNode(fset, d, form, name, d.Doc.Text(), source, lines)

	if d.Type.Params != nil {
		for _, field := range d.Type.Params.List {
			typeText := nodeText(fset, field.Type, source)
			if len(field.Names) == 0 {
				node.Params = append(node.Params, extract.Param{Type: typeText})
				continue
			}
			for _, ident := range field.Names {
				node.Params = append(node.Params, extract.Param{Name: ident.Name, Type: typeText})
			}
		}
	}

	if d.Body != nil {
		goast.Inspect(d.Body, func(n goast.Node) bool {
			call, ok := n.(*goast.CallExpr)
			if !ok {
				return true
			}
			callee := ""
			switch fun := call.Fun.(type) {
			case *goast.Ident:
				callee = fun.Name
			case *goast.SelectorExpr:
				callee = fun.Sel.Name
			}
			if callee != "" {
				node.Calls = append(node.Calls, extract.CallSite{
					Callee: callee,
					Line:   fset.Position(call.Pos()).Line,
				})
			}
			return true
		})
	}

	return node
}

func (p *goParser) genNodes(fset *token.FileSet, d *goast.GenDecl, source []byte, lines []string) []*extract.ParsedNode {
	var nodes []*extract.ParsedNode

	for _, spec := range d.Specs {
		switch s := spec.(type) {
		case *goast.TypeSpec:
			form := extract.FormType
			switch s.Type.(type) {
			case *goast.InterfaceType:
				form = extract.FormInterface
			case *goast.StructType:
				form = extract.FormClass
			}
			doc := d.Doc.Text()
			if s.Doc != nil {
				doc = s.Doc.Text()
			}
			nodes = append(nodes, p.baseNode(fset, s, form, s.Name.Name, doc, source, lines))
		case *goast.ValueSpec:
			for _, ident := range s.Names {
				if ident.Name == "_" {
					continue
				}
				nodes = append(nodes, p.baseNode(fset, s, extract.FormVariable, ident.Name, d.Doc.Text(), source, lines))
			}
		}
	}

	return nodes
}

func (p *goParser) baseNode(fset *token.FileSet, n goast.Node, form extract.DeclForm, name, doc string, source []byte, lines []string) *extract.ParsedNode {
	start := fset.Position(n.Pos())
	end := fset.Position(n.End())

	return &extract.ParsedNode{
		Form:      form,
		Name:      name,
		Signature: signatureLine(lines, start.Line),
		Doc:       strings.TrimSpace(doc),
		StartLine: start.Line,
		EndLine:   end.Line,
		StartByte: start.Offset,
		EndByte:   end.Offset,
		Body:      string(source[start.Offset:end.Offset]),
	}
}

func receiverType(recv *goast.FieldList) string {
	if len(recv.List) == 0 {
		return ""
	}
	switch t := recv.List[0].Type.(type) {
	case *goast.Ident:
		return t.Name
	case *goast.StarExpr:
		if ident, ok := t.X.(*goast.Ident); ok {
			return ident.Name
		}
		if idx, ok := t.X.(*goast.IndexExpr); ok {
			if ident, ok := idx.X.(*goast.Ident); ok {
				return ident.Name
			}
		}
	case *goast.IndexExpr:
		if ident, ok := t.X.(*goast.Ident); ok {
			return ident.Name
		}
	}
	return ""
}

func nodeText(fset *token.FileSet, n goast.Node, source []byte) string {
	start := fset.Position(n.Pos()).Offset
	end := fset.Position(n.End()).Offset
	if start < 0 || end > len(source) || start > end {
		return ""
	}
	return string(source[start:end])
}
