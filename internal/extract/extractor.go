package extract

import (
	"fmt"

	"github.com/codescope/codescope/internal/storage"
)

// Static call edges are recorded by callee name; the graph layer resolves
// names to entity ids at load time. Name references carry slightly lower
// confidence than structural containment, which is exact.
const (
	containsConfidence = 1.0
	importConfidence   = 1.0
	callConfidence     = 0.9
)

// UnresolvedID builds the placeholder edge target for a callee or import
// that could not be resolved to a concrete entity at extraction time.
func UnresolvedID(name string) string {
	return "name::" + name
}

// Result is the full output of extracting one file.
type Result struct {
	Entities      []storage.CodeEntity
	Spans         []Span
	Relationships []storage.CodeRelationship
}

// Extract turns one file's normalized parse tree into CodeEntity records,
// raw-text spans, and static relationship edges (contains, calls, imports).
//
// Pure function over its inputs: all persistence happens in the Index
// Store. Fails with *ParseError when the tree is malformed; the caller must
// then keep the file's previous entities.
func Extract(codebaseID, filePath string, file *ParsedFile) (*Result, error) {
	if file == nil {
		return nil, &ParseError{FilePath: filePath, Reason: "nil parse tree"}
	}
	if file.Malformed {
		return nil, &ParseError{FilePath: filePath, Reason: "syntax tree contains errors"}
	}

	res := &Result{}
	for _, decl := range file.Decls {
		if err := extractNode(codebaseID, filePath, file, decl, "", res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func extractNode(codebaseID, filePath string, file *ParsedFile, node *ParsedNode, parentID string, res *Result) error {
	if node.Name == "" {
		// Anonymous declarations (bare blocks, unnamed exports) carry no
		// identity and cannot be indexed or referenced.
		return nil
	}
	if node.EndLine < node.StartLine {
		return &ParseError{
			FilePath: filePath,
			Reason:   fmt.Sprintf("declaration %q spans lines %d-%d", node.Name, node.StartLine, node.EndLine),
		}
	}

	entity := storage.CodeEntity{
		ID:            storage.EntityID(filePath, node.Name, node.StartLine),
		CodebaseID:    codebaseID,
		Name:          node.Name,
		QualifiedName: qualify(file.Module, node.Name),
		Kind:          kindForForm(node.Form),
		FilePath:      filePath,
		StartLine:     node.StartLine,
		EndLine:       node.EndLine,
		Language:      file.Language,
		Signature:     node.Signature,
		Doc:           node.Doc,
		Body:          node.Body,
	}
	for i, p := range node.Params {
		entity.Parameters = append(entity.Parameters, storage.Parameter{
			EntityID:  entity.ID,
			Name:      p.Name,
			ParamType: p.Type,
			Position:  i,
		})
	}

	res.Entities = append(res.Entities, entity)
	res.Spans = append(res.Spans, Span{
		EntityID:  entity.ID,
		StartByte: node.StartByte,
		EndByte:   node.EndByte,
	})

	if parentID != "" {
		res.Relationships = append(res.Relationships, storage.CodeRelationship{
			CodebaseID: codebaseID,
			FromID:     parentID,
			ToID:       entity.ID,
			Kind:       storage.RelContains,
			Confidence: containsConfidence,
			FilePath:   filePath,
			Line:       node.StartLine,
		})
	}

	if node.Form == FormImport {
		res.Relationships = append(res.Relationships, storage.CodeRelationship{
			CodebaseID: codebaseID,
			FromID:     entity.ID,
			ToID:       UnresolvedID(node.Name),
			Kind:       storage.RelImports,
			Confidence: importConfidence,
			FilePath:   filePath,
			Line:       node.StartLine,
		})
	}

	for _, call := range node.Calls {
		res.Relationships = append(res.Relationships, storage.CodeRelationship{
			CodebaseID: codebaseID,
			FromID:     entity.ID,
			ToID:       UnresolvedID(call.Callee),
			Kind:       storage.RelCalls,
			Confidence: callConfidence,
			FilePath:   filePath,
			Line:       call.Line,
		})
	}

	for _, child := range node.Children {
		if err := extractNode(codebaseID, filePath, file, child, entity.ID, res); err != nil {
			return err
		}
	}
	return nil
}

// kindForForm maps normalized declaration forms onto storage entity kinds.
// The two enumerations coincide today; the mapping keeps the extractor's
// input vocabulary decoupled from the stored one.
func kindForForm(form DeclForm) storage.EntityKind {
	switch form {
	case FormMethod:
		return storage.KindMethod
	case FormClass:
		return storage.KindClass
	case FormInterface:
		return storage.KindInterface
	case FormType:
		return storage.KindType
	case FormVariable:
		return storage.KindVariable
	case FormImport:
		return storage.KindImport
	case FormConstructor:
		return storage.KindConstructor
	case FormArrowFunction:
		return storage.KindArrowFunction
	default:
		return storage.KindFunction
	}
}

func qualify(module, name string) string {
	if module == "" {
		return name
	}
	return module + "." + name
}
