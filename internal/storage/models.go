package storage

import (
	"fmt"
	"time"
)

// Domain models that mirror SQL tables in schema.go.
// These are lightweight data transfer structs, NOT ORM models.

// IndexStatus tracks where a codebase is in its indexing lifecycle.
type IndexStatus string

const (
	StatusUnindexed IndexStatus = "unindexed"
	StatusIndexing  IndexStatus = "indexing"
	StatusIndexed   IndexStatus = "indexed"
	StatusFailed    IndexStatus = "failed"
)

// EntityKind classifies a code entity by its declaration form.
type EntityKind string

const (
	KindFunction      EntityKind = "function"
	KindMethod        EntityKind = "method"
	KindClass         EntityKind = "class"
	KindInterface     EntityKind = "interface"
	KindType          EntityKind = "type"
	KindVariable      EntityKind = "variable"
	KindImport        EntityKind = "import"
	KindConstructor   EntityKind = "constructor"
	KindArrowFunction EntityKind = "arrow_function"
)

// RelationshipKind classifies a directed edge between two entities.
type RelationshipKind string

const (
	RelCalls      RelationshipKind = "calls"
	RelImports    RelationshipKind = "imports"
	RelContains   RelationshipKind = "contains"
	RelReferences RelationshipKind = "references"
)

// Codebase represents an indexed source tree.
// Maps to the codebases table.
type Codebase struct {
	ID          string      // codebase_id: UUID
	RootPath    string      // root_path: absolute path to the source tree
	Languages   []string    // languages: declared languages (JSON array column)
	Status      IndexStatus // status: unindexed, indexing, indexed, failed
	LastIndexed time.Time   // last_indexed_at: zero if never indexed
	CreatedAt   time.Time   // created_at
}

// CodeEntity represents a named, located code construct.
// Maps to the entities table + joined data from entity_params.
type CodeEntity struct {
	ID            string      // entity_id: {file_path}::{name}::{start_line}
	CodebaseID    string      // codebase_id: FK to codebases
	Name          string      // name: entity name
	QualifiedName string      // qualified_name: package/class-qualified name
	Kind          EntityKind  // kind: function, method, class, ...
	FilePath      string      // file_path: relative path from codebase root
	StartLine     int         // start_line: 1-indexed
	EndLine       int         // end_line: 1-indexed, inclusive
	Language      string      // language: go, python, typescript, ...
	Signature     string      // signature: verbatim declaration line
	Doc           string      // doc: documentation string, empty if none
	Body          string      // body: raw source text of the entity span
	Parameters    []Parameter // Joined: pre-parsed parameter list
}

// Parameter represents one pre-parsed parameter of an entity.
// Maps to the entity_params table.
type Parameter struct {
	EntityID  string // entity_id: FK to entities
	Name      string // name: parameter name (may be empty)
	ParamType string // param_type: declared type text
	Position  int    // position: 0-indexed
}

// CodeRelationship represents a directed edge between two entities.
// Maps to the relationships table. No uniqueness constraint beyond
// (from, to, kind); the same edge may be recorded at multiple sites.
type CodeRelationship struct {
	CodebaseID string           // codebase_id: FK to codebases
	FromID     string           // from_entity_id: source entity
	ToID       string           // to_entity_id: target entity (unresolved name id for external calls)
	Kind       RelationshipKind // kind: calls, imports, contains, references
	Confidence float64          // confidence: [0,1], 1.0 for static edges
	FilePath   string           // source_file_path: where the edge was observed
	Line       int              // source_line: line number of the observation
}

// EntityID builds the deterministic entity id used across re-index runs.
// (file path, start line, name) uniquely identifies an entity within a
// codebase at a given index generation, so an unchanged declaration keeps
// its id through a no-op re-index.
func EntityID(filePath, name string, startLine int) string {
	return fmt.Sprintf("%s::%s::%d", filePath, name, startLine)
}
