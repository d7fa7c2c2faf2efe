package storage

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables and indexes. Uses a transaction for
// atomicity - all schema creation succeeds or fails together. The FTS5
// virtual table is created separately by Open since SQLite requires virtual
// table DDL outside a transaction and the module may be absent entirely.
//
// Schema:
//   - codebases: one row per indexed source tree
//   - entities: normalized code entities (arena keyed by stable id)
//   - entity_params: pre-parsed parameter lists
//   - relationships: directed entity edges (calls, imports, contains, references)
//   - file_hashes: content hashes for change detection
//   - index_metadata: schema version and index generation
//   - entities_fts: FTS5 token postings over entity text
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"codebases", createCodebasesTable},
		{"entities", createEntitiesTable},
		{"entity_params", createEntityParamsTable},
		{"relationships", createRelationshipsTable},
		{"file_hashes", createFileHashesTable},
		{"index_metadata", createIndexMetadataTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range schemaIndexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	// Bootstrap metadata. INSERT OR IGNORE keeps re-opens idempotent.
	bootstrapSQL := `
		INSERT OR IGNORE INTO index_metadata (key, value, updated_at) VALUES
			('schema_version', '1', datetime('now')),
			('generation', '0', datetime('now'))
	`
	if _, err := tx.Exec(bootstrapSQL); err != nil {
		return fmt.Errorf("failed to bootstrap index_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}

	return nil
}

const createCodebasesTable = `
CREATE TABLE IF NOT EXISTS codebases (
	codebase_id     TEXT PRIMARY KEY,
	root_path       TEXT NOT NULL,
	languages       TEXT NOT NULL DEFAULT '[]',
	status          TEXT NOT NULL DEFAULT 'unindexed',
	last_indexed_at TEXT,
	created_at      TEXT NOT NULL DEFAULT (datetime('now'))
)`

const createEntitiesTable = `
CREATE TABLE IF NOT EXISTS entities (
	entity_id      TEXT NOT NULL,
	codebase_id    TEXT NOT NULL REFERENCES codebases(codebase_id) ON DELETE CASCADE,
	name           TEXT NOT NULL,
	qualified_name TEXT NOT NULL,
	kind           TEXT NOT NULL,
	file_path      TEXT NOT NULL,
	start_line     INTEGER NOT NULL,
	end_line       INTEGER NOT NULL,
	language       TEXT NOT NULL,
	signature      TEXT NOT NULL DEFAULT '',
	doc            TEXT NOT NULL DEFAULT '',
	body           TEXT NOT NULL DEFAULT '',
	updated_at     TEXT NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (codebase_id, entity_id)
)`

const createEntityParamsTable = `
CREATE TABLE IF NOT EXISTS entity_params (
	codebase_id TEXT NOT NULL,
	entity_id   TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	param_type  TEXT NOT NULL DEFAULT '',
	position    INTEGER NOT NULL,
	FOREIGN KEY (codebase_id, entity_id) REFERENCES entities(codebase_id, entity_id) ON DELETE CASCADE
)`

const createRelationshipsTable = `
CREATE TABLE IF NOT EXISTS relationships (
	relationship_id  INTEGER PRIMARY KEY AUTOINCREMENT,
	codebase_id      TEXT NOT NULL REFERENCES codebases(codebase_id) ON DELETE CASCADE,
	from_entity_id   TEXT NOT NULL,
	to_entity_id     TEXT NOT NULL,
	kind             TEXT NOT NULL,
	confidence       REAL NOT NULL DEFAULT 1.0,
	source_file_path TEXT NOT NULL,
	source_line      INTEGER NOT NULL DEFAULT 0
)`

const createFileHashesTable = `
CREATE TABLE IF NOT EXISTS file_hashes (
	codebase_id  TEXT NOT NULL REFERENCES codebases(codebase_id) ON DELETE CASCADE,
	file_path    TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	indexed_at   TEXT NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (codebase_id, file_path)
)`

const createIndexMetadataTable = `
CREATE TABLE IF NOT EXISTS index_metadata (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (datetime('now'))
)`

// schemaIndexes covers the hot read paths: per-file replacement (delete by
// file), name lookup, kind filtering, and edge traversal in both directions.
var schemaIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_entities_file ON entities(codebase_id, file_path)`,
	`CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(codebase_id, name)`,
	`CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(codebase_id, kind)`,
	`CREATE INDEX IF NOT EXISTS idx_relationships_from ON relationships(codebase_id, from_entity_id, kind)`,
	`CREATE INDEX IF NOT EXISTS idx_relationships_to ON relationships(codebase_id, to_entity_id, kind)`,
	`CREATE INDEX IF NOT EXISTS idx_relationships_file ON relationships(codebase_id, source_file_path)`,
}
