package storage

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the Index Store: it exclusively owns CodeEntity, CodeRelationship
// and token-posting storage. All other components hold only transient entity
// ids looked up on demand.
//
// The backing database runs in WAL mode, so readers see a point-in-time
// snapshot while a concurrent per-file upsert commits. A long-running
// duplicate scan is never blocked by an incremental re-index of an unrelated
// file, and never observes a half-updated file's entities.
type Store struct {
	db  *sql.DB
	fts bool
}

// Open opens (or creates) the index database at path and ensures the schema
// exists. Use ":memory:" for an ephemeral store.
//
// Full-text token postings need SQLite's FTS5 module, which mattn/go-sqlite3
// only compiles in under -tags sqlite_fts5 (or fts5). Untagged builds still
// open: token matching degrades to substring scans over the entities table.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	// _journal_mode=WAL gives snapshot isolation for readers.
	// _busy_timeout lets writers queue behind each other instead of
	// failing immediately with SQLITE_BUSY.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection to :memory: would open its own empty
		// database, so the pool must stay at a single connection.
		db.SetMaxOpenConns(1)
	}

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	fts := true
	if err := CreateFTSIndex(db); err != nil {
		if !isMissingFTS5(err) {
			db.Close()
			return nil, err
		}
		fts = false
		log.Printf("Warning: SQLite compiled without the FTS5 module, token matching uses substring scans. Rebuild with -tags sqlite_fts5 for token postings.")
	}

	return &Store{db: db, fts: fts}, nil
}

// DB exposes the underlying database handle for read-only collaborators
// (graph loader, query engine).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Generation returns the current index generation. The generation is bumped
// on every committed file upsert or delete; read-side caches key their
// entries by it so nothing survives a re-index boundary without
// invalidation.
func (s *Store) Generation() (uint64, error) {
	var value string
	err := s.db.QueryRow(
		"SELECT value FROM index_metadata WHERE key = 'generation'").Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("failed to read index generation: %w", err)
	}

	gen, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed index generation %q: %w", value, ErrIndexCorruption)
	}
	return gen, nil
}

// bumpGeneration increments the generation counter inside an existing write
// transaction so the bump commits atomically with the entity changes.
func bumpGeneration(tx *sql.Tx) error {
	_, err := tx.Exec(`
		UPDATE index_metadata
		SET value = CAST(CAST(value AS INTEGER) + 1 AS TEXT),
		    updated_at = datetime('now')
		WHERE key = 'generation'
	`)
	if err != nil {
		return fmt.Errorf("failed to bump index generation: %w", err)
	}
	return nil
}
