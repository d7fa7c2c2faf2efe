package storage

import (
	"database/sql"
	"fmt"
)

// Indexing a single file is the unit of mutation. ReplaceFileEntities and
// DeleteFile each run in one transaction, so a concurrent reader sees either
// the file's previous entities or its new ones, never a mixture.

// ReplaceFileEntities atomically replaces all entities, relationships and
// token postings recorded for one file. contentHash is stored alongside for
// change detection on the next indexing run.
//
// Entities that disappeared from the re-parse are deleted, unchanged ones
// are rewritten under the same deterministic id, and new ones inserted -
// all inside the same transaction as the posting updates.
func (s *Store) ReplaceFileEntities(codebaseID, filePath, contentHash string, entities []CodeEntity, rels []CodeRelationship) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin file upsert transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.deleteFileRows(tx, codebaseID, filePath); err != nil {
		return err
	}

	if err := insertEntities(tx, entities); err != nil {
		return err
	}
	if s.fts {
		if err := updateFTSIndex(tx, entities); err != nil {
			return err
		}
	}
	if err := insertRelationships(tx, rels); err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO file_hashes (codebase_id, file_path, content_hash, indexed_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT (codebase_id, file_path)
		DO UPDATE SET content_hash = excluded.content_hash, indexed_at = excluded.indexed_at
	`, codebaseID, filePath, contentHash)
	if err != nil {
		return fmt.Errorf("failed to upsert file hash for %s: %w", filePath, err)
	}

	if err := bumpGeneration(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit file upsert for %s: %w", filePath, err)
	}
	return nil
}

// DeleteFile removes all index state for a deleted source file.
func (s *Store) DeleteFile(codebaseID, filePath string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin file delete transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.deleteFileRows(tx, codebaseID, filePath); err != nil {
		return err
	}

	_, err = tx.Exec("DELETE FROM file_hashes WHERE codebase_id = ? AND file_path = ?",
		codebaseID, filePath)
	if err != nil {
		return fmt.Errorf("failed to delete file hash for %s: %w", filePath, err)
	}

	if err := bumpGeneration(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit file delete for %s: %w", filePath, err)
	}
	return nil
}

// PurgeCodebase deletes every entity, relationship and posting owned by one
// codebase. Used for re-index-from-scratch and explicit removal.
func (s *Store) PurgeCodebase(codebaseID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin purge transaction: %w", err)
	}
	defer tx.Rollback()

	// entities, entity_params, relationships and file_hashes cascade from
	// the codebase row; FTS5 tables have no foreign keys.
	statements := []string{
		"DELETE FROM entities WHERE codebase_id = ?",
		"DELETE FROM relationships WHERE codebase_id = ?",
		"DELETE FROM file_hashes WHERE codebase_id = ?",
	}
	if s.fts {
		statements = append(statements, "DELETE FROM entities_fts WHERE codebase_id = ?")
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt, codebaseID); err != nil {
			return fmt.Errorf("failed to purge codebase %s: %w", codebaseID, err)
		}
	}

	_, err = tx.Exec("UPDATE codebases SET status = 'unindexed', last_indexed_at = NULL WHERE codebase_id = ?",
		codebaseID)
	if err != nil {
		return fmt.Errorf("failed to reset codebase status: %w", err)
	}

	if err := bumpGeneration(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit purge for %s: %w", codebaseID, err)
	}
	return nil
}

// deleteFileRows clears the file's entities, parameters, relationships and
// postings inside an open transaction.
func (s *Store) deleteFileRows(tx *sql.Tx, codebaseID, filePath string) error {
	_, err := tx.Exec(`
		DELETE FROM entity_params
		WHERE codebase_id = ? AND entity_id IN (
			SELECT entity_id FROM entities WHERE codebase_id = ? AND file_path = ?
		)
	`, codebaseID, codebaseID, filePath)
	if err != nil {
		return fmt.Errorf("failed to delete parameters for %s: %w", filePath, err)
	}

	_, err = tx.Exec("DELETE FROM entities WHERE codebase_id = ? AND file_path = ?",
		codebaseID, filePath)
	if err != nil {
		return fmt.Errorf("failed to delete entities for %s: %w", filePath, err)
	}

	_, err = tx.Exec("DELETE FROM relationships WHERE codebase_id = ? AND source_file_path = ?",
		codebaseID, filePath)
	if err != nil {
		return fmt.Errorf("failed to delete relationships for %s: %w", filePath, err)
	}

	if !s.fts {
		return nil
	}
	return deleteFTSByFile(tx, codebaseID, filePath)
}

func insertEntities(tx *sql.Tx, entities []CodeEntity) error {
	if len(entities) == 0 {
		return nil
	}

	entityStmt, err := tx.Prepare(`
		INSERT INTO entities (
			entity_id, codebase_id, name, qualified_name, kind,
			file_path, start_line, end_line, language, signature, doc, body,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare entity insert statement: %w", err)
	}
	defer entityStmt.Close()

	paramStmt, err := tx.Prepare(`
		INSERT INTO entity_params (codebase_id, entity_id, name, param_type, position)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare parameter insert statement: %w", err)
	}
	defer paramStmt.Close()

	for _, e := range entities {
		_, err := entityStmt.Exec(
			e.ID, e.CodebaseID, e.Name, e.QualifiedName, string(e.Kind),
			e.FilePath, e.StartLine, e.EndLine, e.Language, e.Signature, e.Doc, e.Body,
		)
		if err != nil {
			return fmt.Errorf("failed to insert entity %s: %w", e.ID, err)
		}

		for _, p := range e.Parameters {
			if _, err := paramStmt.Exec(e.CodebaseID, e.ID, p.Name, p.ParamType, p.Position); err != nil {
				return fmt.Errorf("failed to insert parameter for %s: %w", e.ID, err)
			}
		}
	}

	return nil
}

func insertRelationships(tx *sql.Tx, rels []CodeRelationship) error {
	if len(rels) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`
		INSERT INTO relationships (
			codebase_id, from_entity_id, to_entity_id, kind, confidence,
			source_file_path, source_line
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare relationship insert statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range rels {
		_, err := stmt.Exec(
			r.CodebaseID, r.FromID, r.ToID, string(r.Kind), r.Confidence,
			r.FilePath, r.Line,
		)
		if err != nil {
			return fmt.Errorf("failed to insert relationship %s -> %s: %w", r.FromID, r.ToID, err)
		}
	}

	return nil
}
