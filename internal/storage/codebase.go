package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateCodebase registers a source tree for indexing and returns its record.
// The codebase starts in status "unindexed".
func (s *Store) CreateCodebase(rootPath string, languages []string) (*Codebase, error) {
	cb := &Codebase{
		ID:        uuid.New().String(),
		RootPath:  rootPath,
		Languages: languages,
		Status:    StatusUnindexed,
		CreatedAt: time.Now().UTC(),
	}

	langs, err := json.Marshal(cb.Languages)
	if err != nil {
		return nil, fmt.Errorf("failed to encode languages: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO codebases (codebase_id, root_path, languages, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, cb.ID, cb.RootPath, string(langs), string(cb.Status), cb.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to create codebase: %w", err)
	}

	return cb, nil
}

// GetCodebase loads one codebase record by id.
func (s *Store) GetCodebase(codebaseID string) (*Codebase, error) {
	row := s.db.QueryRow(`
		SELECT codebase_id, root_path, languages, status, last_indexed_at, created_at
		FROM codebases WHERE codebase_id = ?
	`, codebaseID)

	cb, err := scanCodebase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, codebaseNotFound(codebaseID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load codebase %s: %w", codebaseID, err)
	}
	return cb, nil
}

// FindCodebaseByRoot returns the codebase registered for a root path, or
// ErrCodebaseNotFound if none exists.
func (s *Store) FindCodebaseByRoot(rootPath string) (*Codebase, error) {
	row := s.db.QueryRow(`
		SELECT codebase_id, root_path, languages, status, last_indexed_at, created_at
		FROM codebases WHERE root_path = ?
	`, rootPath)

	cb, err := scanCodebase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, codebaseNotFound(rootPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load codebase for %s: %w", rootPath, err)
	}
	return cb, nil
}

// RequireIndexed loads a codebase and verifies it is queryable. An unknown
// id surfaces ErrCodebaseNotFound; a known codebase in any status other than
// "indexed" surfaces ErrCodebaseNotIndexed. Query execution never converts
// these into empty results.
func (s *Store) RequireIndexed(codebaseID string) (*Codebase, error) {
	cb, err := s.GetCodebase(codebaseID)
	if err != nil {
		return nil, err
	}
	if cb.Status != StatusIndexed {
		return nil, codebaseNotIndexed(codebaseID, cb.Status)
	}
	return cb, nil
}

// SetStatus transitions a codebase's indexing status. Reaching "indexed"
// also stamps last_indexed_at.
func (s *Store) SetStatus(codebaseID string, status IndexStatus) error {
	var err error
	if status == StatusIndexed {
		_, err = s.db.Exec(
			"UPDATE codebases SET status = ?, last_indexed_at = datetime('now') WHERE codebase_id = ?",
			string(status), codebaseID)
	} else {
		_, err = s.db.Exec(
			"UPDATE codebases SET status = ? WHERE codebase_id = ?",
			string(status), codebaseID)
	}
	if err != nil {
		return fmt.Errorf("failed to set codebase %s status to %s: %w", codebaseID, status, err)
	}
	return nil
}

// ListCodebases returns all registered codebases ordered by creation time.
func (s *Store) ListCodebases() ([]Codebase, error) {
	rows, err := s.db.Query(`
		SELECT codebase_id, root_path, languages, status, last_indexed_at, created_at
		FROM codebases ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list codebases: %w", err)
	}
	defer rows.Close()

	var codebases []Codebase
	for rows.Next() {
		cb, err := scanCodebase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan codebase: %w", err)
		}
		codebases = append(codebases, *cb)
	}
	return codebases, rows.Err()
}

// RemoveCodebase purges all indexed state for a codebase and deletes its
// record.
func (s *Store) RemoveCodebase(codebaseID string) error {
	if err := s.PurgeCodebase(codebaseID); err != nil {
		return err
	}
	if _, err := s.db.Exec("DELETE FROM codebases WHERE codebase_id = ?", codebaseID); err != nil {
		return fmt.Errorf("failed to delete codebase %s: %w", codebaseID, err)
	}
	return nil
}

func scanCodebase(row rowScanner) (*Codebase, error) {
	var cb Codebase
	var langs, status string
	var lastIndexed, createdAt sql.NullString

	err := row.Scan(&cb.ID, &cb.RootPath, &langs, &status, &lastIndexed, &createdAt)
	if err != nil {
		return nil, err
	}

	cb.Status = IndexStatus(status)
	if err := json.Unmarshal([]byte(langs), &cb.Languages); err != nil {
		return nil, fmt.Errorf("malformed languages column: %w", ErrIndexCorruption)
	}
	if lastIndexed.Valid && lastIndexed.String != "" {
		cb.LastIndexed, _ = parseDBTime(lastIndexed.String)
	}
	if createdAt.Valid {
		cb.CreatedAt, _ = parseDBTime(createdAt.String)
	}
	return &cb, nil
}

// parseDBTime accepts both RFC3339 (written by Go) and SQLite's
// datetime('now') format.
func parseDBTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", s)
}
