package storage

import (
	"database/sql"
	"fmt"
	"strings"
)

// The FTS5 virtual table is the token posting list: each entity's name,
// qualified name, signature, doc and body are tokenized into postings that
// map token -> entity. Postings are rebuilt incrementally per file inside
// the same transaction as the entity rows, never wholesale.

// CreateFTSIndex creates the FTS5 virtual table for token postings.
// tokenchars keeps '_' inside identifiers so snake_case names tokenize as
// one posting each.
func CreateFTSIndex(db *sql.DB) error {
	createSQL := `
		CREATE VIRTUAL TABLE IF NOT EXISTS entities_fts USING fts5(
			entity_id UNINDEXED,
			codebase_id UNINDEXED,
			file_path UNINDEXED,
			content,
			tokenize = "unicode61 remove_diacritics 0 tokenchars '_'"
		)
	`

	if _, err := db.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create FTS5 index: %w", err)
	}

	return nil
}

// isMissingFTS5 reports whether an error came from a SQLite build that lacks
// the FTS5 module (mattn/go-sqlite3 without -tags sqlite_fts5).
func isMissingFTS5(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such module: fts5")
}

// updateFTSIndex syncs FTS5 postings for a set of entities.
// Must be called in the same transaction as the entity writes so postings
// and entities stay consistent.
//
// FTS5 virtual tables don't support INSERT OR REPLACE properly, so the
// per-file delete in replaceFileEntities clears old postings first.
func updateFTSIndex(tx *sql.Tx, entities []CodeEntity) error {
	if len(entities) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`
		INSERT INTO entities_fts (entity_id, codebase_id, file_path, content)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare FTS5 insert statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entities {
		content := ftsContent(e)
		if _, err := stmt.Exec(e.ID, e.CodebaseID, e.FilePath, content); err != nil {
			return fmt.Errorf("failed to insert FTS5 entry for entity %s: %w", e.ID, err)
		}
	}

	return nil
}

// deleteFTSByFile removes all postings for one file inside a transaction.
func deleteFTSByFile(tx *sql.Tx, codebaseID, filePath string) error {
	_, err := tx.Exec(
		"DELETE FROM entities_fts WHERE codebase_id = ? AND file_path = ?",
		codebaseID, filePath)
	if err != nil {
		return fmt.Errorf("failed to delete FTS5 entries for %s: %w", filePath, err)
	}
	return nil
}

// ftsContent assembles the indexed text for one entity.
func ftsContent(e CodeEntity) string {
	parts := []string{e.Name, e.QualifiedName, e.Signature}
	if e.Doc != "" {
		parts = append(parts, e.Doc)
	}
	if e.Body != "" {
		parts = append(parts, e.Body)
	}
	return strings.Join(parts, "\n")
}

// TokenMatch is one posting hit: an entity whose indexed text contains a
// queried token.
type TokenMatch struct {
	EntityID string
	FilePath string
}

// MatchTokens looks up postings for the given tokens (OR semantics) scoped
// to one codebase. Token order and duplicates are irrelevant; candidates
// are returned at most once.
func (s *Store) MatchTokens(codebaseID string, tokens []string, limit int) ([]TokenMatch, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 200
	}
	if !s.fts {
		return s.matchTokensSubstring(codebaseID, tokens, limit)
	}

	query := buildFTSQuery(tokens)
	rows, err := s.db.Query(`
		SELECT DISTINCT entity_id, file_path
		FROM entities_fts
		WHERE codebase_id = ? AND entities_fts MATCH ?
		LIMIT ?
	`, codebaseID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query FTS5 postings: %w", err)
	}
	defer rows.Close()

	return scanTokenMatches(rows)
}

// matchTokensSubstring serves MatchTokens on builds without the FTS5 module.
// Substring containment is broader than token postings, but keeps keyword
// search functional instead of failing every operation.
func (s *Store) matchTokensSubstring(codebaseID string, tokens []string, limit int) ([]TokenMatch, error) {
	conds := make([]string, 0, len(tokens))
	args := []interface{}{codebaseID}
	for _, tok := range tokens {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" {
			continue
		}
		conds = append(conds,
			"instr(lower(name || ' ' || qualified_name || ' ' || signature || ' ' || doc || ' ' || body), ?) > 0")
		args = append(args, tok)
	}
	if len(conds) == 0 {
		return nil, nil
	}
	args = append(args, limit)

	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT DISTINCT entity_id, file_path
		FROM entities
		WHERE codebase_id = ? AND (%s)
		LIMIT ?
	`, strings.Join(conds, " OR ")), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run substring token scan: %w", err)
	}
	defer rows.Close()

	return scanTokenMatches(rows)
}

func scanTokenMatches(rows *sql.Rows) ([]TokenMatch, error) {
	var matches []TokenMatch
	for rows.Next() {
		var m TokenMatch
		if err := rows.Scan(&m.EntityID, &m.FilePath); err != nil {
			return nil, fmt.Errorf("failed to scan token match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating token matches: %w", err)
	}
	return matches, nil
}

// buildFTSQuery constructs an OR query from raw tokens, escaping each token
// as an FTS5 string literal so identifier punctuation cannot be parsed as
// query syntax.
func buildFTSQuery(tokens []string) string {
	quoted := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		quoted = append(quoted, fmt.Sprintf(`"%s"`, strings.ReplaceAll(tok, `"`, `""`)))
	}
	return strings.Join(quoted, " OR ")
}
