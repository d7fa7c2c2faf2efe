package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
)

// Read-side lookups. All readers are safe to call concurrently with writers:
// WAL mode gives each query a consistent snapshot.

const entityColumns = `entity_id, codebase_id, name, qualified_name, kind,
	file_path, start_line, end_line, language, signature, doc, body`

// GetEntity loads one entity by id, including its parameter list.
// Returns ErrEntityNotFound for stale or invalid ids.
func (s *Store) GetEntity(codebaseID, entityID string) (*CodeEntity, error) {
	row := s.db.QueryRow(
		"SELECT "+entityColumns+" FROM entities WHERE codebase_id = ? AND entity_id = ?",
		codebaseID, entityID)

	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entityNotFound(entityID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load entity %s: %w", entityID, err)
	}

	if err := s.loadParameters(e); err != nil {
		return nil, err
	}
	return e, nil
}

// EntityFilter narrows an entity listing. Zero values mean "no filter".
type EntityFilter struct {
	Name     string       // exact entity name
	Kinds    []EntityKind // any of these kinds
	FilePath string       // exact relative file path
	IDs      []string     // explicit id set
	Limit    int
}

// Entities lists entities for a codebase with optional filters, ordered by
// file path then start line for reproducible output.
func (s *Store) Entities(codebaseID string, filter EntityFilter) ([]CodeEntity, error) {
	query := squirrel.Select(
		"entity_id", "codebase_id", "name", "qualified_name", "kind",
		"file_path", "start_line", "end_line", "language", "signature", "doc", "body",
	).
		From("entities").
		Where(squirrel.Eq{"codebase_id": codebaseID}).
		OrderBy("file_path", "start_line").
		PlaceholderFormat(squirrel.Question)

	if filter.Name != "" {
		query = query.Where(squirrel.Eq{"name": filter.Name})
	}
	if len(filter.Kinds) > 0 {
		kinds := make([]string, len(filter.Kinds))
		for i, k := range filter.Kinds {
			kinds[i] = string(k)
		}
		query = query.Where(squirrel.Eq{"kind": kinds})
	}
	if filter.FilePath != "" {
		query = query.Where(squirrel.Eq{"file_path": filter.FilePath})
	}
	if len(filter.IDs) > 0 {
		query = query.Where(squirrel.Eq{"entity_id": filter.IDs})
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	rows, err := query.RunWith(s.db).Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// SubstringScan finds entities whose name or qualified name contains the
// given fragment. Backs the exact-substring ranking bonus and prefix lookups.
func (s *Store) SubstringScan(codebaseID, fragment string, limit int) ([]CodeEntity, error) {
	if limit <= 0 {
		limit = 100
	}
	pattern := "%" + fragment + "%"

	rows, err := s.db.Query(`
		SELECT `+entityColumns+`
		FROM entities
		WHERE codebase_id = ? AND (name LIKE ? OR qualified_name LIKE ?)
		ORDER BY file_path, start_line
		LIMIT ?
	`, codebaseID, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to scan entities for %q: %w", fragment, err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// RelationshipFilter narrows a relationship listing.
type RelationshipFilter struct {
	FromID string
	ToID   string
	Kind   RelationshipKind
}

// Relationships lists directed edges for a codebase with optional filters.
func (s *Store) Relationships(codebaseID string, filter RelationshipFilter) ([]CodeRelationship, error) {
	query := squirrel.Select(
		"codebase_id", "from_entity_id", "to_entity_id", "kind", "confidence",
		"source_file_path", "source_line",
	).
		From("relationships").
		Where(squirrel.Eq{"codebase_id": codebaseID}).
		OrderBy("source_file_path", "source_line").
		PlaceholderFormat(squirrel.Question)

	if filter.FromID != "" {
		query = query.Where(squirrel.Eq{"from_entity_id": filter.FromID})
	}
	if filter.ToID != "" {
		query = query.Where(squirrel.Eq{"to_entity_id": filter.ToID})
	}
	if filter.Kind != "" {
		query = query.Where(squirrel.Eq{"kind": string(filter.Kind)})
	}

	rows, err := query.RunWith(s.db).Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}
	defer rows.Close()

	var rels []CodeRelationship
	for rows.Next() {
		var r CodeRelationship
		var kind string
		err := rows.Scan(&r.CodebaseID, &r.FromID, &r.ToID, &kind, &r.Confidence,
			&r.FilePath, &r.Line)
		if err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		r.Kind = RelationshipKind(kind)
		rels = append(rels, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relationships: %w", err)
	}

	return rels, nil
}

// FileHash returns the stored content hash for a file, or "" if the file has
// never been indexed.
func (s *Store) FileHash(codebaseID, filePath string) (string, error) {
	var hash string
	err := s.db.QueryRow(
		"SELECT content_hash FROM file_hashes WHERE codebase_id = ? AND file_path = ?",
		codebaseID, filePath).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load file hash for %s: %w", filePath, err)
	}
	return hash, nil
}

// IndexedFiles returns every file path with stored index state, used to
// detect deletions between indexing runs.
func (s *Store) IndexedFiles(codebaseID string) ([]string, error) {
	rows, err := s.db.Query(
		"SELECT file_path FROM file_hashes WHERE codebase_id = ? ORDER BY file_path",
		codebaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexed files: %w", err)
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("failed to scan file path: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *Store) loadParameters(e *CodeEntity) error {
	rows, err := s.db.Query(`
		SELECT name, param_type, position
		FROM entity_params
		WHERE codebase_id = ? AND entity_id = ?
		ORDER BY position
	`, e.CodebaseID, e.ID)
	if err != nil {
		return fmt.Errorf("failed to load parameters for %s: %w", e.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		p := Parameter{EntityID: e.ID}
		if err := rows.Scan(&p.Name, &p.ParamType, &p.Position); err != nil {
			return fmt.Errorf("failed to scan parameter: %w", err)
		}
		e.Parameters = append(e.Parameters, p)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*CodeEntity, error) {
	var e CodeEntity
	var kind string
	err := row.Scan(
		&e.ID, &e.CodebaseID, &e.Name, &e.QualifiedName, &kind,
		&e.FilePath, &e.StartLine, &e.EndLine, &e.Language, &e.Signature, &e.Doc, &e.Body,
	)
	if err != nil {
		return nil, err
	}
	e.Kind = EntityKind(kind)
	return &e, nil
}

func scanEntities(rows *sql.Rows) ([]CodeEntity, error) {
	var entities []CodeEntity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		entities = append(entities, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entities: %w", err)
	}
	return entities, nil
}
