package storage

import (
	"errors"
	"fmt"
)

// Query-time error taxonomy. Callers match with errors.Is; the wrapping
// helpers attach the offending input so the transport layer can surface
// which id was invalid without parsing message text.
var (
	// ErrCodebaseNotFound is returned when a codebase id is unknown.
	ErrCodebaseNotFound = errors.New("codebase not found")

	// ErrCodebaseNotIndexed is returned when querying a codebase whose
	// status is not "indexed" (including failed indexing runs).
	ErrCodebaseNotIndexed = errors.New("codebase not indexed")

	// ErrEntityNotFound is returned for lookups on a stale or invalid
	// entity id.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrIndexCorruption signals a damaged index shard. Fatal for the
	// affected file only: the indexer responds with a forced re-index of
	// that file, never the whole codebase.
	ErrIndexCorruption = errors.New("index corruption")
)

func codebaseNotFound(id string) error {
	return fmt.Errorf("codebase %q: %w", id, ErrCodebaseNotFound)
}

func codebaseNotIndexed(id string, status IndexStatus) error {
	return fmt.Errorf("codebase %q has status %q: %w", id, status, ErrCodebaseNotIndexed)
}

func entityNotFound(id string) error {
	return fmt.Errorf("entity %q: %w", id, ErrEntityNotFound)
}
