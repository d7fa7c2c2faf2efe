package query

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	bquery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/codescope/codescope/internal/storage"
)

const semanticBatchSize = 1000

// semanticIndex is an in-memory bleve index over a codebase's entities. It
// is rebuilt lazily whenever the store's generation counter moves, so a
// semantic search always sees the latest committed index state.
type semanticIndex struct {
	store      *storage.Store
	codebaseID string

	mu         sync.Mutex
	index      bleve.Index
	generation uint64
}

func newSemanticIndex(store *storage.Store, codebaseID string) *semanticIndex {
	return &semanticIndex{store: store, codebaseID: codebaseID}
}

// candidates returns the entity ids matching the expanded query terms,
// rebuilding the bleve index first if the store has moved on.
func (s *semanticIndex) candidates(terms []string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(); err != nil {
		return nil, err
	}
	if s.index == nil || len(terms) == 0 {
		return nil, nil
	}

	// Each term matches both whole tokens and identifier prefixes, so the
	// stem "authent" still finds AuthenticateUser.
	queries := make([]bquery.Query, 0, len(terms)*2)
	for _, term := range terms {
		queries = append(queries, bleve.NewMatchQuery(term))
		queries = append(queries, bleve.NewPrefixQuery(strings.ToLower(term)))
	}
	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(queries...), limit, 0, false)

	res, err := s.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("semantic search failed: %w", err)
	}
	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

func (s *semanticIndex) refreshLocked() error {
	gen, err := s.store.Generation()
	if err != nil {
		return err
	}
	if s.index != nil && gen == s.generation {
		return nil
	}

	index, err := bleve.NewMemOnly(buildEntityMapping())
	if err != nil {
		return fmt.Errorf("failed to create semantic index: %w", err)
	}
	if err := indexEntities(index, s.store, s.codebaseID); err != nil {
		index.Close()
		return err
	}

	if s.index != nil {
		s.index.Close()
	}
	s.index = index
	s.generation = gen
	return nil
}

func (s *semanticIndex) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		s.index.Close()
		s.index = nil
	}
}

// buildEntityMapping indexes the searchable entity fields with the standard
// analyzer. Nothing is stored: hits only need their ids, entities are
// re-read from the store afterwards.
func buildEntityMapping() *mapping.IndexMappingImpl {
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = "standard"
	textField.Store = false
	textField.Index = true

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("name", textField)
	docMapping.AddFieldMappingsAt("qualified_name", textField)
	docMapping.AddFieldMappingsAt("signature", textField)
	docMapping.AddFieldMappingsAt("doc", textField)
	docMapping.AddFieldMappingsAt("file_path", textField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func indexEntities(index bleve.Index, store *storage.Store, codebaseID string) error {
	entities, err := store.Entities(codebaseID, storage.EntityFilter{})
	if err != nil {
		return err
	}

	batch := index.NewBatch()
	for _, e := range entities {
		doc := map[string]interface{}{
			"name":           e.Name,
			"qualified_name": e.QualifiedName,
			"signature":      e.Signature,
			"doc":            e.Doc,
			"file_path":      e.FilePath,
		}
		if err := batch.Index(e.ID, doc); err != nil {
			return fmt.Errorf("failed to add entity %s to batch: %w", e.ID, err)
		}
		if batch.Size() >= semanticBatchSize {
			if err := index.Batch(batch); err != nil {
				return fmt.Errorf("failed to execute batch: %w", err)
			}
			batch = index.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			return fmt.Errorf("failed to execute final batch: %w", err)
		}
	}
	return nil
}
