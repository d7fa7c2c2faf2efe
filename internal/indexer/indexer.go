package indexer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/codescope/codescope/internal/config"
	"github.com/codescope/codescope/internal/extract"
	"github.com/codescope/codescope/internal/parser"
	"github.com/codescope/codescope/internal/storage"
)

// Progress receives indexing progress callbacks. Implementations must be
// safe for concurrent Advance calls.
type Progress interface {
	Start(totalFiles int)
	Advance(filePath string)
	Done()
}

type nopProgress struct{}

func (nopProgress) Start(int)      {}
func (nopProgress) Advance(string) {}
func (nopProgress) Done()          {}

// Summary reports what one indexing run did.
type Summary struct {
	CodebaseID     string        `json:"codebase_id"`
	FilesScanned   int           `json:"files_scanned"`
	FilesIndexed   int           `json:"files_indexed"`
	FilesUnchanged int           `json:"files_unchanged"`
	FilesFailed    int           `json:"files_failed"`
	FilesDeleted   int           `json:"files_deleted"`
	Entities       int           `json:"entities"`
	Duration       time.Duration `json:"duration"`
}

// Indexer drives the parse, extract, and store pipeline over a source tree.
type Indexer struct {
	store    *storage.Store
	cfg      *config.Config
	progress Progress
}

// New creates an indexer. progress may be nil.
func New(store *storage.Store, cfg *config.Config, progress Progress) *Indexer {
	if progress == nil {
		progress = nopProgress{}
	}
	return &Indexer{store: store, cfg: cfg, progress: progress}
}

// Index walks rootPath, indexes every changed code file, and removes files
// that disappeared since the last run. Each file is committed atomically:
// a crash mid-run leaves the previous state for unprocessed files, never a
// half-indexed file. Parse failures are logged and skipped, keeping that
// file's last successfully indexed entities.
func (ix *Indexer) Index(ctx context.Context, rootPath string) (*Summary, error) {
	started := time.Now()

	rootPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, err
	}

	cb, err := ix.store.FindCodebaseByRoot(rootPath)
	if errors.Is(err, storage.ErrCodebaseNotFound) {
		cb, err = ix.store.CreateCodebase(rootPath, parser.SupportedExtensions())
	}
	if err != nil {
		return nil, err
	}
	if err := ix.store.SetStatus(cb.ID, storage.StatusIndexing); err != nil {
		return nil, err
	}

	summary, err := ix.run(ctx, cb, rootPath)
	if err != nil {
		if statusErr := ix.store.SetStatus(cb.ID, storage.StatusFailed); statusErr != nil {
			log.Printf("Warning: failed to mark codebase %s failed: %v", cb.ID, statusErr)
		}
		return nil, err
	}
	if err := ix.store.SetStatus(cb.ID, storage.StatusIndexed); err != nil {
		return nil, err
	}

	summary.Duration = time.Since(started)
	return summary, nil
}

func (ix *Indexer) run(ctx context.Context, cb *storage.Codebase, rootPath string) (*Summary, error) {
	discovery, err := NewFileDiscovery(rootPath, ix.cfg.Paths.Code, ix.cfg.Paths.Ignore)
	if err != nil {
		return nil, fmt.Errorf("invalid path patterns: %w", err)
	}
	files, err := discovery.DiscoverFiles()
	if err != nil {
		return nil, fmt.Errorf("file discovery failed: %w", err)
	}

	summary := &Summary{CodebaseID: cb.ID, FilesScanned: len(files)}
	ix.progress.Start(len(files))
	defer ix.progress.Done()

	workers := ix.cfg.Indexing.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	maxBytes := int64(ix.cfg.Indexing.MaxFileSizeKB) * 1024

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, relPath := range files {
		g.Go(func() error {
			outcome, entities, err := ix.indexFile(gctx, cb.ID, rootPath, relPath, maxBytes)
			if err != nil {
				return err
			}
			ix.progress.Advance(relPath)

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeIndexed:
				summary.FilesIndexed++
				summary.Entities += entities
			case outcomeUnchanged:
				summary.FilesUnchanged++
			case outcomeFailed:
				summary.FilesFailed++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	deleted, err := ix.removeMissing(cb.ID, files)
	if err != nil {
		return nil, err
	}
	summary.FilesDeleted = deleted
	return summary, nil
}

type outcome int

const (
	outcomeIndexed outcome = iota
	outcomeUnchanged
	outcomeFailed
	outcomeSkipped
)

// indexFile processes one file end to end. Returns outcomeFailed (with a
// nil error) for parse failures: those are per-file conditions that must
// not abort the run.
func (ix *Indexer) indexFile(ctx context.Context, codebaseID, rootPath, relPath string, maxBytes int64) (outcome, int, error) {
	absPath := filepath.Join(rootPath, filepath.FromSlash(relPath))

	info, err := os.Stat(absPath)
	if err != nil {
		log.Printf("Warning: cannot stat %s: %v", relPath, err)
		return outcomeFailed, 0, nil
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return outcomeSkipped, 0, nil
	}

	source, err := os.ReadFile(absPath)
	if err != nil {
		log.Printf("Warning: cannot read %s: %v", relPath, err)
		return outcomeFailed, 0, nil
	}

	contentHash := fmt.Sprintf("%016x", xxhash.Sum64(source))
	prevHash, err := ix.store.FileHash(codebaseID, relPath)
	if err != nil {
		return outcomeFailed, 0, err
	}
	if prevHash == contentHash {
		return outcomeUnchanged, 0, nil
	}

	p, ok := parser.ForFile(relPath)
	if !ok {
		return outcomeSkipped, 0, nil
	}
	parsed, err := p.ParseSource(ctx, relPath, source)
	if err != nil {
		if ctx.Err() != nil {
			return outcomeFailed, 0, ctx.Err()
		}
		log.Printf("Warning: cannot parse %s: %v", relPath, err)
		return outcomeFailed, 0, nil
	}

	result, err := extract.Extract(codebaseID, relPath, parsed)
	if err != nil {
		var parseErr *extract.ParseError
		if errors.As(err, &parseErr) {
			log.Printf("Warning: parse failure in %s, keeping previous index state: %v", relPath, err)
			return outcomeFailed, 0, nil
		}
		return outcomeFailed, 0, err
	}

	if err := ix.store.ReplaceFileEntities(codebaseID, relPath, contentHash, result.Entities, result.Relationships); err != nil {
		return outcomeFailed, 0, err
	}
	return outcomeIndexed, len(result.Entities), nil
}

// removeMissing deletes index rows for files that were indexed before but
// no longer exist on disk.
func (ix *Indexer) removeMissing(codebaseID string, discovered []string) (int, error) {
	indexed, err := ix.store.IndexedFiles(codebaseID)
	if err != nil {
		return 0, err
	}

	present := make(map[string]struct{}, len(discovered))
	for _, f := range discovered {
		present[f] = struct{}{}
	}

	deleted := 0
	for _, f := range indexed {
		if _, ok := present[f]; ok {
			continue
		}
		if err := ix.store.DeleteFile(codebaseID, f); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
