package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/codescope/codescope/internal/cache"
	"github.com/codescope/codescope/internal/config"
	"github.com/codescope/codescope/internal/dupes"
	"github.com/codescope/codescope/internal/indexer"
	"github.com/codescope/codescope/internal/query"
	"github.com/codescope/codescope/internal/refs"
	"github.com/codescope/codescope/internal/storage"
)

const serverVersion = "1.0.0"

// Server manages the MCP server lifecycle: the tool surface over one index
// store, plus an optional file watcher keeping the index current while the
// server runs.
type Server struct {
	store    *storage.Store
	engine   *query.Engine
	entities *cache.EntityCache
	watcher  *FileWatcher
	mcp      *server.MCPServer
}

// reindexAdapter lets the file watcher drive the indexing pipeline.
type reindexAdapter struct {
	ix *indexer.Indexer
}

func (r reindexAdapter) Reindex(ctx context.Context, rootPath string) error {
	_, err := r.ix.Index(ctx, rootPath)
	return err
}

// NewServer wires all tools onto an MCP server. watchRoot may be empty to
// disable the file watcher (queries then serve whatever was last indexed).
func NewServer(store *storage.Store, cfg *config.Config, watchRoot string) (*Server, error) {
	engine := query.NewEngine(store)

	// Single-entity reads on every tool path go through the generation-keyed
	// cache; a re-index shifts the generation and sidesteps stale entries.
	entities, err := cache.NewEntityCache(store, 0)
	if err != nil {
		engine.Close()
		return nil, err
	}

	mcpServer := server.NewMCPServer(
		"codescope",
		serverVersion,
		server.WithToolCapabilities(true),
	)

	resolver := refs.NewResolver(store)
	resolver.SetEntitySource(entities)

	AddSearchTool(mcpServer, engine)
	AddReferencesTool(mcpServer, resolver)
	AddDuplicatesTool(mcpServer, dupes.NewDetector(store))
	AddComplexityTool(mcpServer, store, entities)
	AddCallGraphTool(mcpServer, store, newGraphCache(store), entities)

	s := &Server{
		store:    store,
		engine:   engine,
		entities: entities,
		mcp:      mcpServer,
	}

	if watchRoot != "" {
		watcher, err := NewFileWatcher(reindexAdapter{ix: indexer.New(store, cfg, nil)}, watchRoot)
		if err != nil {
			engine.Close()
			entities.Close()
			return nil, fmt.Errorf("failed to create file watcher: %w", err)
		}
		s.watcher = watcher
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	if s.watcher != nil {
		s.watcher.Start(ctx)
		defer s.watcher.Stop()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	select {
	case <-sigCh:
		log.Printf("Received shutdown signal, stopping gracefully...")
		cancel()
		return nil
	case err := <-errCh:
		cancel()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases all resources.
func (s *Server) Close() error {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	if s.engine != nil {
		s.engine.Close()
	}
	if s.entities != nil {
		s.entities.Close()
	}
	return nil
}
