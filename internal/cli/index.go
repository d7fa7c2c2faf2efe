package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codescope/codescope/internal/indexer"
	"github.com/codescope/codescope/internal/mcp"
)

var (
	quietFlag bool
	watchFlag bool
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the codebase for search and analysis",
	Long: `Index walks the codebase, parses every supported source file and stores
the extracted entities and call relationships in .codescope/index.db.

Re-running index is incremental: unchanged files are skipped by content
hash, deleted files are dropped, and files that fail to parse keep
their previously indexed state.

Examples:
  # Index the current directory
  codescope index

  # Index with the progress bar disabled
  codescope index --quiet

  # Watch for changes and reindex incrementally
  codescope index --watch

  # Index a specific directory
  codescope index /path/to/project`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable the progress bar and non-error output")
	indexCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch for file changes and reindex incrementally")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted! Cancelling indexing...")
		cancel()
	}()

	if len(args) == 1 {
		rootDirFlag = args[0]
	}

	proj, err := openProject()
	if err != nil {
		return err
	}
	defer proj.Close()

	ix := indexer.New(proj.store, proj.cfg, NewCLIProgressReporter(quietFlag))

	summary, err := ix.Index(ctx, proj.rootDir)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	if !quietFlag {
		fmt.Printf("Indexed %d files (%d unchanged, %d failed, %d deleted) in %s\n",
			summary.FilesIndexed, summary.FilesUnchanged, summary.FilesFailed,
			summary.FilesDeleted, summary.Duration.Round(1e6))
		fmt.Printf("Codebase ID: %s\n", summary.CodebaseID)
	}

	if !watchFlag {
		return nil
	}

	watcher, err := mcp.NewFileWatcher(reindexOnChange{ix}, proj.rootDir)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	watcher.Start(ctx)
	defer watcher.Stop()

	if !quietFlag {
		fmt.Println("Watching for changes. Press Ctrl+C to stop.")
	}
	<-ctx.Done()
	return nil
}

// reindexOnChange adapts the indexer to the watcher callback.
type reindexOnChange struct {
	ix *indexer.Indexer
}

func (r reindexOnChange) Reindex(ctx context.Context, rootPath string) error {
	_, err := r.ix.Index(ctx, rootPath)
	return err
}
