package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codescope/codescope/internal/config"
	"github.com/codescope/codescope/internal/storage"
)

var (
	rootDirFlag string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "codescope",
	Short: "CodeScope - code indexing and analysis for your codebase",
	Long: `CodeScope indexes source trees into a local SQLite database and answers
questions about them: natural-language search, reference lookup,
duplicate detection, and complexity metrics.

Run 'codescope index' first, then query with the other subcommands or
expose the index to coding assistants via 'codescope mcp'.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDirFlag, "root", ".", "codebase root directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// project bundles everything a subcommand needs to talk to an indexed codebase.
type project struct {
	rootDir string
	cfg     *config.Config
	store   *storage.Store
}

func (p *project) Close() {
	if p.store != nil {
		p.store.Close()
	}
}

// openProject resolves the --root flag, loads .codescope/config.yaml and
// opens the index database.
func openProject() (*project, error) {
	rootDir, err := filepath.Abs(rootDirFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}

	cfg, err := config.NewLoader(rootDir).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	dbPath := cfg.DatabasePath(rootDir)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	store, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Using index database: %s\n", dbPath)
	}
	return &project{rootDir: rootDir, cfg: cfg, store: store}, nil
}

// requireCodebase looks up the codebase registered for the project root.
func (p *project) requireCodebase() (*storage.Codebase, error) {
	cb, err := p.store.FindCodebaseByRoot(p.rootDir)
	if err != nil {
		return nil, fmt.Errorf("no index for %s, run 'codescope index' first: %w", p.rootDir, err)
	}
	return cb, nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
