package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codescope/codescope/internal/mcp"
)

var mcpNoWatch bool

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for code search and analysis",
	Long: `Start the Model Context Protocol (MCP) server that lets LLM-powered
coding assistants query the index.

The MCP server:
- Serves search, references, duplicates, complexity and call-graph tools
- Communicates via stdio (standard MCP transport)
- Watches the codebase and reindexes incrementally on changes

Example:
  codescope mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().BoolVar(&mcpNoWatch, "no-watch", false, "Disable the file watcher")
}

func runMCP(cmd *cobra.Command, args []string) error {
	proj, err := openProject()
	if err != nil {
		return err
	}
	defer proj.Close()

	watchRoot := proj.rootDir
	if mcpNoWatch {
		watchRoot = ""
	}

	fmt.Fprintf(os.Stderr, "CodeScope MCP Server\n")
	fmt.Fprintf(os.Stderr, "Codebase Root: %s\n\n", proj.rootDir)

	srv, err := mcp.NewServer(proj.store, proj.cfg, watchRoot)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer srv.Close()

	return srv.Serve(context.Background())
}
