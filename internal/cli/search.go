package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codescope/codescope/internal/query"
)

var (
	searchMaxResults int
	searchFileFilter string
	searchJSON       bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the indexed codebase",
	Long: `Search runs a natural-language or structural query against the index.

The query is classified by intent (authentication, api, database, ...)
and routed to a keyword, structural, or semantic search strategy.

Examples:
  codescope search "authentication functions"
  codescope search "function parseHeader"
  codescope search "error handling" --filter "internal/**" --max-results 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchMaxResults, "max-results", "n", 0, "Maximum number of results (default from config)")
	searchCmd.Flags().StringVarP(&searchFileFilter, "filter", "f", "", "Glob pattern restricting results to matching files")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Emit results as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	proj, err := openProject()
	if err != nil {
		return err
	}
	defer proj.Close()

	cb, err := proj.requireCodebase()
	if err != nil {
		return err
	}

	maxResults := searchMaxResults
	if maxResults <= 0 {
		maxResults = proj.cfg.Search.MaxResults
	}

	engine := query.NewEngine(proj.store)
	defer engine.Close()

	resp, err := engine.Search(context.Background(), cb.ID, strings.Join(args, " "), query.Options{
		MaxResults: maxResults,
		FileFilter: searchFileFilter,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return printJSON(resp)
	}

	if len(resp.Results) == 0 {
		fmt.Println("No matches.")
		return nil
	}
	fmt.Printf("%d matches (%s strategy, %s intent, %dms)\n\n",
		resp.TotalMatches, resp.SearchStrategy, resp.QueryIntent, resp.ExecutionTimeMS)
	for _, r := range resp.Results {
		fmt.Printf("%s:%d:%d  [%.2f]\n    %s\n", r.File, r.Line, r.Column, r.Score, r.Content)
	}
	return nil
}
