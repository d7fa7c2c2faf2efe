package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codescope/codescope/internal/refs"
)

var (
	refsIncludeTests    bool
	refsIncludeIndirect bool
	refsIncludeComments bool
	refsIncludeStrings  bool
	refsContextLines    int
	refsMaxResults      int
	refsJSON            bool
)

// refsCmd represents the refs command
var refsCmd = &cobra.Command{
	Use:   "refs <entity-id|name>",
	Short: "Find references to an entity",
	Long: `Refs lists every place an indexed entity is used: calls, assignments,
returns, property accesses and imports, each with a confidence score.

Entity IDs have the form {file_path}::{name}::{start_line} and appear in
search output with --json. A bare name resolves to its first declaration.

Examples:
  codescope refs AuthenticateUser
  codescope refs "db.go::save::3" --indirect --tests`,
	Args: cobra.ExactArgs(1),
	RunE: runRefs,
}

func init() {
	rootCmd.AddCommand(refsCmd)
	refsCmd.Flags().BoolVar(&refsIncludeTests, "tests", false, "Include references in test files")
	refsCmd.Flags().BoolVar(&refsIncludeIndirect, "indirect", false, "Include one-hop indirect callers")
	refsCmd.Flags().BoolVar(&refsIncludeComments, "comments", false, "Include mentions inside comments")
	refsCmd.Flags().BoolVar(&refsIncludeStrings, "strings", false, "Include mentions inside string literals")
	refsCmd.Flags().IntVar(&refsContextLines, "context", 0, "Lines of surrounding context per reference")
	refsCmd.Flags().IntVarP(&refsMaxResults, "max-results", "n", 0, "Maximum number of references")
	refsCmd.Flags().BoolVar(&refsJSON, "json", false, "Emit the report as JSON")
}

func runRefs(cmd *cobra.Command, args []string) error {
	proj, err := openProject()
	if err != nil {
		return err
	}
	defer proj.Close()

	cb, err := proj.requireCodebase()
	if err != nil {
		return err
	}

	resolver := refs.NewResolver(proj.store)
	report, err := resolver.References(context.Background(), cb.ID, args[0], refs.Options{
		IncludeTests:    refsIncludeTests,
		IncludeIndirect: refsIncludeIndirect,
		IncludeComments: refsIncludeComments,
		IncludeStrings:  refsIncludeStrings,
		ContextLines:    refsContextLines,
		MaxResults:      refsMaxResults,
	})
	if err != nil {
		return fmt.Errorf("reference lookup failed: %w", err)
	}

	if refsJSON {
		return printJSON(report)
	}

	fmt.Printf("%d references to %s\n\n", report.TotalFound, report.Entity.Name)
	for _, ref := range report.References {
		marker := ""
		if ref.Indirect {
			marker = fmt.Sprintf(" (indirect via %s)", ref.Via)
		}
		fmt.Printf("%s:%d:%d  %s [%.2f]%s\n    %s\n",
			ref.File, ref.Line, ref.Column, ref.Usage, ref.Confidence, marker, ref.Content)
	}
	return nil
}
