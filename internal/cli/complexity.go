package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codescope/codescope/internal/metrics"
	"github.com/codescope/codescope/internal/storage"
)

var (
	complexityEntity string
	complexityFile   string
	complexityJSON   bool
)

// complexityCmd represents the complexity command
var complexityCmd = &cobra.Command{
	Use:   "complexity",
	Short: "Calculate complexity metrics for entities",
	Long: `Complexity reports cyclomatic complexity, cognitive complexity and a
maintainability index for a single entity or every function in a file.

Examples:
  codescope complexity --file internal/auth/login.go
  codescope complexity --entity "internal/auth/login.go::AuthenticateUser::10"`,
	RunE: runComplexity,
}

func init() {
	rootCmd.AddCommand(complexityCmd)
	complexityCmd.Flags().StringVar(&complexityEntity, "entity", "", "Entity ID to measure")
	complexityCmd.Flags().StringVar(&complexityFile, "file", "", "Measure every function in this file (relative path)")
	complexityCmd.Flags().BoolVar(&complexityJSON, "json", false, "Emit metrics as JSON")
}

func runComplexity(cmd *cobra.Command, args []string) error {
	if (complexityEntity == "") == (complexityFile == "") {
		return fmt.Errorf("exactly one of --entity or --file is required")
	}

	proj, err := openProject()
	if err != nil {
		return err
	}
	defer proj.Close()

	cb, err := proj.requireCodebase()
	if err != nil {
		return err
	}
	if _, err := proj.store.RequireIndexed(cb.ID); err != nil {
		return err
	}

	var results []metrics.ComplexityMetrics
	if complexityEntity != "" {
		entity, err := proj.store.GetEntity(cb.ID, complexityEntity)
		if err != nil {
			return fmt.Errorf("entity lookup failed: %w", err)
		}
		results = append(results, metrics.Calculate(entity))
	} else {
		entities, err := proj.store.Entities(cb.ID, storage.EntityFilter{
			FilePath: complexityFile,
			Kinds: []storage.EntityKind{
				storage.KindFunction,
				storage.KindMethod,
				storage.KindConstructor,
				storage.KindArrowFunction,
			},
		})
		if err != nil {
			return fmt.Errorf("entity lookup failed: %w", err)
		}
		for i := range entities {
			results = append(results, metrics.Calculate(&entities[i]))
		}
	}

	if complexityJSON {
		return printJSON(results)
	}

	for _, m := range results {
		fmt.Printf("%s\n    cyclomatic %d  cognitive %d  loc %d  MI %.1f  rating %s\n",
			m.EntityID, m.Cyclomatic, m.Cognitive, m.LinesOfCode, m.MaintainabilityIndex, m.Rating)
		if m.Incomplete {
			fmt.Println("    (body truncated, metrics may undercount)")
		}
	}
	if len(results) == 0 {
		fmt.Println("No measurable entities found.")
	}
	return nil
}
