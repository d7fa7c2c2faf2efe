package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codescope/codescope/internal/dupes"
)

var (
	dupesMinLines   int
	dupesThreshold  float64
	dupesFiles      string
	dupesTypes      string
	dupesMaxResults int
	dupesGroup      bool
	dupesJSON       bool
)

// dupesCmd represents the dupes command
var dupesCmd = &cobra.Command{
	Use:   "dupes",
	Short: "Detect duplicated code blocks",
	Long: `Dupes scans indexed function bodies for duplication in three passes:
byte-exact copies, structural clones (same shape, renamed identifiers)
and near-duplicates above a similarity threshold.

Examples:
  codescope dupes
  codescope dupes --min-lines 10 --threshold 0.8
  codescope dupes --types structural --files 'internal/billing/**'
  codescope dupes --merge --max-results 20 --json`,
	RunE: runDupes,
}

func init() {
	rootCmd.AddCommand(dupesCmd)
	dupesCmd.Flags().IntVar(&dupesMinLines, "min-lines", 0, "Minimum block size in normalized lines (default from config)")
	dupesCmd.Flags().Float64Var(&dupesThreshold, "threshold", 0, "Similarity threshold for near-duplicates (default from config)")
	dupesCmd.Flags().StringVar(&dupesFiles, "files", "", "Glob restricting detection to matching file paths")
	dupesCmd.Flags().StringVar(&dupesTypes, "types", "", "Comma-separated detection passes to run: exact, structural, semantic (default all)")
	dupesCmd.Flags().IntVar(&dupesMaxResults, "max-results", 0, "Maximum number of duplicate groups to report (0 = unlimited)")
	dupesCmd.Flags().BoolVar(&dupesGroup, "merge", false, "Merge groups whose representatives are similar")
	dupesCmd.Flags().BoolVar(&dupesJSON, "json", false, "Emit the report as JSON")
}

func runDupes(cmd *cobra.Command, args []string) error {
	proj, err := openProject()
	if err != nil {
		return err
	}
	defer proj.Close()

	cb, err := proj.requireCodebase()
	if err != nil {
		return err
	}

	minLines := dupesMinLines
	if minLines <= 0 {
		minLines = proj.cfg.Duplicates.MinLines
	}
	threshold := dupesThreshold
	if threshold <= 0 {
		threshold = proj.cfg.Duplicates.Threshold
	}

	kinds, err := dupes.ParseKinds(dupesTypes)
	if err != nil {
		return err
	}

	detector := dupes.NewDetector(proj.store)
	report, err := detector.Detect(context.Background(), cb.ID, dupes.Options{
		MinLines:          minLines,
		Threshold:         threshold,
		FileFilter:        dupesFiles,
		DetectionTypes:    kinds,
		MaxResults:        dupesMaxResults,
		GroupBySimilarity: dupesGroup,
	})
	if err != nil {
		return fmt.Errorf("duplicate detection failed: %w", err)
	}

	if dupesJSON {
		return printJSON(report)
	}

	if report.TotalGroups == 0 {
		fmt.Println("No duplicates found.")
		return nil
	}
	fmt.Printf("%d duplicate groups, %d duplicated lines total\n\n", report.TotalGroups, report.DuplicatedLines)
	for _, g := range report.Groups {
		fmt.Printf("%s  similarity %.2f (%s)  %d lines  saves ~%d lines  effort %s\n",
			g.Kind, g.Similarity, g.Band, g.Lines, g.EstimatedSavings, g.MaintenanceEffort)
		for _, inst := range g.Instances {
			fmt.Printf("    %s:%d-%d  %s\n", inst.File, inst.StartLine, inst.EndLine, inst.Name)
		}
		fmt.Println()
	}
	return nil
}
