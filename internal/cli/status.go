package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusJSON bool

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show indexed codebases and their state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Emit status as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	proj, err := openProject()
	if err != nil {
		return err
	}
	defer proj.Close()

	codebases, err := proj.store.ListCodebases()
	if err != nil {
		return fmt.Errorf("failed to list codebases: %w", err)
	}

	if statusJSON {
		return printJSON(codebases)
	}

	if len(codebases) == 0 {
		fmt.Println("No codebases indexed yet. Run 'codescope index' first.")
		return nil
	}
	for _, cb := range codebases {
		indexed := "never"
		if !cb.LastIndexed.IsZero() {
			indexed = cb.LastIndexed.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%s\n    root: %s\n    status: %s\n    last indexed: %s\n",
			cb.ID, cb.RootPath, cb.Status, indexed)
	}
	return nil
}
