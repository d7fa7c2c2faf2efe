package cli

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
)

// CLIProgressReporter renders indexing progress as a terminal progress bar.
type CLIProgressReporter struct {
	quiet bool
	bar   *progressbar.ProgressBar
}

// NewCLIProgressReporter creates a new CLI progress reporter.
func NewCLIProgressReporter(quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{quiet: quiet}
}

func (c *CLIProgressReporter) Start(totalFiles int) {
	if c.quiet {
		return
	}
	c.bar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetDescription("Indexing files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
}

func (c *CLIProgressReporter) Advance(filePath string) {
	if c.quiet || c.bar == nil {
		return
	}
	c.bar.Add(1)
}

func (c *CLIProgressReporter) Done() {
	if c.quiet || c.bar == nil {
		return
	}
	c.bar.Finish()
}
