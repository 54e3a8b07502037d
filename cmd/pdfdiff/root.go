package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitEqual     = 0
	exitDifferent = 1
	exitError     = 2
)

// ErrUsage is returned for malformed command lines.
var ErrUsage = errors.New("usage error")

// errDifferent marks a comparison that completed and found differences.
var errDifferent = errors.New("documents differ")

// NewRootCmd creates the root command. The root command itself runs the
// comparison.
func NewRootCmd() *cobra.Command {
	f := &compareFlags{}
	cmd := &cobra.Command{
		Use:   "pdfdiff <docA.pdf> <docB.pdf> [<diff.pdf>]",
		Short: "Visual comparison of PDF documents",
		Long: `pdfdiff renders two PDF documents page by page and compares the pixels.

It prints True when the documents are visually equal and False otherwise.
When a third path is given and the documents differ, a PDF is written there
with both documents side by side and the differing regions outlined in red.

Examples:
  # Check whether two documents render the same
  pdfdiff expected.pdf actual.pdf

  # Write the difference document and a Markdown report
  pdfdiff expected.pdf actual.pdf diff.pdf --report diff.md

  # Compare at a higher resolution, tolerating small color shifts
  pdfdiff expected.pdf actual.pdf --dpi 150 --threshold 4`,
		Version:       getVersion(),
		Args:          compareArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, args, f)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	})

	// Global flags that apply to all commands
	cmd.PersistentFlags().StringVarP(&f.config, "config", "c", "", "Configuration file (default .pdfdiff.yaml, then the XDG config dir)")
	cmd.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.Flags().Float64Var(&f.dpi, "dpi", 0, "Rendering resolution in dots per inch (default 72)")
	cmd.Flags().IntVar(&f.threshold, "threshold", 0, "Largest per-channel difference still counted as equal (0-255)")
	cmd.Flags().IntVarP(&f.workers, "workers", "j", 0, "Pages rendered concurrently per document (default 1)")
	cmd.Flags().StringVar(&f.report, "report", "", "Write a Markdown report to this file")
	cmd.Flags().BoolVar(&f.record, "record", false, "Store the run in the history database")
	cmd.Flags().StringVar(&f.logFormat, "log-format", "", "Log format: console or json")
	cmd.Flags().StringVar(&f.logFile, "log-file", "", "Also write JSON logs to this file")
	cmd.Flags().BoolVar(&f.noTmpwatch, "no-tmpwatch", false, "Do not check the temporary directory for leftover files")

	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

func compareArgs(_ *cobra.Command, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("%w: expected <docA.pdf> <docB.pdf> [<diff.pdf>], got %d argument(s)", ErrUsage, len(args))
	}
	return nil
}

// run executes the command line and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	executed, err := cmd.ExecuteContextC(ctx)
	switch {
	case err == nil:
		return exitEqual
	case errors.Is(err, errDifferent):
		return exitDifferent
	case errors.Is(err, ErrUsage):
		fmt.Fprintln(stderr, "Error:", err)
		fmt.Fprint(stderr, executed.UsageString())
	default:
		fmt.Fprintln(stderr, "Error:", err)
	}
	return exitError
}
