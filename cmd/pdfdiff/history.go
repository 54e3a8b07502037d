package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/novvoo/go-pdfdiff/internal/config"
	"github.com/novvoo/go-pdfdiff/internal/history"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded comparisons",
		Long: `History lists the comparisons stored with --record, newest first.

Examples:
  # Show the last ten runs
  pdfdiff history --limit 10

  # Show the page results of one run
  pdfdiff history --run 0b6f3c1e-7a0d-4a53-9d2b-5f0f8d1e9c47`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}
	cmd.Flags().IntP("limit", "n", 20, "Number of runs to show (0 for all)")
	cmd.Flags().String("run", "", "Show the pages of the run with this ID")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Do not create an empty database just to list it
	dbPath := filepath.Join(cfg.HistoryDir(), history.FileName)
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(cmd.OutOrStdout(), "No recorded runs.")
		fmt.Fprintln(cmd.OutOrStdout(), "\nUse 'pdfdiff --record <docA.pdf> <docB.pdf>' to record one.")
		return nil
	}

	store, err := history.Open(cfg.HistoryDir())
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	runID, err := cmd.Flags().GetString("run")
	if err != nil {
		return err
	}
	if runID != "" {
		return printRunPages(cmd, store, runID)
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	runs, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No recorded runs.")
		return nil
	}

	fmt.Fprintf(out, "  %-36s  %-19s  %-7s  %-7s  %s\n", "ID", "Date", "Result", "Pages", "Documents")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 100))
	for _, r := range runs {
		result := "equal"
		if !r.Equal {
			result = "differ"
		}
		fmt.Fprintf(out, "  %-36s  %-19s  %-7s  %-7s  %s %s\n",
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			result,
			fmt.Sprintf("%d/%d", r.PagesA, r.PagesB),
			r.DocA,
			r.DocB,
		)
	}
	return nil
}

func printRunPages(cmd *cobra.Command, store *history.Store, runID string) error {
	pages, err := store.Pages(cmd.Context(), runID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  %-6s  %-10s  %s\n", "Page", "Status", "Different Pixels")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 40))
	for _, p := range pages {
		fmt.Fprintf(out, "  %-6d  %-10s  %d\n", p.Index+1, p.Status, p.DiffPixels)
	}
	return nil
}
