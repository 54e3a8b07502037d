package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/novvoo/go-pdfdiff/internal/config"
	"github.com/novvoo/go-pdfdiff/internal/history"
	"github.com/novvoo/go-pdfdiff/internal/logging"
	"github.com/novvoo/go-pdfdiff/internal/report"
	"github.com/novvoo/go-pdfdiff/internal/tmpwatch"
	"github.com/novvoo/go-pdfdiff/pkg/highlight"
	"github.com/novvoo/go-pdfdiff/pkg/visualdiff"
)

type compareFlags struct {
	config     string
	verbose    bool
	dpi        float64
	threshold  int
	workers    int
	report     string
	record     bool
	logFormat  string
	logFile    string
	noTmpwatch bool
}

// buildConfig loads the configuration file and applies the flags that were
// set on the command line.
func buildConfig(cmd *cobra.Command, f *compareFlags) (*config.Config, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("dpi") {
		cfg.Raster.DPI = f.dpi
	}
	if flags.Changed("threshold") {
		cfg.Compare.Threshold = f.threshold
	}
	if flags.Changed("workers") {
		cfg.Raster.Workers = f.workers
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = f.logFormat
	}
	if flags.Changed("log-file") {
		cfg.Log.File = f.logFile
	}
	if f.verbose {
		cfg.Log.Level = "debug"
	}
	if f.record {
		cfg.History.Enabled = true
	}
	if f.noTmpwatch {
		cfg.TmpWatch.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

func runCompare(cmd *cobra.Command, args []string, f *compareFlags) error {
	cfg, err := buildConfig(cmd, f)
	if err != nil {
		return err
	}
	log, err := logging.NewWithWriter(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logging.Sync(log)

	if cfg.TmpWatch.Enabled {
		watch := tmpwatch.NewSession(cfg.TmpWatch.Dir, log)
		watch.Check("start")
		defer watch.Check("end")
	}

	pathA, pathB := args[0], args[1]
	var output string
	if len(args) == 3 {
		output = args[2]
	}

	c := visualdiff.New(
		visualdiff.WithDPI(cfg.Raster.DPI),
		visualdiff.WithWorkers(cfg.Raster.Workers),
		visualdiff.WithThreshold(uint8(cfg.Compare.Threshold)),
		visualdiff.WithHighlight(highlight.Options{
			DilateRadius: cfg.Highlight.DilateRadius,
			EdgeWidth:    cfg.Highlight.EdgeWidth,
			FontSize:     cfg.Highlight.FontSize,
		}),
		visualdiff.WithLogger(log),
	)
	started := time.Now()
	res, err := c.Compare(cmd.Context(), pathA, pathB, output)
	if err != nil {
		return err
	}
	log.Info("comparison finished",
		zap.Bool("equal", res.Equal),
		zap.Stringer("state", res.State),
		zap.Duration("elapsed", time.Since(started)),
	)

	if res.Equal {
		fmt.Fprintln(cmd.OutOrStdout(), "True")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "False")
	}

	if f.report != "" {
		if err := writeReport(f.report, cfg, pathA, pathB, output == "", res); err != nil {
			return err
		}
		log.Debug("wrote report", zap.String("path", f.report))
	}
	if cfg.History.Enabled {
		if err := recordRun(cmd.Context(), cfg, log, pathA, pathB, res); err != nil {
			return err
		}
	}

	if !res.Equal {
		return errDifferent
	}
	return nil
}

func writeReport(path string, cfg *config.Config, pathA, pathB string, booleanOnly bool, res *visualdiff.Result) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	out, err := os.Create(path) //nolint:gosec // user-provided report path
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	s := report.Summary{
		DocA:       pathA,
		DocB:       pathB,
		PagesA:     res.PagesA,
		PagesB:     res.PagesB,
		Equal:      res.Equal,
		OutputPath: res.OutputPath,
		DPI:        cfg.Raster.DPI,
		Threshold:  cfg.Compare.Threshold,
		Date:       time.Now(),
		Partial:    booleanOnly && !res.Equal,
	}
	for _, p := range res.Pages {
		s.Pages = append(s.Pages, report.Page{Index: p.Index, Status: string(p.Status), DiffPixels: p.DiffPixels})
	}

	if err := report.WriteMarkdown(out, s); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return out.Close()
}

func recordRun(ctx context.Context, cfg *config.Config, log *zap.Logger, pathA, pathB string, res *visualdiff.Result) error {
	hashA, err := history.Fingerprint(pathA)
	if err != nil {
		return err
	}
	hashB, err := history.Fingerprint(pathB)
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.HistoryDir())
	if err != nil {
		return err
	}
	defer store.Close()

	run := &history.Run{
		DocA:      pathA,
		DocB:      pathB,
		HashA:     hashA,
		HashB:     hashB,
		Equal:     res.Equal,
		Output:    res.OutputPath,
		PagesA:    res.PagesA,
		PagesB:    res.PagesB,
		DPI:       cfg.Raster.DPI,
		Threshold: cfg.Compare.Threshold,
	}
	for _, p := range res.Pages {
		run.Pages = append(run.Pages, history.Page{Index: p.Index, Status: string(p.Status), DiffPixels: p.DiffPixels})
	}
	if err := store.Record(ctx, run); err != nil {
		return err
	}
	log.Info("recorded run", zap.String("id", run.ID), zap.String("db", store.Path()))
	return nil
}
