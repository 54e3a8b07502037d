// Package visualdiff compares two PDF documents visually, page by page, and
// optionally writes a side-by-side document that highlights the differences.
//
// A Comparator is the single entry point:
//
//	c := visualdiff.New(visualdiff.WithDPI(100), visualdiff.WithLogger(log))
//	res, err := c.Compare(ctx, "a.pdf", "b.pdf", "diff.pdf")
//
// With an empty output path the comparison runs in boolean-only mode and stops
// at the first difference.
package visualdiff

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/novvoo/go-pdfdiff/pkg/compose"
	"github.com/novvoo/go-pdfdiff/pkg/diff"
	"github.com/novvoo/go-pdfdiff/pkg/highlight"
	"github.com/novvoo/go-pdfdiff/pkg/overlay"
	"github.com/novvoo/go-pdfdiff/pkg/pdf"
	"github.com/novvoo/go-pdfdiff/pkg/raster"
)

// ErrNoOutput is returned when report mode is requested without an output path
var ErrNoOutput = errors.New("report mode requires an output path")

// Result is the outcome of a comparison
type Result struct {
	Equal      bool
	OutputPath string // set only when a difference document was written
	PagesA     int
	PagesB     int
	Pages      []PageResult
	State      State
}

// Option configures a Comparator
type Option func(*Comparator)

// WithDPI sets the rasterization resolution
func WithDPI(dpi float64) Option {
	return func(c *Comparator) { c.dpi = dpi }
}

// WithWorkers sets how many pages of one document are rasterized at once
func WithWorkers(n int) Option {
	return func(c *Comparator) { c.workers = n }
}

// WithThreshold sets the per-channel difference a pixel may have and still
// count as equal
func WithThreshold(t uint8) Option {
	return func(c *Comparator) { c.threshold = t }
}

// WithHighlight sets the overlay drawing options. The DPI field is ignored.
func WithHighlight(opts highlight.Options) Option {
	return func(c *Comparator) { c.highlight = opts }
}

// WithMode forces a mode. By default the mode follows the output path.
func WithMode(m Mode) Option {
	return func(c *Comparator) { c.mode = &m }
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(c *Comparator) {
		if log != nil {
			c.log = log
		}
	}
}

// Comparator runs visual comparisons. It holds no per-run state and may be
// reused.
type Comparator struct {
	dpi       float64
	workers   int
	threshold uint8
	highlight highlight.Options
	mode      *Mode
	log       *zap.Logger
}

// New creates a comparator
func New(opts ...Option) *Comparator {
	c := &Comparator{
		dpi:     raster.DefaultDPI,
		workers: 1,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// run carries the state of one comparison
type run struct {
	*Comparator
	mode  Mode
	state State
	res   *Result
}

func (r *run) enter(s State) {
	r.log.Debug("state", zap.Stringer("from", r.state), zap.Stringer("to", s))
	r.state = s
	r.res.State = s
}

func (r *run) fail(err error) (*Result, error) {
	r.enter(StateError)
	return nil, err
}

// Compare compares the documents at pathA and pathB. When output is not
// empty and the documents differ, the side-by-side document is written to
// output.
func (c *Comparator) Compare(ctx context.Context, pathA, pathB, output string) (*Result, error) {
	mode := ModeBooleanOnly
	if output != "" {
		mode = ModeReport
	}
	if c.mode != nil {
		mode = *c.mode
	}
	if mode == ModeReport && output == "" {
		return nil, ErrNoOutput
	}

	r := &run{Comparator: c, mode: mode, state: StateInit, res: &Result{State: StateInit}}
	r.log.Debug("compare",
		zap.String("a", pathA),
		zap.String("b", pathB),
		zap.Stringer("mode", mode),
		zap.Float64("dpi", c.dpi),
	)

	// pdf.Open errors carry the path
	docA, err := pdf.Open(pathA)
	if err != nil {
		return r.fail(err)
	}
	defer docA.Close()
	docB, err := pdf.Open(pathB)
	if err != nil {
		return r.fail(err)
	}
	defer docB.Close()

	r.enter(StateRasterizing)
	pagesA, pagesB, err := r.rasterize(ctx, docA, docB, pathA, pathB)
	if err != nil {
		return r.fail(err)
	}
	nA, nB := len(pagesA), len(pagesB)
	r.res.PagesA, r.res.PagesB = nA, nB

	differ := false
	if nA != nB {
		r.log.Warn("number of pages differ",
			zap.String("a", pathA), zap.Int("pages_a", nA),
			zap.String("b", pathB), zap.Int("pages_b", nB),
		)
		if mode == ModeBooleanOnly {
			r.enter(StateEqualDone)
			return r.res, nil
		}
		differ = true
	}

	r.enter(StateComparing)
	hl := r.highlight
	hl.DPI = c.dpi
	renderer := highlight.New(hl)
	overlays := overlay.NewAggregator()

	for i := 0; i < min(nA, nB); i++ {
		if err := ctx.Err(); err != nil {
			return r.fail(err)
		}
		mask, count := diff.Compare(pagesA[i].Image, pagesB[i].Image, c.threshold)

		status := PageEqual
		if count > 0 {
			status = PageDifferent
			differ = true
			r.log.Warn("page contains different pixels", zap.Int("page", i), zap.Int("pixels", count))
		}
		r.res.Pages = append(r.res.Pages, PageResult{Index: i, Status: status, DiffPixels: count})

		if mode == ModeBooleanOnly {
			if differ {
				r.enter(StateEqualDone)
				return r.res, nil
			}
			continue
		}

		if count > 0 {
			overlays.Append(renderer.Highlight(mask))
			continue
		}
		b := mask.Bounds()
		ov, err := renderer.NoDifferences(b.Dx(), b.Dy())
		if err != nil {
			return r.fail(fmt.Errorf("page %d: %w", i, err))
		}
		overlays.Append(ov)
	}

	if err := r.missing(renderer, overlays, pagesA, nB, PageOnlyInA, pathA); err != nil {
		return r.fail(err)
	}
	if err := r.missing(renderer, overlays, pagesB, nA, PageOnlyInB, pathB); err != nil {
		return r.fail(err)
	}

	if !differ {
		r.res.Equal = true
		r.enter(StateEqualDone)
		return r.res, nil
	}

	r.enter(StateBuildingOverlay)
	ovDoc, err := overlays.Document()
	if err != nil {
		return r.fail(fmt.Errorf("build overlay: %w", err))
	}
	defer ovDoc.Close()

	if err := compose.Compose(docA, docB, ovDoc, output); err != nil {
		return r.fail(fmt.Errorf("compose %s: %w", output, err))
	}
	r.res.OutputPath = output
	r.enter(StateDiffDone)
	r.log.Debug("wrote difference document", zap.String("path", output), zap.Int("pages", overlays.Len()))
	return r.res, nil
}

// rasterize renders both documents concurrently
func (r *run) rasterize(ctx context.Context, docA, docB *pdf.Document, pathA, pathB string) ([]*raster.Page, []*raster.Page, error) {
	rz := raster.New(raster.Options{DPI: r.dpi, Workers: r.workers, Logger: r.log})

	var pagesA, pagesB []*raster.Page
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if pagesA, err = rz.RasterizeDocument(ctx, docA); err != nil {
			return fmt.Errorf("rasterize %s: %w", pathA, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if pagesB, err = rz.RasterizeDocument(ctx, docB); err != nil {
			return fmt.Errorf("rasterize %s: %w", pathB, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return pagesA, pagesB, nil
}

// missing handles the pages of one document past the length of the other
func (r *run) missing(renderer *highlight.Renderer, overlays *overlay.Aggregator, pages []*raster.Page, other int, status PageStatus, path string) error {
	for i := other; i < len(pages); i++ {
		r.log.Warn("page only available in one document", zap.Int("page", i), zap.String("document", path))
		r.res.Pages = append(r.res.Pages, PageResult{Index: i, Status: status})
		if r.mode == ModeBooleanOnly {
			continue
		}
		b := pages[i].Bounds()
		ov, err := renderer.MissingPage(b.Dx(), b.Dy())
		if err != nil {
			return fmt.Errorf("page %d: %w", i, err)
		}
		overlays.Append(ov)
	}
	return nil
}
