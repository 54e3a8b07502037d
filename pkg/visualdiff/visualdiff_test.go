package visualdiff

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/novvoo/go-pdfdiff/pkg/pdf"
	"github.com/novvoo/go-pdfdiff/pkg/raster"
)

const (
	blank = ""
	// one black point at the top-left of a 100x100 page
	dot = "0 0 0 rg 10 89 1 1 re f"
)

// writePDF writes a document with one 100x100 page per content string
func writePDF(t *testing.T, name string, contents ...string) string {
	t.Helper()
	return writeSized(t, name, 100, 100, contents...)
}

func writeSized(t *testing.T, name string, width, height float64, contents ...string) string {
	t.Helper()
	w := pdf.NewWriter()
	for _, c := range contents {
		_, err := w.AddPage(width, height, nil, []byte(c))
		require.NoError(t, err)
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, w.WriteFile(path))
	return path
}

func observed(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

func TestIdenticalDocuments(t *testing.T) {
	a := writePDF(t, "a.pdf", blank, dot)
	b := writePDF(t, "b.pdf", blank, dot)
	out := filepath.Join(t.TempDir(), "diff.pdf")

	res, err := New().Compare(context.Background(), a, b, out)
	require.NoError(t, err)
	assert.True(t, res.Equal)
	assert.Empty(t, res.OutputPath)
	assert.Equal(t, StateEqualDone, res.State)
	assert.Len(t, res.Pages, 2)

	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err), "nothing is written for equal documents")
}

func TestBooleanOnlyStopsAtFirstDifference(t *testing.T) {
	a := writePDF(t, "a.pdf", dot, blank, blank)
	b := writePDF(t, "b.pdf", blank, dot, blank)
	log, logs := observed(zap.WarnLevel)

	res, err := New(WithLogger(log)).Compare(context.Background(), a, b, "")
	require.NoError(t, err)
	assert.False(t, res.Equal)
	assert.Equal(t, StateEqualDone, res.State)
	require.Len(t, res.Pages, 1)
	assert.Equal(t, PageResult{Index: 0, Status: PageDifferent, DiffPixels: 1}, res.Pages[0])

	entries := logs.FilterMessage("page contains different pixels").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ContextMap()["pixels"])
}

func TestBooleanOnlyPageCount(t *testing.T) {
	a := writePDF(t, "a.pdf", blank)
	b := writePDF(t, "b.pdf", blank, blank)
	log, logs := observed(zap.WarnLevel)

	res, err := New(WithLogger(log)).Compare(context.Background(), a, b, "")
	require.NoError(t, err)
	assert.False(t, res.Equal)
	assert.Equal(t, StateEqualDone, res.State)
	assert.Empty(t, res.Pages, "no page is compared")
	assert.Equal(t, 1, res.PagesA)
	assert.Equal(t, 2, res.PagesB)
	assert.Equal(t, 1, logs.FilterMessage("number of pages differ").Len())
}

func TestReportWritesDifferenceDocument(t *testing.T) {
	a := writePDF(t, "a.pdf", dot, blank)
	b := writePDF(t, "b.pdf", blank, blank, blank)
	out := filepath.Join(t.TempDir(), "diff.pdf")
	log, logs := observed(zap.DebugLevel)

	res, err := New(WithLogger(log)).Compare(context.Background(), a, b, out)
	require.NoError(t, err)
	assert.False(t, res.Equal)
	assert.Equal(t, out, res.OutputPath)
	assert.Equal(t, StateDiffDone, res.State)
	assert.Equal(t, []PageResult{
		{Index: 0, Status: PageDifferent, DiffPixels: 1},
		{Index: 1, Status: PageEqual},
		{Index: 2, Status: PageOnlyInB},
	}, res.Pages)

	doc, err := pdf.Open(out)
	require.NoError(t, err)
	defer doc.Close()
	require.Equal(t, 3, doc.NumPages())
	for _, p := range doc.Pages() {
		assert.Equal(t, 200.0, p.Width())
		assert.Equal(t, 100.0, p.Height())
	}

	var states []string
	for _, e := range logs.FilterMessage("state").All() {
		states = append(states, e.ContextMap()["to"].(string))
	}
	assert.Equal(t, []string{"RASTERIZING", "COMPARING", "BUILDING_OVERLAY", "DIFF_DONE"}, states)
	assert.Equal(t, 1, logs.FilterMessage("page only available in one document").Len())
}

func TestThreshold(t *testing.T) {
	a := writePDF(t, "a.pdf", "0.5 g 0 0 100 100 re f")
	b := writePDF(t, "b.pdf", "0.51 g 0 0 100 100 re f")

	res, err := New().Compare(context.Background(), a, b, "")
	require.NoError(t, err)
	assert.False(t, res.Equal)

	res, err = New(WithThreshold(8)).Compare(context.Background(), a, b, "")
	require.NoError(t, err)
	assert.True(t, res.Equal)
}

func TestReportModeRequiresOutput(t *testing.T) {
	_, err := New(WithMode(ModeReport)).Compare(context.Background(), "a.pdf", "b.pdf", "")
	assert.ErrorIs(t, err, ErrNoOutput)
}

func TestMissingInput(t *testing.T) {
	b := writePDF(t, "b.pdf", blank)
	missing := filepath.Join(t.TempDir(), "nope.pdf")

	_, err := New().Compare(context.Background(), missing, b, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), missing)
}

func TestCanceled(t *testing.T) {
	a := writePDF(t, "a.pdf", blank)
	b := writePDF(t, "b.pdf", blank)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Compare(ctx, a, b, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "INIT", StateInit.String())
	assert.Equal(t, "ERROR", StateError.String())
	assert.Equal(t, "UNKNOWN", State(42).String())
	assert.Equal(t, "report", ModeReport.String())
}

func TestReportLongerFirstDocument(t *testing.T) {
	a := writePDF(t, "a.pdf", blank, dot)
	b := writePDF(t, "b.pdf", blank)
	out := filepath.Join(t.TempDir(), "diff.pdf")

	res, err := New().Compare(context.Background(), a, b, out)
	require.NoError(t, err)
	assert.False(t, res.Equal)
	assert.Equal(t, StateDiffDone, res.State)
	assert.Equal(t, []PageResult{
		{Index: 0, Status: PageEqual},
		{Index: 1, Status: PageOnlyInA},
	}, res.Pages)

	doc, err := pdf.Open(out)
	require.NoError(t, err)
	defer doc.Close()
	assert.Equal(t, 2, doc.NumPages())
}

// flagged maps each page index that is not equal to its pixel count
func flagged(pages []PageResult) map[int]int {
	out := make(map[int]int)
	for _, p := range pages {
		if p.Status != PageEqual {
			out[p.Index] = p.DiffPixels
		}
	}
	return out
}

func TestSymmetry(t *testing.T) {
	tests := []struct {
		name string
		a, b func(t *testing.T) string
	}{
		{
			name: "changed pages",
			a:    func(t *testing.T) string { return writePDF(t, "a.pdf", dot, blank, dot) },
			b:    func(t *testing.T) string { return writePDF(t, "b.pdf", blank, blank, "0 0 1 rg 40 40 20 20 re f") },
		},
		{
			name: "different page counts",
			a:    func(t *testing.T) string { return writePDF(t, "a.pdf", dot, blank, blank) },
			b:    func(t *testing.T) string { return writePDF(t, "b.pdf", blank) },
		},
		{
			name: "different page sizes",
			a:    func(t *testing.T) string { return writePDF(t, "a.pdf", dot) },
			b:    func(t *testing.T) string { return writeSized(t, "b.pdf", 120, 80, dot) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := tt.a(t), tt.b(t)
			dir := t.TempDir()

			ab, err := New().Compare(context.Background(), a, b, filepath.Join(dir, "ab.pdf"))
			require.NoError(t, err)
			ba, err := New().Compare(context.Background(), b, a, filepath.Join(dir, "ba.pdf"))
			require.NoError(t, err)

			assert.False(t, ab.Equal)
			assert.False(t, ba.Equal)
			assert.NotEmpty(t, flagged(ab.Pages))
			assert.Equal(t, flagged(ab.Pages), flagged(ba.Pages))
			assert.Equal(t, ab.PagesA, ba.PagesB)
			assert.Equal(t, ab.PagesB, ba.PagesA)
		})
	}
}

func TestDeterministic(t *testing.T) {
	tests := []struct {
		name    string
		workers int
	}{
		{name: "sequential", workers: 1},
		{name: "parallel", workers: 4},
	}
	a := writePDF(t, "a.pdf", dot, "0.3 g 20 20 50 50 re f", blank, dot)
	b := writePDF(t, "b.pdf", blank, "0.3 g 21 20 50 50 re f", blank, dot)

	var first []PageResult
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				out := filepath.Join(t.TempDir(), "diff.pdf")
				res, err := New(WithWorkers(tt.workers)).Compare(context.Background(), a, b, out)
				require.NoError(t, err)
				if first == nil {
					first = res.Pages
					continue
				}
				assert.Equal(t, first, res.Pages)
			}
		})
	}
	require.Len(t, first, 4)
	assert.Equal(t, 1, first[0].DiffPixels)
	assert.Positive(t, first[1].DiffPixels)
}

func TestReportHighlightFollowsShorterPage(t *testing.T) {
	// a 10pt square 5pt below the top of a short page, against a tall blank page
	a := writeSized(t, "a.pdf", 100, 100, "0 0 0 rg 10 85 10 10 re f")
	b := writeSized(t, "b.pdf", 100, 200, blank)
	out := filepath.Join(t.TempDir(), "diff.pdf")

	res, err := New().Compare(context.Background(), a, b, out)
	require.NoError(t, err)
	require.False(t, res.Equal)

	doc, err := pdf.Open(out)
	require.NoError(t, err)
	defer doc.Close()
	page, err := raster.New(raster.Options{}).RenderPage(doc.Pages()[0])
	require.NoError(t, err)
	img := page.Image
	require.Equal(t, image.Rect(0, 0, 200, 200), img.Bounds())

	red := func(r image.Rectangle) int {
		n := 0
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				c := img.RGBAAt(x, y)
				if c.R > 200 && c.G < 80 && c.B < 80 {
					n++
				}
			}
		}
		return n
	}
	// a sits on the bottom half of the sheet, its square at rows 105..115
	assert.Zero(t, red(image.Rect(0, 0, 100, 95)), "nothing drawn above a")
	assert.Positive(t, red(image.Rect(0, 95, 40, 125)), "contour around the square")
}
