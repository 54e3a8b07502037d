package overlay

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novvoo/go-pdfdiff/pkg/highlight"
	"github.com/novvoo/go-pdfdiff/pkg/raster"
)

func TestEmptyAggregator(t *testing.T) {
	a := NewAggregator()
	assert.Equal(t, 0, a.Len())
	_, err := a.Bytes()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestAggregatorPages(t *testing.T) {
	r := highlight.New(highlight.Options{})
	mask := image.NewGray(image.Rect(0, 0, 40, 20))
	mask.Pix[10*mask.Stride+20] = 255

	a := NewAggregator()
	a.Append(r.Highlight(mask))
	missing, err := r.MissingPage(30, 50)
	require.NoError(t, err)
	a.Append(missing)
	assert.Equal(t, 2, a.Len())

	doc, err := a.Document()
	require.NoError(t, err)
	defer doc.Close()

	require.Equal(t, 2, doc.NumPages())
	assert.Equal(t, 40.0, doc.Pages()[0].Width())
	assert.Equal(t, 20.0, doc.Pages()[0].Height())
	assert.Equal(t, 30.0, doc.Pages()[1].Width())
	assert.Equal(t, 50.0, doc.Pages()[1].Height())
}

func TestOverlayRendersTranslucent(t *testing.T) {
	r := highlight.New(highlight.Options{})
	mask := image.NewGray(image.Rect(0, 0, 40, 40))
	mask.Pix[20*mask.Stride+20] = 255

	a := NewAggregator()
	a.Append(r.Highlight(mask))
	doc, err := a.Document()
	require.NoError(t, err)
	defer doc.Close()

	pages, err := raster.New(raster.Options{}).RasterizeDocument(context.Background(), doc)
	require.NoError(t, err)
	img := pages[0].Image

	contour := img.RGBAAt(17, 20)
	assert.Equal(t, uint8(255), contour.R)
	assert.Less(t, contour.G, uint8(10))

	// 40% of (240,255,255) over white paper
	tint := img.RGBAAt(2, 2)
	assert.InDelta(t, 249, int(tint.R), 2)
	assert.Equal(t, uint8(255), tint.G)
	assert.Equal(t, uint8(255), tint.B)
}

func TestOverlayScalesWithDPI(t *testing.T) {
	r := highlight.New(highlight.Options{DPI: 144})
	a := NewAggregator()
	a.Append(r.Highlight(image.NewGray(image.Rect(0, 0, 200, 100))))

	doc, err := a.Document()
	require.NoError(t, err)
	defer doc.Close()
	assert.Equal(t, 100.0, doc.Pages()[0].Width())
	assert.Equal(t, 50.0, doc.Pages()[0].Height())
}
