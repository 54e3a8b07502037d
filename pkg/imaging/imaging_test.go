package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	black = color.NRGBA{0, 0, 0, 255}
	white = color.NRGBA{255, 255, 255, 255}
	red   = color.NRGBA{255, 0, 0, 255}
)

func TestNewCanvas(t *testing.T) {
	c := NewCanvas(4, 3, black)
	assert.Equal(t, image.Rect(0, 0, 4, 3), c.Bounds())
	assert.Equal(t, black, c.Image().NRGBAAt(3, 2))
	assert.False(t, c.HasAlpha())
}

func TestFromImage(t *testing.T) {
	src := image.NewGray(image.Rect(5, 5, 8, 7))
	src.SetGray(6, 6, color.Gray{Y: 255})

	c := FromImage(src)
	assert.Equal(t, image.Rect(0, 0, 3, 2), c.Bounds())
	assert.Equal(t, white, c.Image().NRGBAAt(1, 1))
	assert.Equal(t, black, c.Image().NRGBAAt(0, 0))
}

func TestDilate(t *testing.T) {
	c := NewCanvas(9, 9, black)
	c.Image().SetNRGBA(4, 4, white)

	c.Dilate(2)
	for y := 0; y < 9; y++ {
		for x := 0; x < 9; x++ {
			want := black
			if x >= 2 && x <= 6 && y >= 2 && y <= 6 {
				want = white
			}
			require.Equal(t, want, c.Image().NRGBAAt(x, y), "pixel %d,%d", x, y)
		}
	}
}

func TestNegate(t *testing.T) {
	c := NewCanvas(1, 1, color.NRGBA{10, 20, 30, 255})
	c.Negate()
	assert.Equal(t, color.NRGBA{245, 235, 225, 255}, c.Image().NRGBAAt(0, 0))
}

func TestEdge(t *testing.T) {
	c := NewCanvas(10, 10, white)
	for y := 3; y < 7; y++ {
		for x := 3; x < 7; x++ {
			c.Image().SetNRGBA(x, y, black)
		}
	}

	c.Edge(2)
	img := c.Image()
	assert.Equal(t, white, img.NRGBAAt(2, 4), "just outside the square")
	assert.Equal(t, white, img.NRGBAAt(3, 4), "just inside the square")
	assert.Equal(t, black, img.NRGBAAt(5, 5), "interior")
	assert.Equal(t, black, img.NRGBAAt(0, 0), "far background")
	assert.Equal(t, black, img.NRGBAAt(9, 9), "image border is not an edge")
}

func TestOpaquePaint(t *testing.T) {
	tint := color.NRGBA{240, 255, 255, 102}

	c := NewCanvas(2, 1, white)
	c.Image().SetNRGBA(1, 0, black)

	c.OpaquePaint(white, red)
	assert.Equal(t, red, c.Image().NRGBAAt(0, 0))

	// without an alpha channel only the color changes
	c.OpaquePaint(black, tint)
	assert.Equal(t, color.NRGBA{240, 255, 255, 255}, c.Image().NRGBAAt(1, 0))

	c = NewCanvas(2, 1, black)
	c.ActivateAlpha()
	c.OpaquePaint(black, tint)
	assert.Equal(t, tint, c.Image().NRGBAAt(0, 0))

	// an already replaced pixel no longer matches opaque black
	c.OpaquePaint(black, red)
	assert.Equal(t, tint, c.Image().NRGBAAt(1, 0))
}

func TestDrawCenteredText(t *testing.T) {
	c := NewCanvas(400, 300, color.NRGBA{A: 0})
	err := c.DrawCenteredText("MISSING\nPAGE", TextOptions{
		Size:        40,
		Fill:        red,
		Stroke:      color.NRGBA{128, 128, 128, 255},
		StrokeWidth: 2,
	})
	require.NoError(t, err)

	img := c.Image()
	var reds, greys int
	minX, maxX := 400, 0
	minY, maxY := 300, 0
	for y := 0; y < 300; y++ {
		for x := 0; x < 400; x++ {
			p := img.NRGBAAt(x, y)
			if p.A == 0 {
				continue
			}
			if p == red {
				reds++
			}
			if p.R == 128 && p.G == 128 {
				greys++
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	assert.Greater(t, reds, 500)
	assert.Greater(t, greys, 100, "outline shows around the glyphs")

	// the block is centered within a few pixels
	assert.InDelta(t, 200, (minX+maxX)/2, 6)
	assert.InDelta(t, 150, (minY+maxY)/2, 12)
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 0).A)
}

func TestDrawCenteredTextInvalidSize(t *testing.T) {
	c := NewCanvas(10, 10, black)
	assert.Error(t, c.DrawCenteredText("x", TextOptions{}))
}
