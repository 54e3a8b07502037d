// Package diff compares two rendered pages pixel by pixel.
package diff

import (
	"image"
)

// Mask marks differing pixels with 255 and equal pixels with 0
type Mask = image.Gray

// Compare returns the difference mask of a and b and the number of
// differing pixels. A pixel differs when the absolute difference of any
// channel, in 8-bit units, exceeds threshold.
//
// Images of different sizes are compared over the union of their bounds,
// both anchored at the top-left corner. Pixels outside either image always
// differ.
func Compare(a, b image.Image, threshold uint8) (*Mask, int) {
	ab, bb := a.Bounds(), b.Bounds()
	w, h := max(ab.Dx(), bb.Dx()), max(ab.Dy(), bb.Dy())
	mask := image.NewGray(image.Rect(0, 0, w, h))

	ra, fastA := a.(*image.RGBA)
	rb, fastB := b.(*image.RGBA)

	count := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			inA := x < ab.Dx() && y < ab.Dy()
			inB := x < bb.Dx() && y < bb.Dy()
			differs := true
			if inA && inB {
				var pa, pb [4]uint8
				if fastA && fastB {
					pa = rgbaAt(ra, ab.Min.X+x, ab.Min.Y+y)
					pb = rgbaAt(rb, bb.Min.X+x, bb.Min.Y+y)
				} else {
					pa = channels(a, ab.Min.X+x, ab.Min.Y+y)
					pb = channels(b, bb.Min.X+x, bb.Min.Y+y)
				}
				differs = exceeds(pa, pb, threshold)
			}
			if differs {
				mask.Pix[y*mask.Stride+x] = 255
				count++
			}
		}
	}
	return mask, count
}

func rgbaAt(img *image.RGBA, x, y int) [4]uint8 {
	i := img.PixOffset(x, y)
	return [4]uint8{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
}

func channels(img image.Image, x, y int) [4]uint8 {
	r, g, b, a := img.At(x, y).RGBA()
	return [4]uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
}

func exceeds(a, b [4]uint8, threshold uint8) bool {
	for i := range a {
		d := int(a[i]) - int(b[i])
		if d < 0 {
			d = -d
		}
		if d > int(threshold) {
			return true
		}
	}
	return false
}
