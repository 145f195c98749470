package effects

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/ivlev/glyphscan/internal/analyzer"
)

// Filter transforms a whole scan before it is mapped onto the grid.
type Filter interface {
	Name() string
	Apply(img image.Image) image.Image
}

// Chain applies filters in order. A scan whose pixel buffer is shorter than
// its bounds is returned unfiltered together with the reason, so the damaged
// cells can still be skipped one by one.
func Chain(img image.Image, filters ...Filter) (image.Image, error) {
	if len(filters) == 0 {
		return img, nil
	}
	if err := analyzer.CheckBuffer(img); err != nil {
		return img, fmt.Errorf("%s: %w", filters[0].Name(), err)
	}
	for _, f := range filters {
		img = f.Apply(img)
	}
	return img, nil
}

// Rotate270 turns portrait scans a quarter turn counter-clockwise so they
// match the landscape sheet. Landscape input is returned untouched.
type Rotate270 struct{}

func (Rotate270) Name() string { return "auto-rotate" }

func (Rotate270) Apply(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dy() <= b.Dx() {
		return img
	}

	src := toRGBA(img)
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// (x, y) -> (y, w-1-x)
			si := src.PixOffset(b.Min.X+x, b.Min.Y+y)
			di := dst.PixOffset(y, w-1-x)
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
	return dst
}

// Sharpen applies the 3x3 kernel
//
//	 0 -1  0
//	-1  5 -1
//	 0 -1  0
//
// Edge pixels reuse their nearest neighbour. Alpha is preserved.
type Sharpen struct{}

func (Sharpen) Name() string { return "sharpen" }

func (Sharpen) Apply(img image.Image) image.Image {
	src := toRGBA(img)
	b := src.Bounds()
	dst := image.NewRGBA(b)

	clampX := func(x int) int { return min(max(x, b.Min.X), b.Max.X-1) }
	clampY := func(y int) int { return min(max(y, b.Min.Y), b.Max.Y-1) }

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := src.RGBAAt(x, y)
			n := src.RGBAAt(x, clampY(y-1))
			s := src.RGBAAt(x, clampY(y+1))
			w := src.RGBAAt(clampX(x-1), y)
			e := src.RGBAAt(clampX(x+1), y)

			dst.SetRGBA(x, y, color.RGBA{
				R: clamp8(5*int(c.R) - int(n.R) - int(s.R) - int(w.R) - int(e.R)),
				G: clamp8(5*int(c.G) - int(n.G) - int(s.G) - int(w.G) - int(e.G)),
				B: clamp8(5*int(c.B) - int(n.B) - int(s.B) - int(w.B) - int(e.B)),
				A: c.A,
			})
		}
	}
	return dst
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)
	return rgba
}
