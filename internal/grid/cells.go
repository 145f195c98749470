package grid

import (
	"image"
	"image/color"
)

// Slice is a cell together with a view of its pixels.
type Slice struct {
	Cell  Cell
	Image image.Image
}

// Extractor cuts a scan into per-cell views according to a Model.
type Extractor struct {
	model *Model
	img   image.Image
}

// NewExtractor pairs a scan with its model. The image must not be modified
// while slices are in use.
func NewExtractor(img image.Image, m *Model) *Extractor {
	return &Extractor{model: m, img: img}
}

// Len is the number of slices Each and At produce.
func (e *Extractor) Len() int {
	return e.model.Len()
}

// At returns the i-th slice in row-major order.
func (e *Extractor) At(i int) Slice {
	c := e.model.cells[i]
	return Slice{Cell: c, Image: View(e.img, c.Rect)}
}

// Each calls fn for every slice in row-major order and stops early when fn
// returns false. It can be called any number of times.
func (e *Extractor) Each(fn func(Slice) bool) {
	for i := 0; i < e.Len(); i++ {
		if !fn(e.At(i)) {
			return
		}
	}
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// View returns the part of img inside r without copying pixels when the
// concrete image type allows it.
func View(img image.Image, r image.Rectangle) image.Image {
	r = r.Intersect(img.Bounds())
	if si, ok := img.(subImager); ok {
		return si.SubImage(r)
	}
	return &boundedImage{src: img, rect: r}
}

// boundedImage restricts an arbitrary image to a rectangle.
type boundedImage struct {
	src  image.Image
	rect image.Rectangle
}

func (b *boundedImage) ColorModel() color.Model {
	return b.src.ColorModel()
}

func (b *boundedImage) Bounds() image.Rectangle {
	return b.rect
}

func (b *boundedImage) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(b.rect)) {
		return color.Transparent
	}
	return b.src.At(x, y)
}
