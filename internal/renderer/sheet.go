package renderer

import (
	"fmt"
	"image"
	"image/color"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"

	"github.com/ivlev/glyphscan/internal/grid"
)

var (
	paper = color.Gray{Y: 255}
	ink   = color.Gray{Y: 0}
)

// TagContent is the text encoded in the sheet's QR code.
func TagContent(t grid.Template) string {
	return fmt.Sprintf("glyphscan:%s:%dx%d", t.Version, t.Cols, t.Rows)
}

// RenderSheet draws the blank template at reference resolution. Grid lines
// are drawn inside each cell's line exclusion band, so a scan of an
// untouched sheet classifies every cell as empty. A QR tag naming the
// template goes into the bottom-right margin when it fits there.
func RenderSheet(t grid.Template) (*image.Gray, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	sheet := image.NewGray(image.Rect(0, 0, t.RefWidth, t.RefHeight))
	draw.Draw(sheet, sheet.Bounds(), image.NewUniform(paper), image.Point{}, draw.Src)

	m, err := grid.NewModel(sheet.Bounds(), t, grid.DefaultTolerance)
	if err != nil {
		return nil, err
	}
	for _, c := range m.Cells() {
		outer := c.Rect.Inset(-t.LineExclusion)
		drawFrame(sheet, outer, max(1, t.LineExclusion/2))
	}

	if err := drawTag(sheet, t); err != nil {
		return nil, err
	}
	return sheet, nil
}

// drawFrame draws a border of the given width just inside r.
func drawFrame(img draw.Image, r image.Rectangle, width int) {
	src := image.NewUniform(ink)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width),
		image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y),
		image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e, src, image.Point{}, draw.Src)
	}
}

// drawTag places the QR code in the bottom-right margin, leaving a quiet
// gap to the grid. Sheets whose margin is too thin get no tag.
func drawTag(sheet *image.Gray, t grid.Template) error {
	const gap = 8

	side := min(t.MarginBottom, t.MarginRight) - 2*gap
	if side < 64 {
		return nil
	}

	qr, err := qrcode.New(TagContent(t), qrcode.Medium)
	if err != nil {
		return fmt.Errorf("qr tag: %w", err)
	}
	qr.DisableBorder = true
	tag := qr.Image(side)

	b := sheet.Bounds()
	at := image.Rect(b.Max.X-gap-tag.Bounds().Dx(), b.Max.Y-gap-tag.Bounds().Dy(), b.Max.X-gap, b.Max.Y-gap)
	draw.Draw(sheet, at, tag, tag.Bounds().Min, draw.Src)
	return nil
}
