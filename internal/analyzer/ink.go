package analyzer

import (
	"fmt"
	"image"
	"image/color"
)

const (
	// DefaultThreshold is the luminance (0-255) below which a pixel is ink.
	DefaultThreshold = 190
	// DefaultMinInkPixels is the ink pixel count below which a cell is blank.
	DefaultMinInkPixels = 40
	// DefaultPadding is the margin in pixels added around the ink box.
	DefaultPadding = 12
)

// InkDetector classifies cells by counting pixels darker than a fixed
// luminance threshold.
type InkDetector struct {
	Threshold    uint8 // luminance, 0-255; a pixel is ink iff its luminance is strictly below
	MinInkPixels int   // pixels; fewer ink pixels than this means the cell is empty
	Padding      int   // pixels added on every side of the ink box
}

// NewInkDetector creates a detector with default settings
func NewInkDetector() *InkDetector {
	return &InkDetector{
		Threshold:    DefaultThreshold,
		MinInkPixels: DefaultMinInkPixels,
		Padding:      DefaultPadding,
	}
}

// Detect finds the ink bounding box of a cell image.
func (d *InkDetector) Detect(img image.Image) (region Region, err error) {
	defer func() {
		if r := recover(); r != nil {
			region = Region{}
			err = fmt.Errorf("%w: %v", ErrCellCorrupt, r)
		}
	}()

	if err := CheckBuffer(img); err != nil {
		return Region{}, err
	}

	bounds := img.Bounds()
	minX, minY := bounds.Max.X, bounds.Max.Y
	maxX, maxY := bounds.Min.X-1, bounds.Min.Y-1
	count := 0

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if luminance(img, x, y) >= d.Threshold {
				continue
			}
			count++
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	minInk := d.MinInkPixels
	if minInk < 1 {
		minInk = 1
	}
	if count < minInk {
		return Region{InkPixels: count}, nil
	}

	ink := image.Rect(minX, minY, maxX+1, maxY+1)
	return Region{
		Rect:      ink.Inset(-d.Padding).Intersect(bounds),
		Ink:       ink,
		InkPixels: count,
	}, nil
}

// luminance returns the 0-255 gray level of a pixel.
func luminance(img image.Image, x, y int) uint8 {
	switch m := img.(type) {
	case *image.Gray:
		return m.GrayAt(x, y).Y
	default:
		return color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
	}
}

// CheckBuffer rejects images whose backing slices are shorter than their
// bounds claim, which happens with truncated decodes.
func CheckBuffer(img image.Image) error {
	b := img.Bounds()
	if b.Empty() {
		return fmt.Errorf("%w: empty bounds %v", ErrCellCorrupt, b)
	}
	last := image.Point{X: b.Max.X - 1, Y: b.Max.Y - 1}

	var have, need int
	switch m := img.(type) {
	case *image.RGBA:
		have, need = len(m.Pix), m.PixOffset(last.X, last.Y)+4
	case *image.NRGBA:
		have, need = len(m.Pix), m.PixOffset(last.X, last.Y)+4
	case *image.RGBA64:
		have, need = len(m.Pix), m.PixOffset(last.X, last.Y)+8
	case *image.NRGBA64:
		have, need = len(m.Pix), m.PixOffset(last.X, last.Y)+8
	case *image.Gray:
		have, need = len(m.Pix), m.PixOffset(last.X, last.Y)+1
	case *image.Gray16:
		have, need = len(m.Pix), m.PixOffset(last.X, last.Y)+2
	case *image.CMYK:
		have, need = len(m.Pix), m.PixOffset(last.X, last.Y)+4
	case *image.Paletted:
		if len(m.Palette) == 0 {
			return fmt.Errorf("%w: paletted image without palette", ErrCellCorrupt)
		}
		have, need = len(m.Pix), m.PixOffset(last.X, last.Y)+1
	case *image.YCbCr:
		have, need = len(m.Y), m.YOffset(last.X, last.Y)+1
		if have >= need {
			have, need = len(m.Cb), m.COffset(last.X, last.Y)+1
		}
	default:
		return nil
	}
	if have < need {
		return fmt.Errorf("%w: pixel buffer holds %d bytes, bounds %v need %d", ErrCellCorrupt, have, b, need)
	}
	return nil
}
