package grid

import (
	"errors"
	"fmt"
)

// ErrInvalidGeometry is returned when a scan cannot be mapped onto the
// template: wrong aspect ratio, too small, or a malformed template.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Template describes the reference sheet at its reference resolution.
// All lengths are in reference pixels.
type Template struct {
	Version       string `yaml:"version"`
	Rows          int    `yaml:"rows"`
	Cols          int    `yaml:"cols"`
	RefWidth      int    `yaml:"ref_width"`
	RefHeight     int    `yaml:"ref_height"`
	CellWidth     int    `yaml:"cell_width"`
	CellHeight    int    `yaml:"cell_height"`
	Gutter        int    `yaml:"gutter"` // space between neighbouring cells
	MarginLeft    int    `yaml:"margin_left"`
	MarginTop     int    `yaml:"margin_top"`
	MarginRight   int    `yaml:"margin_right"`
	MarginBottom  int    `yaml:"margin_bottom"`
	LineExclusion int    `yaml:"line_exclusion"` // trimmed from every cell side so grid lines never count as ink
}

// DefaultTemplate is the printed sheet: 12x9 cells, US Letter landscape at 300 DPI.
var DefaultTemplate = Template{
	Version:       "v1",
	Rows:          9,
	Cols:          12,
	RefWidth:      3300,
	RefHeight:     2550,
	CellWidth:     238,
	CellHeight:    238,
	Gutter:        0,
	MarginLeft:    222,
	MarginTop:     201,
	MarginRight:   222,
	MarginBottom:  207,
	LineExclusion: 6,
}

// Validate checks that the template is internally consistent.
func (t Template) Validate() error {
	if t.Rows <= 0 || t.Cols <= 0 {
		return fmt.Errorf("%w: template needs at least one row and column, got %dx%d", ErrInvalidGeometry, t.Cols, t.Rows)
	}
	if t.CellWidth <= 0 || t.CellHeight <= 0 {
		return fmt.Errorf("%w: non-positive cell size %dx%d", ErrInvalidGeometry, t.CellWidth, t.CellHeight)
	}
	if t.Gutter < 0 || t.LineExclusion < 0 ||
		t.MarginLeft < 0 || t.MarginTop < 0 || t.MarginRight < 0 || t.MarginBottom < 0 {
		return fmt.Errorf("%w: negative margin, gutter or line exclusion", ErrInvalidGeometry)
	}
	if 2*t.LineExclusion >= t.CellWidth || 2*t.LineExclusion >= t.CellHeight {
		return fmt.Errorf("%w: line exclusion %d leaves nothing of a %dx%d cell", ErrInvalidGeometry, t.LineExclusion, t.CellWidth, t.CellHeight)
	}

	w := t.MarginLeft + t.Cols*t.CellWidth + (t.Cols-1)*t.Gutter + t.MarginRight
	if w != t.RefWidth {
		return fmt.Errorf("%w: columns and margins add up to %d, reference width is %d", ErrInvalidGeometry, w, t.RefWidth)
	}
	h := t.MarginTop + t.Rows*t.CellHeight + (t.Rows-1)*t.Gutter + t.MarginBottom
	if h != t.RefHeight {
		return fmt.Errorf("%w: rows and margins add up to %d, reference height is %d", ErrInvalidGeometry, h, t.RefHeight)
	}
	return nil
}

// CellCount returns Rows*Cols.
func (t Template) CellCount() int {
	return t.Rows * t.Cols
}

// AspectRatio is RefWidth/RefHeight.
func (t Template) AspectRatio() float64 {
	return float64(t.RefWidth) / float64(t.RefHeight)
}

// cellOrigin returns the top-left corner of cell (row, col) in reference pixels.
func (t Template) cellOrigin(row, col int) (x, y int) {
	x = t.MarginLeft + col*(t.CellWidth+t.Gutter)
	y = t.MarginTop + row*(t.CellHeight+t.Gutter)
	return x, y
}
