package analyzer

import (
	"errors"
	"image"
)

// ErrCellCorrupt marks a cell whose pixel data cannot be read.
var ErrCellCorrupt = errors.New("cell corrupt")

// Region is the outcome of classifying one cell.
type Region struct {
	Rect      image.Rectangle // padded box clamped to the cell, in scan coordinates; empty for blank cells
	Ink       image.Rectangle // tight box around ink pixels
	InkPixels int
}

// Empty reports whether the cell holds no usable ink.
func (r Region) Empty() bool {
	return r.Rect.Empty()
}

// Detector is the interface for cell classification strategies
type Detector interface {
	Detect(img image.Image) (Region, error)
}
