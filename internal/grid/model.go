package grid

import (
	"fmt"
	"image"
	"math"
)

// DefaultTolerance is the accepted relative deviation between the scan's
// aspect ratio and the template's.
const DefaultTolerance = 0.05

// MinCellSide is the smallest usable cell interior, in image pixels.
const MinCellSide = 4

// Cell is one grid square mapped onto a concrete image.
type Cell struct {
	Row  int
	Col  int
	Rect image.Rectangle
}

// Index returns the row-major position of the cell.
func (c Cell) Index(cols int) int {
	return c.Row*cols + c.Col
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Model maps a template onto the bounds of a decoded scan.
// It is immutable once built and safe for concurrent use.
type Model struct {
	Template Template
	Bounds   image.Rectangle
	ScaleX   float64
	ScaleY   float64

	cells []Cell
}

// NewModel checks the scan against the template and computes every cell
// rectangle up front. A geometry mismatch is reported before any cell work.
func NewModel(bounds image.Rectangle, t Template, tolerance float64) (*Model, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidGeometry)
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	w, h := bounds.Dx(), bounds.Dy()
	aspect := float64(w) / float64(h)
	deviation := math.Abs(aspect/t.AspectRatio() - 1)
	if deviation > tolerance {
		return nil, fmt.Errorf("%w: image is %dx%d (aspect %.3f), template %s expects aspect %.3f (deviation %.1f%% > %.1f%%)",
			ErrInvalidGeometry, w, h, aspect, t.Version, t.AspectRatio(), deviation*100, tolerance*100)
	}

	m := &Model{
		Template: t,
		Bounds:   bounds,
		ScaleX:   float64(w) / float64(t.RefWidth),
		ScaleY:   float64(h) / float64(t.RefHeight),
		cells:    make([]Cell, 0, t.CellCount()),
	}

	insetX := int(math.Round(float64(t.LineExclusion) * m.ScaleX))
	insetY := int(math.Round(float64(t.LineExclusion) * m.ScaleY))

	for row := 0; row < t.Rows; row++ {
		for col := 0; col < t.Cols; col++ {
			rx, ry := t.cellOrigin(row, col)
			x0 := m.scaleX(rx)
			y0 := m.scaleY(ry)
			x1 := m.scaleX(rx + t.CellWidth)
			y1 := m.scaleY(ry + t.CellHeight)

			r := image.Rect(x0+insetX, y0+insetY, x1-insetX, y1-insetY)
			if r.Dx() < MinCellSide || r.Dy() < MinCellSide {
				return nil, fmt.Errorf("%w: image %dx%d is too small, cell (%d,%d) has no interior", ErrInvalidGeometry, w, h, row, col)
			}
			m.cells = append(m.cells, Cell{
				Row:  row,
				Col:  col,
				Rect: r.Add(bounds.Min),
			})
		}
	}

	return m, nil
}

// floor keeps the edge shared by neighbouring cells identical, so their
// half-open rectangles never overlap.
func (m *Model) scaleX(ref int) int {
	return int(math.Floor(float64(ref) * m.ScaleX))
}

func (m *Model) scaleY(ref int) int {
	return int(math.Floor(float64(ref) * m.ScaleY))
}

// Cells returns the cells in row-major order. The slice is a copy.
func (m *Model) Cells() []Cell {
	out := make([]Cell, len(m.cells))
	copy(out, m.cells)
	return out
}

// Cell returns the cell at (row, col).
func (m *Model) Cell(row, col int) (Cell, bool) {
	if row < 0 || row >= m.Template.Rows || col < 0 || col >= m.Template.Cols {
		return Cell{}, false
	}
	return m.cells[row*m.Template.Cols+col], true
}

// Len is the number of cells.
func (m *Model) Len() int {
	return len(m.cells)
}
