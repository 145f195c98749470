package compose

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"golang.org/x/image/draw"

	"github.com/ivlev/glyphscan/internal/analyzer"
	"github.com/ivlev/glyphscan/internal/grid"
	"github.com/ivlev/glyphscan/internal/system"
)

// Artifact is one cropped glyph ready to be written.
type Artifact struct {
	Row       int
	Col       int
	Name      string          // file name, no directory
	Label     string          // glyph label from the tuning file, may be empty
	Rect      image.Rectangle // crop rectangle in scan coordinates
	InkPixels int
	Image     *image.RGBA // origin at (0,0)
}

// Composer turns classified cells into artifacts. It does no I/O.
type Composer struct {
	Rows        int
	Cols        int
	Format      string   // file extension without the dot
	Labels      []string // glyph labels in row-major order
	NameByGlyph bool
	Pool        *system.ImagePool
}

// Compose crops the original cell pixels to region. Empty regions yield
// no artifact.
func (c *Composer) Compose(s grid.Slice, region analyzer.Region) (*Artifact, bool) {
	if region.Empty() {
		return nil, false
	}

	r := region.Rect.Intersect(s.Image.Bounds())
	if r.Empty() {
		return nil, false
	}

	dst := c.Pool.Get(r.Dx(), r.Dy())
	draw.Copy(dst, image.Point{}, s.Image, r, draw.Src, nil)

	label := c.label(s.Cell)
	return &Artifact{
		Row:       s.Cell.Row,
		Col:       s.Cell.Col,
		Name:      c.FileName(s.Cell.Row, s.Cell.Col, label),
		Label:     label,
		Rect:      r,
		InkPixels: region.InkPixels,
		Image:     dst,
	}, true
}

// Release returns the artifact's pixel buffer to the pool. The artifact
// must not be used afterwards.
func (c *Composer) Release(a *Artifact) {
	if a == nil {
		return
	}
	c.Pool.Put(a.Image)
	a.Image = nil
}

// FileName builds r{row}_c{col}[_{label}].{ext} with zero padded indices.
func (c *Composer) FileName(row, col int, label string) string {
	width := max(2, len(strconv.Itoa(max(c.Rows, c.Cols)-1)))
	name := fmt.Sprintf("r%0*d_c%0*d", width, row, width, col)
	if c.NameByGlyph && label != "" {
		name += "_" + SanitizeLabel(label)
	}
	return name + "." + c.Format
}

func (c *Composer) label(cell grid.Cell) string {
	i := cell.Index(c.Cols)
	if i < 0 || i >= len(c.Labels) {
		return ""
	}
	return c.Labels[i]
}

// SanitizeLabel keeps ASCII letters, digits, '-' and '_' and spells every
// other rune as U+XXXX, so any glyph label is a portable file name part.
func SanitizeLabel(label string) string {
	var sb strings.Builder
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			fmt.Fprintf(&sb, "U+%04X", r)
		}
	}
	return sb.String()
}
