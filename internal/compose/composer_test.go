package compose

import (
	"image"
	"image/color"
	"testing"

	"github.com/ivlev/glyphscan/internal/analyzer"
	"github.com/ivlev/glyphscan/internal/grid"
	"github.com/ivlev/glyphscan/internal/system"
)

func TestFileName(t *testing.T) {
	tests := []struct {
		rows, cols  int
		row, col    int
		label       string
		nameByGlyph bool
		want        string
	}{
		{9, 12, 2, 3, "", false, "r02_c03.png"},
		{9, 12, 8, 11, "z", false, "r08_c11.png"},
		{9, 12, 0, 0, "a", true, "r00_c00_a.png"},
		{9, 12, 0, 1, "!", true, "r00_c01_U+0021.png"},
		{120, 4, 7, 2, "", false, "r007_c002.png"},
	}

	for _, tt := range tests {
		c := &Composer{Rows: tt.rows, Cols: tt.cols, Format: "png", NameByGlyph: tt.nameByGlyph}
		if got := c.FileName(tt.row, tt.col, tt.label); got != tt.want {
			t.Errorf("FileName(%d,%d,%q) = %q, want %q", tt.row, tt.col, tt.label, got, tt.want)
		}
	}
}

func TestSanitizeLabel(t *testing.T) {
	tests := map[string]string{
		"A":    "A",
		"my_g": "my_g",
		"/":    "U+002F",
		"é":    "U+00E9",
		"a.b":  "aU+002Eb",
	}
	for in, want := range tests {
		if got := SanitizeLabel(in); got != want {
			t.Errorf("SanitizeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestComposeCropsOriginalPixels(t *testing.T) {
	scan := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for i := range scan.Pix {
		scan.Pix[i] = 255
	}
	gray := color.RGBA{R: 150, G: 150, B: 150, A: 255}
	scan.SetRGBA(40, 50, gray)

	cell := grid.Cell{Row: 1, Col: 2, Rect: image.Rect(30, 30, 70, 70)}
	slice := grid.Slice{Cell: cell, Image: scan.SubImage(cell.Rect)}
	region := analyzer.Region{Rect: image.Rect(38, 48, 43, 53), Ink: image.Rect(40, 50, 41, 51), InkPixels: 1}

	c := &Composer{Rows: 3, Cols: 4, Format: "png", Labels: []string{"a", "b", "c", "d", "e", "f", "g"}, Pool: system.NewImagePool()}
	a, ok := c.Compose(slice, region)
	if !ok {
		t.Fatal("expected an artifact")
	}

	if a.Name != "r01_c02.png" || a.Label != "g" {
		t.Errorf("unexpected name/label %q/%q", a.Name, a.Label)
	}
	if a.Image.Bounds() != image.Rect(0, 0, 5, 5) {
		t.Fatalf("expected 5x5 crop at origin, got %v", a.Image.Bounds())
	}
	if got := a.Image.RGBAAt(2, 2); got != gray {
		t.Errorf("expected unbinarised gray pixel, got %v", got)
	}
	if got := a.Image.RGBAAt(0, 0); got.R != 255 {
		t.Errorf("expected paper around the ink, got %v", got)
	}

	c.Release(a)
	if a.Image != nil {
		t.Error("Release should drop the buffer")
	}
}

func TestComposeEmptyRegion(t *testing.T) {
	scan := image.NewGray(image.Rect(0, 0, 10, 10))
	slice := grid.Slice{Cell: grid.Cell{Rect: scan.Bounds()}, Image: scan}

	c := &Composer{Rows: 1, Cols: 1, Format: "png"}
	if a, ok := c.Compose(slice, analyzer.Region{InkPixels: 3}); ok || a != nil {
		t.Error("empty region must not produce an artifact")
	}
}
