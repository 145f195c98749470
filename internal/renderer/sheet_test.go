package renderer

import (
	"image"
	"testing"

	"github.com/ivlev/glyphscan/internal/analyzer"
	"github.com/ivlev/glyphscan/internal/grid"
)

func TestRenderSheetCellsBlank(t *testing.T) {
	sheet, err := RenderSheet(grid.DefaultTemplate)
	if err != nil {
		t.Fatalf("RenderSheet failed: %v", err)
	}
	if sheet.Bounds() != image.Rect(0, 0, 3300, 2550) {
		t.Fatalf("unexpected sheet size %v", sheet.Bounds())
	}

	m, err := grid.NewModel(sheet.Bounds(), grid.DefaultTemplate, grid.DefaultTolerance)
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}
	det := &analyzer.InkDetector{Threshold: analyzer.DefaultThreshold, MinInkPixels: 1}
	ex := grid.NewExtractor(sheet, m)
	ex.Each(func(s grid.Slice) bool {
		region, err := det.Detect(s.Image)
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if !region.Empty() {
			t.Errorf("cell %v of a blank sheet has ink at %v", s.Cell, region.Ink)
		}
		return true
	})
}

func TestRenderSheetDrawsGridAndTag(t *testing.T) {
	tmpl := grid.DefaultTemplate
	sheet, err := RenderSheet(tmpl)
	if err != nil {
		t.Fatalf("RenderSheet failed: %v", err)
	}

	// top-left corner of the first cell frame
	if y := sheet.GrayAt(tmpl.MarginLeft, tmpl.MarginTop).Y; y != 0 {
		t.Errorf("expected grid line at cell corner, got %d", y)
	}

	// the QR tag sits in the bottom-right margin
	dark := 0
	for y := tmpl.RefHeight - tmpl.MarginBottom; y < tmpl.RefHeight; y++ {
		for x := tmpl.RefWidth - tmpl.MarginRight; x < tmpl.RefWidth; x++ {
			if sheet.GrayAt(x, y).Y < 128 {
				dark++
			}
		}
	}
	if dark == 0 {
		t.Error("expected QR tag pixels in the bottom-right margin")
	}
}

func TestTagContent(t *testing.T) {
	if got := TagContent(grid.DefaultTemplate); got != "glyphscan:v1:12x9" {
		t.Errorf("unexpected tag %q", got)
	}
}
