package analyzer

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func blankCell(r image.Rectangle) *image.Gray {
	img := image.NewGray(r)
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

func TestInkDetectorBlankCell(t *testing.T) {
	img := blankCell(image.Rect(0, 0, 80, 80))

	region, err := NewInkDetector().Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if !region.Empty() {
		t.Errorf("expected blank cell to be empty, got %v", region.Rect)
	}
}

func TestInkDetectorMinInkBoundary(t *testing.T) {
	const minInk = 10

	tests := []struct {
		inkPixels int
		wantEmpty bool
	}{
		{0, true},
		{minInk - 1, true},
		{minInk, false},
		{minInk + 1, false},
	}

	for _, tt := range tests {
		img := blankCell(image.Rect(0, 0, 50, 50))
		for i := 0; i < tt.inkPixels; i++ {
			img.SetGray(5+i, 20, color.Gray{Y: 0})
		}
		d := &InkDetector{Threshold: 128, MinInkPixels: minInk, Padding: 2}

		region, err := d.Detect(img)
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if region.Empty() != tt.wantEmpty {
			t.Errorf("%d ink pixels: expected empty=%v, got %v", tt.inkPixels, tt.wantEmpty, region.Empty())
		}
		if region.InkPixels != tt.inkPixels {
			t.Errorf("expected %d ink pixels counted, got %d", tt.inkPixels, region.InkPixels)
		}
	}
}

func TestInkDetectorThresholdTie(t *testing.T) {
	img := blankCell(image.Rect(0, 0, 20, 20))
	for x := 0; x < 10; x++ {
		img.SetGray(x, 3, color.Gray{Y: 100})
	}
	d := &InkDetector{Threshold: 100, MinInkPixels: 1}

	region, err := d.Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if !region.Empty() {
		t.Error("pixels equal to the threshold must count as background")
	}

	d.Threshold = 101
	region, _ = d.Detect(img)
	if region.Empty() || region.InkPixels != 10 {
		t.Errorf("expected 10 ink pixels just below threshold, got %d", region.InkPixels)
	}
}

func TestInkDetectorPaddingAndClamp(t *testing.T) {
	cell := image.Rect(100, 200, 180, 280)

	tests := []struct {
		name    string
		ink     image.Rectangle
		padding int
		want    image.Rectangle
	}{
		{"centered", image.Rect(130, 230, 140, 240), 5, image.Rect(125, 225, 145, 245)},
		{"touching top-left", image.Rect(100, 200, 110, 210), 5, image.Rect(100, 200, 115, 215)},
		{"near bottom-right", image.Rect(170, 270, 178, 279), 5, image.Rect(165, 265, 180, 280)},
		{"huge padding", image.Rect(130, 230, 140, 240), 500, cell},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := blankCell(cell)
			for y := tt.ink.Min.Y; y < tt.ink.Max.Y; y++ {
				for x := tt.ink.Min.X; x < tt.ink.Max.X; x++ {
					img.SetGray(x, y, color.Gray{Y: 10})
				}
			}
			d := &InkDetector{Threshold: DefaultThreshold, MinInkPixels: 1, Padding: tt.padding}

			region, err := d.Detect(img)
			if err != nil {
				t.Fatalf("Detect failed: %v", err)
			}
			if region.Ink != tt.ink {
				t.Errorf("ink box: expected %v, got %v", tt.ink, region.Ink)
			}
			if region.Rect != tt.want {
				t.Errorf("padded box: expected %v, got %v", tt.want, region.Rect)
			}
			if !region.Rect.In(cell) {
				t.Errorf("padded box %v exceeds cell %v", region.Rect, cell)
			}
		})
	}
}

func TestInkDetectorColorInput(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 30, 30))
	for i := range img.Pix {
		img.Pix[i] = 250
	}
	// dark blue pencil stroke
	for y := 10; y < 20; y++ {
		img.Set(15, y, color.RGBA{R: 20, G: 30, B: 120, A: 255})
	}

	region, err := (&InkDetector{Threshold: DefaultThreshold, MinInkPixels: 5}).Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if region.Ink != image.Rect(15, 10, 16, 20) {
		t.Errorf("unexpected ink box %v", region.Ink)
	}
}

func TestInkDetectorCorruptBuffer(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	img.Pix = img.Pix[:len(img.Pix)/2]

	_, err := NewInkDetector().Detect(img)
	if !errors.Is(err, ErrCellCorrupt) {
		t.Fatalf("expected ErrCellCorrupt, got %v", err)
	}
}

func TestInkDetectorRecoversPanic(t *testing.T) {
	img := image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{color.White})
	img.Pix[5] = 9 // index outside the palette

	_, err := NewInkDetector().Detect(img)
	if !errors.Is(err, ErrCellCorrupt) {
		t.Fatalf("expected ErrCellCorrupt, got %v", err)
	}
}
