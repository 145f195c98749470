package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ivlev/glyphscan/internal/grid"
)

func TestDefaultValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if len(cfg.Glyphs) != 94 {
		t.Errorf("expected 94 default glyphs, got %d", len(cfg.Glyphs))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"threshold zero", func(c *Config) { c.Threshold = 0 }},
		{"threshold too high", func(c *Config) { c.Threshold = 256 }},
		{"min ink zero", func(c *Config) { c.MinInkPixels = 0 }},
		{"negative padding", func(c *Config) { c.Padding = -1 }},
		{"tolerance zero", func(c *Config) { c.Tolerance = 0 }},
		{"no workers", func(c *Config) { c.Workers = 0 }},
		{"bad format", func(c *Config) { c.Format = "gif" }},
		{"too many glyphs", func(c *Config) { c.Glyphs = make([]string, 200) }},
		{"broken template", func(c *Config) { c.Template.Rows = 10 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateNormalisesFormat(t *testing.T) {
	cfg := Default()
	cfg.Format = "JPG"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Format != "jpeg" {
		t.Errorf("expected jpeg, got %s", cfg.Format)
	}
}

func TestLoadTuningAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	data := `
detector:
  threshold: 160
  padding: 4
tolerance: 0.08
glyphs: [a, b, c]
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	tuning, err := LoadTuning(path)
	if err != nil {
		t.Fatalf("LoadTuning failed: %v", err)
	}

	cfg := Default()
	cfg.Padding = 30 // given on the command line
	cfg.Apply(tuning, map[string]bool{"padding": true})

	if cfg.Threshold != 160 {
		t.Errorf("threshold: expected 160, got %d", cfg.Threshold)
	}
	if cfg.Padding != 30 {
		t.Errorf("explicit padding must win, got %d", cfg.Padding)
	}
	if cfg.MinInkPixels != Default().MinInkPixels {
		t.Errorf("min ink should keep its default, got %d", cfg.MinInkPixels)
	}
	if cfg.Tolerance != 0.08 {
		t.Errorf("tolerance: expected 0.08, got %g", cfg.Tolerance)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, cfg.Glyphs); diff != "" {
		t.Errorf("glyphs mismatch (-want +got):\n%s", diff)
	}
	if cfg.Template != grid.DefaultTemplate {
		t.Error("template should stay the default")
	}
}

func TestLoadTuningRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("treshold: 10\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTuning(path); err == nil {
		t.Error("expected error for misspelled key")
	}
}

func TestWriteTuningRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Template = grid.Template{
		Version: "small", Rows: 2, Cols: 3, RefWidth: 320, RefHeight: 220,
		CellWidth: 100, CellHeight: 100, MarginLeft: 10, MarginTop: 10, MarginRight: 10, MarginBottom: 10,
		LineExclusion: 2,
	}
	cfg.Glyphs = []string{"x", "y"}

	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := WriteTuning(cfg, path); err != nil {
		t.Fatalf("WriteTuning failed: %v", err)
	}
	tuning, err := LoadTuning(path)
	if err != nil {
		t.Fatalf("LoadTuning failed: %v", err)
	}

	got := Default()
	got.Apply(tuning, nil)
	if diff := cmp.Diff(cfg.Template, got.Template); diff != "" {
		t.Errorf("template mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(cfg.Glyphs, got.Glyphs); diff != "" {
		t.Errorf("glyphs mismatch (-want +got):\n%s", diff)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("round-tripped config invalid: %v", err)
	}
}
