package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/glyphscan/internal/analyzer"
	"github.com/ivlev/glyphscan/internal/grid"
	"github.com/ivlev/glyphscan/internal/output"
)

type Config struct {
	InputPath    string
	OutputDir    string
	ConfigPath   string
	Page         int // 1-based, PDF input only
	DPI          int // PDF rendering resolution
	Template     grid.Template
	Tolerance    float64
	Threshold    int
	MinInkPixels int
	Padding      int
	Format       string
	JPEGQuality  int
	Workers      int
	Glyphs       []string
	AutoRotate   bool
	Sharpen      bool
	Manifest     bool
	NameByGlyph  bool
	DryRun       bool
	ShowStats    bool
	BuildVersion string
}

// Default returns the settings the printed template was designed for.
func Default() Config {
	return Config{
		OutputDir:    ".",
		Page:         1,
		DPI:          300,
		Template:     grid.DefaultTemplate,
		Tolerance:    grid.DefaultTolerance,
		Threshold:    analyzer.DefaultThreshold,
		MinInkPixels: analyzer.DefaultMinInkPixels,
		Padding:      analyzer.DefaultPadding,
		Format:       "png",
		JPEGQuality:  95,
		Workers:      1,
		Glyphs:       DefaultGlyphs(),
		Manifest:     true,
	}
}

// DefaultGlyphs is the fill order printed on the default sheet: lower case,
// upper case, digits, then ASCII punctuation. Remaining cells are free.
func DefaultGlyphs() []string {
	var glyphs []string
	for r := 'a'; r <= 'z'; r++ {
		glyphs = append(glyphs, string(r))
	}
	for r := 'A'; r <= 'Z'; r++ {
		glyphs = append(glyphs, string(r))
	}
	for r := '0'; r <= '9'; r++ {
		glyphs = append(glyphs, string(r))
	}
	for _, r := range "!@#$%^&*()_-+=,./;'[]\\<>?:\"{}|`~" {
		glyphs = append(glyphs, string(r))
	}
	return glyphs
}

// Validate checks ranges and normalises the output format.
func (c *Config) Validate() error {
	if err := c.Template.Validate(); err != nil {
		return fmt.Errorf("template: %w", err)
	}
	if c.Threshold < 1 || c.Threshold > 255 {
		return fmt.Errorf("threshold must be between 1 and 255, got %d", c.Threshold)
	}
	if c.MinInkPixels < 1 {
		return fmt.Errorf("min-ink must be at least 1, got %d", c.MinInkPixels)
	}
	if c.Padding < 0 {
		return fmt.Errorf("padding must not be negative, got %d", c.Padding)
	}
	if c.Tolerance <= 0 || c.Tolerance >= 1 {
		return fmt.Errorf("tolerance must be in (0, 1), got %g", c.Tolerance)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Page < 1 {
		return fmt.Errorf("page must be at least 1, got %d", c.Page)
	}
	if c.DPI < 1 {
		return fmt.Errorf("dpi must be positive, got %d", c.DPI)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("quality must be between 1 and 100, got %d", c.JPEGQuality)
	}
	if len(c.Glyphs) > c.Template.CellCount() {
		return fmt.Errorf("%d glyph labels for %d cells", len(c.Glyphs), c.Template.CellCount())
	}
	format, err := output.NormalizeFormat(c.Format)
	if err != nil {
		return err
	}
	c.Format = format
	return nil
}

// Detector builds the ink detector described by the config.
func (c *Config) Detector() *analyzer.InkDetector {
	return &analyzer.InkDetector{
		Threshold:    uint8(c.Threshold),
		MinInkPixels: c.MinInkPixels,
		Padding:      c.Padding,
	}
}

// Tuning is the YAML tuning file. Absent keys keep their defaults.
type Tuning struct {
	Template  *grid.Template  `yaml:"template"`
	Detector  *DetectorTuning `yaml:"detector"`
	Tolerance *float64        `yaml:"tolerance"`
	Glyphs    []string        `yaml:"glyphs"`
}

type DetectorTuning struct {
	Threshold    *int `yaml:"threshold"`      // luminance 0-255
	MinInkPixels *int `yaml:"min_ink_pixels"` // pixels
	Padding      *int `yaml:"padding"`        // pixels
}

// LoadTuning reads a tuning file.
func LoadTuning(path string) (*Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var t Tuning
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &t, nil
}

// WriteTuning writes the tuning file equivalent of c.
func WriteTuning(c Config, path string) error {
	tmpl := c.Template
	t := Tuning{
		Template:  &tmpl,
		Detector:  &DetectorTuning{Threshold: &c.Threshold, MinInkPixels: &c.MinInkPixels, Padding: &c.Padding},
		Tolerance: &c.Tolerance,
		Glyphs:    c.Glyphs,
	}
	data, err := yaml.Marshal(&t)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Apply merges t into c. Settings named in explicit (by flag name) were
// given on the command line and win over the file.
func (c *Config) Apply(t *Tuning, explicit map[string]bool) {
	if t == nil {
		return
	}
	if t.Template != nil {
		c.Template = *t.Template
		// a custom sheet has its own fill order
		c.Glyphs = nil
	}
	if t.Glyphs != nil {
		c.Glyphs = t.Glyphs
	}
	if t.Tolerance != nil && !explicit["tolerance"] {
		c.Tolerance = *t.Tolerance
	}
	if d := t.Detector; d != nil {
		if d.Threshold != nil && !explicit["threshold"] {
			c.Threshold = *d.Threshold
		}
		if d.MinInkPixels != nil && !explicit["min-ink"] {
			c.MinInkPixels = *d.MinInkPixels
		}
		if d.Padding != nil && !explicit["padding"] {
			c.Padding = *d.Padding
		}
	}
}
