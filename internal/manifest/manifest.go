package manifest

import (
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// FileName is the manifest's name inside the output directory.
const FileName = "manifest.yaml"

// Manifest indexes the glyph images written by one scan.
type Manifest struct {
	Version  string   `yaml:"version"`
	Template string   `yaml:"template"`
	Input    string   `yaml:"input"`
	Rows     int      `yaml:"rows"`
	Cols     int      `yaml:"cols"`
	Detector Detector `yaml:"detector"`
	Glyphs   []Glyph  `yaml:"glyphs"`
}

// Detector records the thresholds the glyphs were extracted with.
type Detector struct {
	Threshold    uint8 `yaml:"threshold"`
	MinInkPixels int   `yaml:"min_ink_pixels"`
	Padding      int   `yaml:"padding"`
}

// Glyph is one written cell.
type Glyph struct {
	Row       int       `yaml:"row"`
	Col       int       `yaml:"col"`
	File      string    `yaml:"file"`
	Label     string    `yaml:"label,omitempty"`
	Rect      Rectangle `yaml:"rect"` // crop rectangle in scan pixels
	InkPixels int       `yaml:"ink_pixels"`
}

// Rectangle represents a bounding box
type Rectangle struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

// Sort orders glyphs row-major.
func (m *Manifest) Sort() {
	sort.Slice(m.Glyphs, func(i, j int) bool {
		if m.Glyphs[i].Row != m.Glyphs[j].Row {
			return m.Glyphs[i].Row < m.Glyphs[j].Row
		}
		return m.Glyphs[i].Col < m.Glyphs[j].Col
	})
}

// Write sorts the manifest and writes it as YAML.
func Write(m *Manifest, path string) error {
	m.Sort()
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Read reads a manifest from a YAML file
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	return &m, nil
}
