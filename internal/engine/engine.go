package engine

import (
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/glyphscan/internal/analyzer"
	"github.com/ivlev/glyphscan/internal/compose"
	"github.com/ivlev/glyphscan/internal/config"
	"github.com/ivlev/glyphscan/internal/effects"
	"github.com/ivlev/glyphscan/internal/grid"
	"github.com/ivlev/glyphscan/internal/manifest"
	"github.com/ivlev/glyphscan/internal/output"
	"github.com/ivlev/glyphscan/internal/source"
	"github.com/ivlev/glyphscan/internal/system"
)

// Pipeline turns one scanned sheet into per-cell glyph images.
type Pipeline struct {
	Config   *config.Config
	Source   source.Source
	Detector analyzer.Detector
	Filters  []effects.Filter
	Writer   output.Writer

	// Out receives progress lines; Logf receives warnings.
	Out  io.Writer
	Logf func(format string, args ...any)
}

func NewPipeline(cfg *config.Config, src source.Source, det analyzer.Detector, w output.Writer, filters ...effects.Filter) *Pipeline {
	return &Pipeline{
		Config:   cfg,
		Source:   src,
		Detector: det,
		Filters:  filters,
		Writer:   w,
		Out:      os.Stdout,
		Logf:     log.Printf,
	}
}

// CellFailure is a cell skipped because its pixels could not be read.
type CellFailure struct {
	Row, Col int
	Err      error
}

// WriteFailure is an artifact that could not be persisted.
type WriteFailure struct {
	Row, Col int
	Path     string
	Err      error
}

// Summary describes a finished run.
type Summary struct {
	Cells         int
	Detected      int // non-empty cells, written or not
	Written       int
	Empty         int
	Files         []string // written paths, row-major
	Skipped       []CellFailure
	WriteFailures []WriteFailure
	ManifestPath  string
	Elapsed       time.Duration
}

type cellState int

const (
	cellEmpty cellState = iota
	cellComposed
	cellWritten
	cellSkipped
	cellWriteFailed
)

type cellResult struct {
	state    cellState
	cell     grid.Cell
	artifact manifest.Glyph
	path     string
	err      error
}

// Run decodes the scan, checks its geometry and processes every cell.
// Fatal problems (decode, geometry, output directory) are returned before
// any cell is touched; per-cell problems are collected in the Summary.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	startTime := time.Now()
	cfg := p.Config

	if p.Out == nil {
		p.Out = io.Discard
	}
	if p.Logf == nil {
		p.Logf = func(string, ...any) {}
	}

	img, err := p.load()
	if err != nil {
		return nil, err
	}
	img, err = effects.Chain(img, p.Filters...)
	if err != nil {
		p.Logf("[!] Preprocessing skipped: %v", err)
	}

	model, err := grid.NewModel(img.Bounds(), cfg.Template, cfg.Tolerance)
	if err != nil {
		return nil, fmt.Errorf("geometry: %w", err)
	}

	if !cfg.DryRun {
		if err := p.Writer.Prepare(); err != nil {
			return nil, fmt.Errorf("output: %w", err)
		}
	}

	fmt.Fprintf(p.Out, "[*] Scan: %s | %dx%d px | template %s (%dx%d cells, scale %.3f) | filters: %s\n",
		cfg.InputPath, img.Bounds().Dx(), img.Bounds().Dy(), cfg.Template.Version,
		cfg.Template.Cols, cfg.Template.Rows, model.ScaleX, p.filterNames())

	extractor := grid.NewExtractor(img, model)
	composer := &compose.Composer{
		Rows:        cfg.Template.Rows,
		Cols:        cfg.Template.Cols,
		Format:      cfg.Format,
		Labels:      cfg.Glyphs,
		NameByGlyph: cfg.NameByGlyph,
		Pool:        system.NewImagePool(),
	}

	cellCount := extractor.Len()
	results := make([]cellResult, cellCount)

	numWorkers := cfg.Workers
	if numWorkers > cellCount {
		numWorkers = cellCount
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numWorkers)
	for i := 0; i < cellCount; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = p.processCell(gctx, extractor, composer, i)
			return nil
		})
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := p.summarize(results)

	if cfg.Manifest && !cfg.DryRun && summary.Written > 0 {
		if err := p.writeManifest(results); err != nil {
			p.Logf("[!] Could not write manifest: %v", err)
		} else {
			summary.ManifestPath = filepath.Join(cfg.OutputDir, manifest.FileName)
		}
	}

	summary.Elapsed = time.Since(startTime)
	p.report(summary)
	return summary, nil
}

func (p *Pipeline) load() (image.Image, error) {
	pages := p.Source.PageCount()
	if pages == 0 {
		return nil, fmt.Errorf("decode: %w: input has no pages", source.ErrDecode)
	}
	index := p.Config.Page - 1
	if index < 0 || index >= pages {
		return nil, fmt.Errorf("decode: %w: page %d requested, input has %d", source.ErrDecode, p.Config.Page, pages)
	}
	w, h, err := p.Source.GetPageDimensions(index)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	fmt.Fprintf(p.Out, "[*] Page %d of %d: %.0fx%.0f\n", index+1, pages, w, h)

	img, err := p.Source.RenderPage(index, p.Config.DPI)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}

func (p *Pipeline) filterNames() string {
	if len(p.Filters) == 0 {
		return "none"
	}
	names := make([]string, len(p.Filters))
	for i, f := range p.Filters {
		names[i] = f.Name()
	}
	return strings.Join(names, ", ")
}

// processCell walks one cell through slice, classify, crop and write.
// A panic anywhere in the cell is treated as corrupt pixel data.
func (p *Pipeline) processCell(ctx context.Context, ex *grid.Extractor, c *compose.Composer, i int) (res cellResult) {
	defer func() {
		if r := recover(); r != nil {
			res.state = cellSkipped
			res.err = fmt.Errorf("%w: %v", analyzer.ErrCellCorrupt, r)
		}
	}()

	slice := ex.At(i)
	res.cell = slice.Cell

	region, err := p.Detector.Detect(slice.Image)
	if err != nil {
		res.state = cellSkipped
		res.err = err
		return res
	}

	a, ok := c.Compose(slice, region)
	if !ok {
		res.state = cellEmpty
		return res
	}
	defer c.Release(a)

	res.artifact = manifest.Glyph{
		Row:       a.Row,
		Col:       a.Col,
		File:      a.Name,
		Label:     a.Label,
		Rect:      manifest.Rectangle{X: a.Rect.Min.X, Y: a.Rect.Min.Y, W: a.Rect.Dx(), H: a.Rect.Dy()},
		InkPixels: a.InkPixels,
	}

	if p.Config.DryRun {
		res.state = cellComposed
		return res
	}

	path, err := p.Writer.Write(ctx, a)
	res.path = path
	if err != nil {
		res.state = cellWriteFailed
		res.err = err
		return res
	}
	res.state = cellWritten
	return res
}

func (p *Pipeline) summarize(results []cellResult) *Summary {
	s := &Summary{Cells: len(results)}
	for _, r := range results {
		switch r.state {
		case cellEmpty:
			s.Empty++
		case cellComposed:
			s.Detected++
		case cellWritten:
			s.Detected++
			s.Written++
			s.Files = append(s.Files, r.path)
		case cellSkipped:
			s.Skipped = append(s.Skipped, CellFailure{Row: r.cell.Row, Col: r.cell.Col, Err: r.err})
			p.Logf("[!] Cell %v skipped: %v", r.cell, r.err)
		case cellWriteFailed:
			s.Detected++
			s.WriteFailures = append(s.WriteFailures, WriteFailure{Row: r.cell.Row, Col: r.cell.Col, Path: r.path, Err: r.err})
			p.Logf("[!] Cell %v not saved: %v", r.cell, r.err)
		}
	}
	return s
}

func (p *Pipeline) writeManifest(results []cellResult) error {
	cfg := p.Config
	m := &manifest.Manifest{
		Version:  "1",
		Template: cfg.Template.Version,
		Input:    filepath.Base(cfg.InputPath),
		Rows:     cfg.Template.Rows,
		Cols:     cfg.Template.Cols,
		Detector: manifest.Detector{
			Threshold:    uint8(cfg.Threshold),
			MinInkPixels: cfg.MinInkPixels,
			Padding:      cfg.Padding,
		},
	}
	for _, r := range results {
		if r.state == cellWritten {
			m.Glyphs = append(m.Glyphs, r.artifact)
		}
	}
	return manifest.Write(m, filepath.Join(cfg.OutputDir, manifest.FileName))
}

func (p *Pipeline) report(s *Summary) {
	if p.Config.DryRun {
		fmt.Fprintf(p.Out, "[*] Dry run: %d of %d cells hold a glyph, nothing written\n", s.Detected, s.Cells)
	} else {
		fmt.Fprintf(p.Out, "[*] Scan complete: %d glyphs written, %d empty cells\n", s.Written, s.Empty)
	}
	if len(s.Skipped) > 0 {
		p.Logf("[!] %d cells skipped", len(s.Skipped))
	}
	if len(s.WriteFailures) > 0 {
		p.Logf("[!] %d artifacts failed to write", len(s.WriteFailures))
	}

	if !p.Config.ShowStats {
		return
	}
	cellsPerSec := float64(s.Cells) / s.Elapsed.Seconds()
	ms := system.ReadMemoryStats()
	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.3fs\n"+
			"Cells/s: %.1f\n"+
			"Process RSS: %.1f MiB\n"+
			"Host Memory Used: %.1f%%\n"+
			"----------------------------\n",
		p.Config.BuildVersion, s.Elapsed.Seconds(), cellsPerSec,
		float64(ms.ProcessRSS)/(1<<20), ms.HostUsedPerc,
	)
	fmt.Fprint(p.Out, report)

	logEntry := fmt.Sprintf("[%s] Build: %s | Input: %s | Cells: %d | Written: %d | Total: %.3fs | RSS: %.1f MiB\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		filepath.Base(p.Config.InputPath),
		s.Cells,
		s.Written,
		s.Elapsed.Seconds(),
		float64(ms.ProcessRSS)/(1<<20),
	)

	f, err := os.OpenFile("benchmark.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		f.WriteString(logEntry)
		f.Close()
	} else {
		p.Logf("[!] Could not write benchmark.log: %v", err)
	}
}
