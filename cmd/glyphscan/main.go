package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"os"
	"os/signal"
	"strings"

	"github.com/ivlev/glyphscan/internal/config"
	"github.com/ivlev/glyphscan/internal/effects"
	"github.com/ivlev/glyphscan/internal/engine"
	"github.com/ivlev/glyphscan/internal/output"
	"github.com/ivlev/glyphscan/internal/renderer"
	"github.com/ivlev/glyphscan/internal/source"
	"github.com/ivlev/glyphscan/internal/system"
)

const version = "0.3.0"

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	var err error
	switch command {
	case "scan":
		err = handleScan(args)
	case "template":
		err = handleTemplate(args)
	case "version":
		fmt.Printf("glyphscan version %s\n", version)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "[-] %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`glyphscan - cut a scanned handwriting sheet into one image per glyph

Usage: glyphscan <command> [options]

Commands:
  scan       Extract the filled cells of a scanned template sheet
  template   Render the blank template sheet for printing
  version    Show glyphscan version
  help       Show this help message

Print the sheet (glyphscan template -out sheet.png), fill in one letterform
per cell, scan it at 300 DPI and keep the page straight: skewed scans are
not corrected and crop poorly.

Examples:
  # Scan into ./glyphs
  glyphscan scan -input scan.jpeg -output glyphs

  # Lighter pencil: raise the ink threshold, name files by glyph
  glyphscan scan -input scan.png -output glyphs -threshold 210 -name-by-glyph

  # A PDF from a document scanner
  glyphscan scan -input scan.pdf -page 1 -dpi 300 -output glyphs

Run "glyphscan <command> -h" for the options of a command.`)
}

func handleScan(args []string) error {
	cfg := config.Default()
	cfg.Workers = system.DefaultWorkers()
	cfg.BuildVersion = version

	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	fs.StringVar(&cfg.InputPath, "input", "", "Scanned sheet: image (png, jpeg, gif, bmp, tiff, webp) or PDF (default: newest file in input/)")
	fs.StringVar(&cfg.OutputDir, "output", ".", "Directory the glyph images are written to (created if missing)")
	fs.StringVar(&cfg.ConfigPath, "config", "", "YAML tuning file (template, detector, tolerance, glyphs)")
	fs.IntVar(&cfg.Threshold, "threshold", cfg.Threshold, "Ink threshold: luminance 1-255, darker pixels count as ink")
	fs.IntVar(&cfg.MinInkPixels, "min-ink", cfg.MinInkPixels, "Minimum ink pixels for a cell to count as filled")
	fs.IntVar(&cfg.Padding, "padding", cfg.Padding, "Pixels of paper kept around the ink")
	fs.Float64Var(&cfg.Tolerance, "tolerance", cfg.Tolerance, "Accepted relative aspect ratio deviation from the template")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "Output format: png, jpeg, bmp, tiff")
	fs.IntVar(&cfg.JPEGQuality, "quality", cfg.JPEGQuality, "JPEG quality 1-100")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Parallel cell workers")
	fs.IntVar(&cfg.DPI, "dpi", cfg.DPI, "PDF rendering resolution")
	fs.IntVar(&cfg.Page, "page", cfg.Page, "PDF page to scan (1-based)")
	fs.BoolVar(&cfg.AutoRotate, "auto-rotate", false, "Turn portrait scans to landscape before scanning")
	fs.BoolVar(&cfg.Sharpen, "sharpen", false, "Sharpen the scan before scanning")
	fs.BoolVar(&cfg.Manifest, "manifest", cfg.Manifest, "Write manifest.yaml next to the glyphs")
	fs.BoolVar(&cfg.NameByGlyph, "name-by-glyph", false, "Append the glyph label to file names")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Classify cells and report, write nothing")
	fs.BoolVar(&cfg.ShowStats, "stats", false, "Print a performance report and append it to benchmark.log")
	positional := parseInterspersed(fs, args)

	explicit := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	// positionals fill whatever -input and -output left unset, in that order
	if !explicit["input"] && len(positional) > 0 {
		cfg.InputPath = positional[0]
		positional = positional[1:]
	}
	if !explicit["output"] && len(positional) > 0 {
		cfg.OutputDir = positional[0]
		positional = positional[1:]
	}
	if len(positional) > 0 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(positional, " "))
	}

	if cfg.ConfigPath != "" {
		tuning, err := config.LoadTuning(cfg.ConfigPath)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		cfg.Apply(tuning, explicit)
	}

	if cfg.InputPath == "" {
		latest, err := system.FindLatestFile("input", source.IsSupported)
		if err != nil {
			return fmt.Errorf("no -input given and no scan found: %w", err)
		}
		cfg.InputPath = latest
		fmt.Printf("[*] Selected scan: %s\n", cfg.InputPath)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	system.InitResourceLimits()

	src, err := source.Open(cfg.InputPath)
	if err != nil {
		return err
	}
	defer src.Close()

	var filters []effects.Filter
	if cfg.AutoRotate {
		filters = append(filters, effects.Rotate270{})
	}
	if cfg.Sharpen {
		filters = append(filters, effects.Sharpen{})
	}

	w := &output.DirWriter{Dir: cfg.OutputDir, Format: cfg.Format, JPEGQuality: cfg.JPEGQuality}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p := engine.NewPipeline(&cfg, src, cfg.Detector(), w, filters...)
	summary, err := p.Run(ctx)
	if err != nil {
		return err
	}

	if summary.Written > 0 {
		fmt.Printf("[+++] Done! %d glyphs in %s\n", summary.Written, cfg.OutputDir)
	}
	return nil
}

// parseInterspersed parses flags that may follow positional arguments,
// which flag.Parse alone stops at. Everything after "--" is positional.
func parseInterspersed(fs *flag.FlagSet, args []string) []string {
	var positional []string
	for {
		fs.Parse(args)
		rest := fs.Args()
		if len(rest) == 0 {
			return positional
		}
		if len(args) > len(rest) && args[len(args)-len(rest)-1] == "--" {
			return append(positional, rest...)
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

func handleTemplate(args []string) error {
	fs := flag.NewFlagSet("template", flag.ExitOnError)
	out := fs.String("out", "handwriting-scan-grid.png", "Where to write the sheet (PNG)")
	configPath := fs.String("config", "", "YAML tuning file with a custom template")
	writeConfig := fs.String("write-config", "", "Also write the effective tuning file here")
	fs.Parse(args)

	cfg := config.Default()
	if *configPath != "" {
		tuning, err := config.LoadTuning(*configPath)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		cfg.Apply(tuning, nil)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sheet, err := renderer.RenderSheet(cfg.Template)
	if err != nil {
		return err
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := png.Encode(f, sheet); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("[+++] Template %s (%dx%d cells) written to %s\n", cfg.Template.Version, cfg.Template.Cols, cfg.Template.Rows, *out)

	if *writeConfig != "" {
		if err := config.WriteTuning(cfg, *writeConfig); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("[*] Tuning file written to %s\n", *writeConfig)
	}
	return nil
}
