package output

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/ivlev/glyphscan/internal/compose"
)

// ErrOutputWrite marks a failure to persist one artifact.
var ErrOutputWrite = errors.New("output write error")

// WriteError reports which artifact could not be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) Is(target error) bool { return target == ErrOutputWrite }

// Formats lists the supported output encodings.
var Formats = []string{"png", "jpeg", "bmp", "tiff"}

// NormalizeFormat maps aliases such as "jpg" or "TIF" onto Formats.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "png", "":
		return "png", nil
	case "jpg", "jpeg":
		return "jpeg", nil
	case "bmp":
		return "bmp", nil
	case "tif", "tiff":
		return "tiff", nil
	default:
		return "", fmt.Errorf("unsupported output format %q (supported: %s)", format, strings.Join(Formats, ", "))
	}
}

type Writer interface {
	Prepare() error
	Write(ctx context.Context, a *compose.Artifact) (string, error)
}

// DirWriter encodes artifacts into files inside Dir.
type DirWriter struct {
	Dir         string
	Format      string
	JPEGQuality int
}

// Prepare creates the output directory. A failure here is fatal for the run.
func (w *DirWriter) Prepare() error {
	fi, err := os.Stat(w.Dir)
	if err == nil && !fi.IsDir() {
		return fmt.Errorf("output path %s is not a directory", w.Dir)
	}
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	// Probe writability now rather than failing on every cell later.
	probe, err := os.CreateTemp(w.Dir, ".glyphscan-probe-*")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", w.Dir, err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}

// Write encodes a into Dir/a.Name via a temporary file and a rename, so a
// failed write never leaves a truncated image behind.
func (w *DirWriter) Write(ctx context.Context, a *compose.Artifact) (string, error) {
	path := filepath.Join(w.Dir, a.Name)
	if err := ctx.Err(); err != nil {
		return path, &WriteError{Path: path, Err: err}
	}
	if a.Image == nil {
		return path, &WriteError{Path: path, Err: errors.New("artifact has no pixels")}
	}

	tmp, err := os.CreateTemp(w.Dir, ".glyphscan-*")
	if err != nil {
		return path, &WriteError{Path: path, Err: err}
	}
	tmpName := tmp.Name()

	// CreateTemp opens owner-only; glyphs get the same mode as the manifest.
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return path, &WriteError{Path: path, Err: err}
	}
	if err := w.encode(tmp, a.Image); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return path, &WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return path, &WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return path, &WriteError{Path: path, Err: err}
	}
	return path, nil
}

func (w *DirWriter) encode(out io.Writer, img image.Image) error {
	switch w.Format {
	case "png", "":
		return png.Encode(out, img)
	case "jpeg":
		q := w.JPEGQuality
		if q <= 0 {
			q = 95
		}
		return jpeg.Encode(out, img, &jpeg.Options{Quality: q})
	case "bmp":
		return bmp.Encode(out, img)
	case "tiff":
		return tiff.Encode(out, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("unsupported output format %q", w.Format)
	}
}
