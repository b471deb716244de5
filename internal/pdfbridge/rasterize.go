package pdfbridge

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/AnyUserName/imgfit-cli/internal/compositor"
	"github.com/AnyUserName/imgfit-cli/internal/converr"
)

// DefaultDPI renders one PDF point as one pixel.
const DefaultDPI = 72

// Rasterizer renders the first page of a PDF file to a PNG file.
type Rasterizer interface {
	// Name returns the tool name (e.g. "pdftoppm").
	Name() string

	// Available returns true if the tool is installed.
	Available() bool

	// RenderFirstPage writes page 1 of pdfPath at dpi to outPNG.
	RenderFirstPage(pdfPath, outPNG string, dpi int) error
}

// Rasterizers lists the external tools tried, in order of preference.
var Rasterizers = []Rasterizer{
	&Pdftoppm{},
	&Mutool{},
}

// Pdftoppm renders pages with poppler's pdftoppm.
// Install: brew install poppler / apt install poppler-utils
type Pdftoppm struct {
	once sync.Once
	path string
}

func (r *Pdftoppm) Name() string { return "pdftoppm" }

func (r *Pdftoppm) Available() bool {
	r.once.Do(func() {
		if p, err := exec.LookPath("pdftoppm"); err == nil {
			r.path = p
		}
	})
	return r.path != ""
}

func (r *Pdftoppm) RenderFirstPage(pdfPath, outPNG string, dpi int) error {
	if !r.Available() {
		return fmt.Errorf("pdftoppm not found in PATH; install with: apt install poppler-utils")
	}
	// pdftoppm appends ".png" to the output root when -singlefile is set.
	root := strings.TrimSuffix(outPNG, ".png")
	cmd := exec.Command(r.path,
		"-f", "1", "-l", "1",
		"-r", strconv.Itoa(dpi),
		"-png", "-singlefile",
		pdfPath,
		root,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Mutool renders pages with MuPDF's mutool.
// Install: brew install mupdf-tools / apt install mupdf-tools
type Mutool struct {
	once sync.Once
	path string
}

func (r *Mutool) Name() string { return "mutool" }

func (r *Mutool) Available() bool {
	r.once.Do(func() {
		if p, err := exec.LookPath("mutool"); err == nil {
			r.path = p
		}
	})
	return r.path != ""
}

func (r *Mutool) RenderFirstPage(pdfPath, outPNG string, dpi int) error {
	if !r.Available() {
		return fmt.Errorf("mutool not found in PATH; install with: apt install mupdf-tools")
	}
	cmd := exec.Command(r.path, "draw", "-q",
		"-r", strconv.Itoa(dpi),
		"-o", outPNG,
		pdfPath,
		"1",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("mutool: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// FindRasterizer returns the first installed rasterizer, or nil.
func FindRasterizer() Rasterizer {
	for _, r := range Rasterizers {
		if r.Available() {
			return r
		}
	}
	return nil
}

// RasterOptions control PDF → raster conversion.
type RasterOptions struct {
	DPI        int        // 0 means DefaultDPI
	Rasterizer Rasterizer // nil picks the first installed one
}

// Rasterize renders page 1 of the PDF in data. The document is validated
// first, so malformed or page-less input fails before any tool runs.
func Rasterize(data []byte, name string, opts RasterOptions) (image.Image, Info, error) {
	info, err := Inspect(data, name)
	if err != nil {
		return nil, Info{}, err
	}

	dpi := opts.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	rz := opts.Rasterizer
	if rz == nil {
		rz = FindRasterizer()
	}
	if rz == nil {
		names := make([]string, len(Rasterizers))
		for i, r := range Rasterizers {
			names[i] = r.Name()
		}
		return nil, info, converr.Decode(name,
			fmt.Errorf("no PDF rasterizer installed (tried %s)", strings.Join(names, ", ")))
	}

	dir, err := os.MkdirTemp("", "imgfit_raster_*")
	if err != nil {
		return nil, info, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	srcPath := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(srcPath, data, 0o600); err != nil {
		return nil, info, fmt.Errorf("write temp pdf: %w", err)
	}
	outPath := filepath.Join(dir, "page.png")

	slog.Debug("rasterizing pdf", "source", name, "tool", rz.Name(), "dpi", dpi,
		"pages", info.Pages, "page_pt", fmt.Sprintf("%.0fx%.0f", info.PageWidth, info.PageHeight))

	if err := rz.RenderFirstPage(srcPath, outPath, dpi); err != nil {
		return nil, info, converr.Decode(name, err)
	}

	img, _, err := compositor.DecodeFile(outPath)
	if err != nil {
		return nil, info, converr.Decode(name, fmt.Errorf("read rendered page: %w", err))
	}
	return img, info, nil
}

// RasterizeFile is Rasterize for a PDF on disk.
func RasterizeFile(path string, opts RasterOptions) (image.Image, Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Info{}, converr.Decode(path, err)
	}
	return Rasterize(data, path, opts)
}
