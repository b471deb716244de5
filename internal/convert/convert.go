// Package convert routes a source file to the right conversion path and
// returns a size-bounded artifact in the requested format.
//
// Raster sources are composited over white and budget-encoded. PDF sources
// have their first page rasterized first; for raster targets that page is
// encoded in the page sub-format. PDF targets wrap the raster in a one-page
// document at a fixed JPEG quality.
package convert

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strings"

	"github.com/AnyUserName/imgfit-cli/internal/budget"
	"github.com/AnyUserName/imgfit-cli/internal/compositor"
	"github.com/AnyUserName/imgfit-cli/internal/converr"
	"github.com/AnyUserName/imgfit-cli/internal/encoder"
	"github.com/AnyUserName/imgfit-cli/internal/pdfbridge"
	"github.com/AnyUserName/imgfit-cli/internal/profile"
)

// Format is a target format token.
type Format string

const (
	FormatJPEG Format = "jpg"
	FormatPNG  Format = "png"
	FormatPDF  Format = "pdf"
)

// ParseFormat normalizes a user token ("jpg", "JPEG", ".png", "pdf").
func ParseFormat(token string) (Format, error) {
	t := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(token), "."))
	switch t {
	case "jpg", "jpeg", "jpe":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unsupported format %q (want jpg, png or pdf)", token)
}

// Request is one conversion.
type Request struct {
	Name       string // shown in errors and logs
	Data       []byte // raw source file
	Target     Format
	PageFormat Format // raster format for PDF pages; empty uses the profile's
}

// Output is the artifact plus how it was produced.
type Output struct {
	Data      []byte
	Size      int64
	SizeKB    float64
	Format    Format
	Param     int  // JPEG quality or PNG level used
	MetBudget bool // Size <= budget
	Attempts  []budget.Attempt
	Width     int // size of the encoded raster
	Height    int
	SrcWidth  int // size of the decoded or rasterized source
	SrcHeight int
	Source    Kind
	HadAlpha  bool
}

// Converter holds the configuration every conversion is run with. It keeps
// no per-call state and is safe to share.
type Converter struct {
	prof       profile.Profile
	registry   *encoder.Registry
	rasterizer pdfbridge.Rasterizer
}

// Option customizes a Converter.
type Option func(*Converter)

// WithRasterizer pins the PDF rasterizer instead of probing PATH.
func WithRasterizer(r pdfbridge.Rasterizer) Option {
	return func(c *Converter) { c.rasterizer = r }
}

// New creates a converter for prof.
func New(prof profile.Profile, opts ...Option) (*Converter, error) {
	if err := prof.Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", prof.Name, err)
	}
	c := &Converter{
		prof:     prof,
		registry: encoder.NewRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Profile returns the configuration the converter runs with.
func (c *Converter) Profile() profile.Profile { return c.prof }

// ConvertFile reads path and converts it.
func (c *Converter) ConvertFile(path string, target, page Format) (Output, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Output{}, converr.Decode(path, err)
	}
	return c.Convert(Request{Name: path, Data: data, Target: target, PageFormat: page})
}

// Convert runs one request.
func (c *Converter) Convert(req Request) (Output, error) {
	kind := Sniff(req.Data)
	if kind == KindUnknown {
		kind = KindFromExt(req.Name)
	}

	var (
		img  image.Image
		err  error
		dest = req.Target
	)
	switch kind {
	case KindPDF:
		img, _, err = pdfbridge.Rasterize(req.Data, req.Name, pdfbridge.RasterOptions{
			DPI:        c.prof.RasterDPI,
			Rasterizer: c.rasterizer,
		})
		if err != nil {
			return Output{}, err
		}
		if dest != FormatPDF {
			dest, err = c.pageFormat(req.PageFormat)
			if err != nil {
				return Output{}, err
			}
		}
	case KindRaster:
		img, _, err = compositor.Decode(bytes.NewReader(req.Data), req.Name)
		if err != nil {
			return Output{}, err
		}
	default:
		return Output{}, converr.Decode(req.Name, fmt.Errorf("unrecognized file type"))
	}

	out, err := c.Image(img, dest)
	if err != nil {
		return Output{}, fmt.Errorf("%s: %w", req.Name, err)
	}
	out.Source = kind

	slog.Info("converted",
		"source", req.Name,
		"kind", kind.String(),
		"format", string(out.Format),
		"size", out.Size,
		"param", out.Param,
		"met_budget", out.MetBudget,
	)
	return out, nil
}

// Image converts an already-decoded raster.
func (c *Converter) Image(img image.Image, target Format) (Output, error) {
	hadAlpha := compositor.HasAlpha(img)
	b := img.Bounds()

	if target == FormatPDF {
		doc, err := pdfbridge.NewDocument(img, pdfbridge.PDFOptions{
			Quality: c.prof.PDFQuality,
			MaxDim:  c.prof.PDFMaxDim,
		})
		if err != nil {
			return Output{}, err
		}
		size := int64(len(doc.Data))
		return Output{
			Data:      doc.Data,
			Size:      size,
			SizeKB:    float64(size) / 1024,
			Format:    FormatPDF,
			Param:     c.prof.PDFQuality,
			MetBudget: size <= c.prof.BudgetBytes(),
			Width:     doc.Width,
			Height:    doc.Height,
			SrcWidth:  b.Dx(),
			SrcHeight: b.Dy(),
			HadAlpha:  hadAlpha,
		}, nil
	}

	flat := compositor.Flatten(img)
	res, err := budget.SearchFormat(flat, string(target), c.registry, c.prof)
	if err != nil {
		return Output{}, err
	}
	if !res.MetBudget {
		slog.Warn("size budget not met",
			"format", res.Format, "size", res.Size, "budget", c.prof.BudgetBytes(), "param", res.Param)
	}
	return Output{
		Data:      res.Data,
		Size:      res.Size,
		SizeKB:    res.SizeKB,
		Format:    target,
		Param:     res.Param,
		MetBudget: res.MetBudget,
		Attempts:  res.Attempts,
		Width:     b.Dx(),
		Height:    b.Dy(),
		SrcWidth:  b.Dx(),
		SrcHeight: b.Dy(),
		HadAlpha:  hadAlpha,
	}, nil
}

func (c *Converter) pageFormat(f Format) (Format, error) {
	if f == "" {
		f = Format(c.prof.PageFormat)
	}
	pf, err := ParseFormat(string(f))
	if err != nil {
		return "", err
	}
	if pf == FormatPDF {
		return "", fmt.Errorf("page format must be jpg or png, got %q", f)
	}
	return pf, nil
}
