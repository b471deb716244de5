// Package pdfbridge converts between rasters and single-page PDF documents.
//
// The two directions share nothing: ToPDF embeds a fixed-quality JPEG in a
// page sized to the image, Rasterize renders the first page of an existing
// document through an external rasterizer.
package pdfbridge

import (
	"bytes"
	"fmt"
	"image"

	"github.com/AnyUserName/imgfit-cli/internal/compositor"
	"github.com/AnyUserName/imgfit-cli/internal/converr"
	"github.com/AnyUserName/imgfit-cli/internal/encoder"
	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"
)

// DefaultQuality is the JPEG quality used for the embedded page image.
const DefaultQuality = 60

// PDFOptions control raster → PDF conversion.
type PDFOptions struct {
	Quality int // JPEG quality 1-100; 0 means DefaultQuality
	MaxDim  int // fit the raster inside MaxDim×MaxDim first; 0 keeps its size
}

// Document is a generated PDF together with the pixel size of its page
// image, which differs from the input when MaxDim shrank it.
type Document struct {
	Data          []byte
	Width, Height int
}

// ToPDF wraps img in a single-page PDF whose page is exactly the image size,
// one point per pixel. Transparent areas are composited over white first.
func ToPDF(img image.Image, opts PDFOptions) ([]byte, error) {
	doc, err := NewDocument(img, opts)
	return doc.Data, err
}

// NewDocument is ToPDF that also reports the embedded page size.
func NewDocument(img image.Image, opts PDFOptions) (Document, error) {
	q := opts.Quality
	if q == 0 {
		q = DefaultQuality
	}

	src := image.Image(compositor.Flatten(img))
	if opts.MaxDim > 0 {
		// Fit never upscales.
		src = imaging.Fit(src, opts.MaxDim, opts.MaxDim, imaging.Lanczos)
	}

	jpg, err := (&encoder.JPEGEncoder{}).Encode(src, q)
	if err != nil {
		return Document{}, err
	}

	b := src.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("imgfit", false)
	pdf.AddPage()

	opt := gofpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader("page", opt, bytes.NewReader(jpg))
	pdf.ImageOptions("page", 0, 0, w, h, false, opt, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Document{}, converr.Encode("pdf", q, fmt.Errorf("write pdf: %w", err))
	}
	return Document{Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}
