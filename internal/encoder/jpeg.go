package encoder

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/AnyUserName/imgfit-cli/internal/converr"
)

// JPEGEncoder encodes images to baseline JPEG using Go's standard library,
// then replaces the generic Huffman tables with ones fitted to the image.
// The fixed tables cost at least 4 bytes per 16x16 color MCU, which alone
// keeps large images above small budgets at any quality.
type JPEGEncoder struct{}

func (e *JPEGEncoder) Format() string    { return "jpeg" }
func (e *JPEGEncoder) Extension() string { return "jpg" }
func (e *JPEGEncoder) Available() bool   { return true }

// Encode encodes img at the given quality (1-100).
func (e *JPEGEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	if quality < 1 || quality > 100 {
		return nil, converr.Encode(e.Format(), quality, fmt.Errorf("quality out of range 1-100"))
	}
	if err := checkBounds(img); err != nil {
		return nil, converr.Encode(e.Format(), quality, err)
	}

	if g, ok := asGray(img); ok {
		img = g
	}

	var buf bytes.Buffer
	buf.Grow(64 * 1024)

	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, converr.Encode(e.Format(), quality, err)
	}
	out, err := optimizeHuffman(buf.Bytes())
	if err != nil {
		return nil, converr.Encode(e.Format(), quality, err)
	}
	return out, nil
}

// asGray returns a single-channel copy of img when every pixel of an opaque
// RGBA raster has R == G == B. The JPEG writer then emits one component
// instead of three, which is visually identical and noticeably smaller.
func asGray(img image.Image) (*image.Gray, bool) {
	src, ok := img.(*image.RGBA)
	if !ok {
		return nil, false
	}
	b := src.Bounds()
	g := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := src.Pix[src.PixOffset(b.Min.X, y):]
		out := g.Pix[g.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			p := row[x*4 : x*4+4 : x*4+4]
			if p[0] != p[1] || p[1] != p[2] || p[3] != 255 {
				return nil, false
			}
			out[x] = p[0]
		}
	}
	return g, true
}
