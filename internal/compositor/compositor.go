// Package compositor turns decoded rasters of any color model into a canonical
// opaque RGB image by compositing them over white.
package compositor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/AnyUserName/imgfit-cli/internal/converr"
	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Background is the canvas transparent pixels are composited onto.
var Background = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Flatten composites img over an opaque white canvas of the same size.
//
// Per pixel: out = alpha*src + (1-alpha)*white. Images without an alpha
// channel come back with identical pixel values. The result always has its
// origin at (0,0) and every alpha byte set to 255.
func Flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// Decode parses an image stream and applies its EXIF orientation, if any.
func Decode(r io.Reader, name string) (image.Image, string, error) {
	// Buffer so the format name can be reported alongside the oriented image.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", converr.Decode(name, err)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", converr.Decode(name, err)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", converr.Decode(name, err)
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, "", converr.Decode(name, fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy()))
	}
	return img, format, nil
}

// DecodeFile opens and decodes the image at path.
func DecodeFile(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", converr.Decode(path, err)
	}
	defer f.Close()
	return Decode(f, path)
}

// HasAlpha reports whether any pixel of img is not fully opaque.
func HasAlpha(img image.Image) bool {
	switch src := img.(type) {
	case *image.NRGBA:
		for i := 3; i < len(src.Pix); i += 4 {
			if src.Pix[i] < 255 {
				return true
			}
		}
		return false
	case *image.RGBA:
		for i := 3; i < len(src.Pix); i += 4 {
			if src.Pix[i] < 255 {
				return true
			}
		}
		return false
	case *image.YCbCr, *image.Gray, *image.Gray16, *image.CMYK:
		return false
	default:
		b := img.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				_, _, _, a := img.At(x, y).RGBA()
				if a < 0xffff {
					return true
				}
			}
		}
		return false
	}
}
