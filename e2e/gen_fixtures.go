//go:build ignore

// gen_fixtures writes a small input tree for the batch smoke test.
// Usage: go run gen_fixtures.go <output_dir>
package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/AnyUserName/imgfit-cli/internal/pdfbridge"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: gen_fixtures <output_dir>")
		os.Exit(1)
	}
	dir := os.Args[1]
	if err := os.MkdirAll(filepath.Join(dir, "scans"), 0o755); err != nil {
		panic(err)
	}

	// Blank sheet: must fit 50 KB as JPEG at the first quality.
	writePNG(filepath.Join(dir, "blank.png"), solid(2000, 2000, color.NRGBA{255, 255, 255, 255}))

	// Transparent logo: composited onto white before encoding.
	writePNG(filepath.Join(dir, "logo.png"), alphaGradient(300, 120))

	// Noise never fits; the search runs to the last step.
	writePNG(filepath.Join(dir, "noise.png"), noise(900, 900))

	// A one-page PDF for the rasterizer path.
	doc, err := pdfbridge.ToPDF(gradient(600, 800), pdfbridge.PDFOptions{})
	if err != nil {
		panic(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "scans", "receipt.pdf"), doc, 0o644); err != nil {
		panic(err)
	}

	fmt.Fprintf(os.Stderr, "[gen_fixtures] created 4 fixtures in %s\n", dir)
}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

func alphaGradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: 220, G: 60, B: 30,
				A: uint8(x * 255 / w),
			})
		}
	}
	return img
}

func noise(w, h int) *image.NRGBA {
	rng := rand.New(rand.NewSource(1))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	rng.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func writePNG(path string, img image.Image) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		panic(err)
	}
}
