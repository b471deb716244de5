package budget

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/AnyUserName/imgfit-cli/internal/compositor"
	"github.com/AnyUserName/imgfit-cli/internal/converr"
	"github.com/AnyUserName/imgfit-cli/internal/encoder"
	"github.com/AnyUserName/imgfit-cli/internal/profile"
)

var (
	jpegDomain = profile.Range{Min: 10, Max: 85, Step: 5}
	pngDomain  = profile.Range{Min: 0, Max: 9, Step: 1}
)

// waves builds a smooth, photo-like opaque raster.
func waves(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fx, fy := float64(x), float64(y)
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(127 + 127*math.Sin(fx/7)),
				G: uint8(127 + 127*math.Cos(fy/11)),
				B: uint8(127 + 127*math.Sin((fx+fy)/5)),
				A: 255,
			})
		}
	}
	return img
}

func sizes(attempts []Attempt) []int64 {
	out := make([]int64, len(attempts))
	for i, a := range attempts {
		out[i] = a.Size
	}
	return out
}

func TestSearch_JPEGSizesNonIncreasing(t *testing.T) {
	res, err := Search(waves(256, 192), &encoder.JPEGEncoder{}, jpegDomain, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Attempts) != 16 {
		t.Fatalf("attempts: got %d, want 16", len(res.Attempts))
	}
	for i := 1; i < len(res.Attempts); i++ {
		prev, cur := res.Attempts[i-1], res.Attempts[i]
		if cur.Param != prev.Param-5 {
			t.Fatalf("step %d: param %d after %d", i, cur.Param, prev.Param)
		}
		if cur.Size > prev.Size {
			t.Errorf("q%d=%d bytes larger than q%d=%d bytes", cur.Param, cur.Size, prev.Param, prev.Size)
		}
	}
}

func TestSearch_JPEGPicksHighestQualityUnderBudget(t *testing.T) {
	img := waves(256, 192)
	enc := &encoder.JPEGEncoder{}

	all, err := Search(img, enc, jpegDomain, 1)
	if err != nil {
		t.Fatal(err)
	}
	// Budget equal to the q50 size: the winner is the first step, scanning
	// from q85 down, whose size fits.
	var budget int64
	for _, a := range all.Attempts {
		if a.Param == 50 {
			budget = a.Size
		}
	}
	wantParam := -1
	for _, a := range all.Attempts {
		if a.Size <= budget {
			wantParam = a.Param
			break
		}
	}

	res, err := Search(img, enc, jpegDomain, budget)
	if err != nil {
		t.Fatal(err)
	}
	if !res.MetBudget {
		t.Fatal("expected MetBudget")
	}
	if res.Param != wantParam {
		t.Errorf("param: got %d, want %d", res.Param, wantParam)
	}
	if res.Size > budget {
		t.Errorf("size %d exceeds budget %d", res.Size, budget)
	}
	if res.Attempts[len(res.Attempts)-1].Param != res.Param {
		t.Error("search continued after the budget was met")
	}
}

func TestSearch_JPEGExhaustedReturnsLastAttempt(t *testing.T) {
	img := waves(128, 128)
	enc := &encoder.JPEGEncoder{}

	res, err := Search(img, enc, jpegDomain, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.MetBudget {
		t.Fatal("1-byte budget reported as met")
	}
	if res.Param != 10 {
		t.Errorf("param: got %d, want 10", res.Param)
	}
	want, err := enc.Encode(img, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(res.Data, want) {
		t.Error("fallback bytes differ from the quality-10 encode")
	}
	if res.Size != int64(len(want)) || res.SizeKB != float64(len(want))/1024 {
		t.Errorf("size: got %d (%.3f KB)", res.Size, res.SizeKB)
	}
}

func TestSearch_JPEG2000SquareUnderDefaultBudget(t *testing.T) {
	tests := []struct {
		name string
		fill color.NRGBA
	}{
		{"white", color.NRGBA{255, 255, 255, 255}},
		{"warm white", color.NRGBA{250, 250, 245, 255}},
		{"red", color.NRGBA{200, 30, 30, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := image.NewNRGBA(image.Rect(0, 0, 2000, 2000))
			for i := 0; i < len(src.Pix); i += 4 {
				src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = tt.fill.R, tt.fill.G, tt.fill.B, tt.fill.A
			}
			img := compositor.Flatten(src)

			res, err := Search(img, &encoder.JPEGEncoder{}, jpegDomain, 50*1024)
			if err != nil {
				t.Fatal(err)
			}
			if res.Size > 51200 || !res.MetBudget {
				t.Fatalf("size %d, met=%v", res.Size, res.MetBudget)
			}
			if res.Param != 85 {
				t.Errorf("param: got %d, want 85 (no unnecessary degradation)", res.Param)
			}
			if len(res.Attempts) != 1 {
				t.Errorf("attempts: got %d, want 1", len(res.Attempts))
			}
		})
	}
}

func TestSearch_PNGTransparentPixel(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img := compositor.Flatten(src)

	res, err := SearchFormat(img, "png", encoder.NewRegistry(), profile.Get(profile.Default))
	if err != nil {
		t.Fatal(err)
	}
	if !res.MetBudget || res.Param != 9 {
		t.Fatalf("met=%v param=%d", res.MetBudget, res.Param)
	}
	if res.Size >= 1024 {
		t.Errorf("size %d, want well under 1 KB", res.Size)
	}
	out, err := png.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Bounds().Dx() != 1 || out.Bounds().Dy() != 1 {
		t.Errorf("bounds: got %v", out.Bounds())
	}
	if r, g, b, a := out.At(0, 0).RGBA(); r != 0xffff || g != 0xffff || b != 0xffff || a != 0xffff {
		t.Errorf("pixel: got %d %d %d %d, want opaque white", r, g, b, a)
	}
}

func TestSearch_PNGSizesNonDecreasing(t *testing.T) {
	res, err := Search(waves(160, 120), &encoder.PNGEncoder{}, pngDomain, 1)
	if err != nil {
		t.Fatal(err)
	}
	got := sizes(res.Attempts)
	if len(got) != 10 {
		t.Fatalf("attempts: got %d, want 10", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			t.Errorf("level %d=%d bytes smaller than level %d=%d bytes",
				res.Attempts[i].Param, got[i], res.Attempts[i-1].Param, got[i-1])
		}
	}
}

func TestSearch_PNGExhaustedReturnsLevelZero(t *testing.T) {
	res, err := Search(waves(64, 64), &encoder.PNGEncoder{}, pngDomain, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.MetBudget || res.Param != 0 {
		t.Fatalf("met=%v param=%d", res.MetBudget, res.Param)
	}
	for _, a := range res.Attempts {
		if a.Size > res.Size {
			t.Errorf("level %d (%d bytes) larger than the level-0 fallback (%d bytes)", a.Param, a.Size, res.Size)
		}
	}
}

func TestSearch_PNGLosslessAtEveryLevel(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 24, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 24; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 15), B: 99, A: uint8(x * y)})
		}
	}
	img := compositor.Flatten(src)
	enc := &encoder.PNGEncoder{}

	for _, level := range pngDomain.Steps() {
		data, err := EncodeOnce(img, enc, level)
		if err != nil {
			t.Fatalf("level %d: %v", level, err)
		}
		out, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("level %d: decode: %v", level, err)
		}
		for y := 0; y < 16; y++ {
			for x := 0; x < 24; x++ {
				r, g, b, _ := out.At(x, y).RGBA()
				want := img.RGBAAt(x, y)
				if uint8(r>>8) != want.R || uint8(g>>8) != want.G || uint8(b>>8) != want.B {
					t.Fatalf("level %d (%d,%d): got %d,%d,%d want %v", level, x, y, r>>8, g>>8, b>>8, want)
				}
			}
		}
	}
}

func TestSearch_EncodeErrorAborts(t *testing.T) {
	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))
	_, err := Search(empty, &encoder.JPEGEncoder{}, jpegDomain, 1024)
	if !errors.Is(err, converr.ErrEncode) {
		t.Fatalf("expected EncodeError, got %v", err)
	}
}

func TestSearch_RejectsBadInputs(t *testing.T) {
	img := waves(8, 8)
	if _, err := Search(img, &encoder.JPEGEncoder{}, profile.Range{Min: 10, Max: 5, Step: 5}, 1024); err == nil {
		t.Error("inverted range: expected error")
	}
	if _, err := Search(img, &encoder.JPEGEncoder{}, jpegDomain, 0); err == nil {
		t.Error("zero budget: expected error")
	}
	if _, err := SearchFormat(img, "gif", encoder.NewRegistry(), profile.Get(profile.Default)); err == nil {
		t.Error("gif: expected error")
	}
}

func TestDomain(t *testing.T) {
	p := profile.Get(profile.Default)
	if Domain("png", p) != p.PNGLevel {
		t.Error("png domain")
	}
	if Domain("jpeg", p) != p.JPEGQuality {
		t.Error("jpeg domain")
	}
}
