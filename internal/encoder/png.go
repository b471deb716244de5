package encoder

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/AnyUserName/imgfit-cli/internal/converr"
)

// PNGEncoder encodes images to PNG using Go's standard library.
//
// Levels follow the zlib 0-9 scale. Go's encoder only exposes four
// settings, so neighbouring levels share one:
//
//	0     no compression
//	1-3   best speed
//	4-6   default
//	7-9   best compression
type PNGEncoder struct{}

func (e *PNGEncoder) Format() string    { return "png" }
func (e *PNGEncoder) Extension() string { return "png" }
func (e *PNGEncoder) Available() bool   { return true }

// Encode encodes img at the given compression level (0-9).
func (e *PNGEncoder) Encode(img image.Image, level int) ([]byte, error) {
	cl, err := CompressionLevel(level)
	if err != nil {
		return nil, converr.Encode(e.Format(), level, err)
	}
	if err := checkBounds(img); err != nil {
		return nil, converr.Encode(e.Format(), level, err)
	}

	var buf bytes.Buffer
	buf.Grow(64 * 1024)

	enc := &png.Encoder{CompressionLevel: cl}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, converr.Encode(e.Format(), level, err)
	}
	return buf.Bytes(), nil
}

// CompressionLevel maps a zlib level onto Go's png.CompressionLevel.
func CompressionLevel(level int) (png.CompressionLevel, error) {
	switch {
	case level == 0:
		return png.NoCompression, nil
	case level >= 1 && level <= 3:
		return png.BestSpeed, nil
	case level >= 4 && level <= 6:
		return png.DefaultCompression, nil
	case level >= 7 && level <= 9:
		return png.BestCompression, nil
	default:
		return 0, fmt.Errorf("compression level %d out of range 0-9", level)
	}
}
