package encoder

import (
	"fmt"
	"image"
)

// Encoder performs a single in-memory encode of an image.
type Encoder interface {
	// Format returns the canonical format name ("jpeg", "png").
	Format() string

	// Encode converts the image to bytes. The meaning of param is
	// format specific: quality 1-100 for JPEG, zlib level 0-9 for PNG.
	// Each call starts from scratch; no state is carried between calls.
	Encode(img image.Image, param int) ([]byte, error)

	// Available returns true if the encoder is ready to use.
	Available() bool

	// Extension returns the file extension without dot.
	Extension() string
}

func checkBounds(img image.Image) error {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy())
	}
	return nil
}
