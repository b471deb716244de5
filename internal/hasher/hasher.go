// Package hasher fingerprints converted artifacts so output names change
// whenever their bytes do.
package hasher

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// Len is the number of hex characters used in reports. 16 hex chars keep the
// full 64-bit xxHash.
const Len = 16

// Sum returns the xxHash64 of data as hex, truncated to hexLen characters
// (0 or anything above 16 keeps all of them).
func Sum(data []byte, hexLen int) string {
	return truncate(fmt.Sprintf("%016x", xxhash.Sum64(data)), hexLen)
}

// SumReader is Sum over a stream.
func SumReader(r io.Reader, hexLen int) (string, error) {
	h := xxhash.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return truncate(fmt.Sprintf("%016x", h.Sum64()), hexLen), nil
}

// SumFile hashes the file at path.
func SumFile(path string, hexLen int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return SumReader(f, hexLen)
}

func truncate(full string, n int) string {
	if n > 0 && n < len(full) {
		return full[:n]
	}
	return full
}
