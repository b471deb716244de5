package convert

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Kind identifies the family of a source file.
type Kind int

const (
	KindUnknown Kind = iota
	KindRaster
	KindPDF
)

func (k Kind) String() string {
	switch k {
	case KindRaster:
		return "raster"
	case KindPDF:
		return "pdf"
	default:
		return "unknown"
	}
}

var (
	pdfSig  = []byte("%PDF-")
	pngSig  = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	jpegSig = []byte{0xff, 0xd8, 0xff}
	gifSig  = []byte("GIF8")
	bmpSig  = []byte("BM")
	tiffLE  = []byte{0x49, 0x49, 0x2a, 0x00}
	tiffBE  = []byte{0x4d, 0x4d, 0x00, 0x2a}
	riffSig = []byte("RIFF")
	webpSig = []byte("WEBP")
)

// Sniff classifies data by its leading bytes. PDF readers accept the header
// anywhere in the first KB, so the PDF check scans that window once no image
// signature matched.
func Sniff(data []byte) Kind {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	switch {
	case bytes.HasPrefix(data, pngSig),
		bytes.HasPrefix(data, jpegSig),
		bytes.HasPrefix(data, gifSig),
		bytes.HasPrefix(data, bmpSig),
		bytes.HasPrefix(data, tiffLE),
		bytes.HasPrefix(data, tiffBE),
		len(data) >= 12 && bytes.HasPrefix(data, riffSig) && bytes.Equal(data[8:12], webpSig):
		return KindRaster
	case bytes.Contains(head, pdfSig):
		return KindPDF
	}
	return KindUnknown
}

// KindFromExt guesses the kind from a file name when sniffing is not possible.
func KindFromExt(name string) Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return KindPDF
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return KindRaster
	}
	return KindUnknown
}
