package pdfbridge

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/AnyUserName/imgfit-cli/internal/converr"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Info describes a parsed PDF document.
type Info struct {
	Pages      int
	PageWidth  float64 // first page, in points
	PageHeight float64
}

// ErrNoPages is returned (wrapped in a DecodeError) for documents without pages.
var ErrNoPages = errors.New("document has no pages")

func init() {
	// Keep pdfcpu from creating its config directory under $HOME.
	api.DisableConfigDir()
}

// Inspect parses and validates a PDF and reports its page count and the size
// of the first page.
func Inspect(data []byte, name string) (Info, error) {
	return inspect(bytes.NewReader(data), name)
}

func inspect(rs io.ReadSeeker, name string) (Info, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(rs, conf)
	if err != nil {
		return Info{}, converr.Decode(name, fmt.Errorf("read pdf: %w", err))
	}
	if err := api.ValidateContext(ctx); err != nil {
		return Info{}, converr.Decode(name, fmt.Errorf("validate pdf: %w", err))
	}

	dims, err := ctx.PageDims()
	if err != nil {
		return Info{}, converr.Decode(name, fmt.Errorf("page tree: %w", err))
	}
	if len(dims) == 0 {
		return Info{}, converr.Decode(name, ErrNoPages)
	}
	return Info{
		Pages:      len(dims),
		PageWidth:  dims[0].Width,
		PageHeight: dims[0].Height,
	}, nil
}
