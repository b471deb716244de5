package profile

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Range is an inclusive parameter domain walked from Max down to Min.
type Range struct {
	Min  int `toml:"min"`
	Max  int `toml:"max"`
	Step int `toml:"step"`
}

// Steps returns the parameter values in search order (highest first).
// Min is always the final value, even when Max-Min is not a multiple of Step.
func (r Range) Steps() []int {
	if r.Step <= 0 || r.Max < r.Min {
		return nil
	}
	var out []int
	for v := r.Max; v > r.Min; v -= r.Step {
		out = append(out, v)
	}
	return append(out, r.Min)
}

// Profile is the configuration object handed to the conversion core.
type Profile struct {
	Name         string `toml:"name"`
	SizeBudgetKB int    `toml:"size_budget_kb"`
	JPEGQuality  Range  `toml:"jpeg_quality"`
	PNGLevel     Range  `toml:"png_level"`
	PDFQuality   int    `toml:"pdf_quality"` // fixed JPEG quality for raster → PDF
	PDFMaxDim    int    `toml:"pdf_max_dim"` // fit raster inside NxN before wrapping; 0 keeps size
	RasterDPI    int    `toml:"raster_dpi"`  // PDF page rasterization resolution
	PageFormat   string `toml:"page_format"` // default sub-format for PDF pages
}

// BudgetBytes returns the size budget in bytes (1 KB = 1024 bytes).
func (p Profile) BudgetBytes() int64 {
	return int64(p.SizeBudgetKB) * 1024
}

// Default is the reference behavior: 50 KB, JPEG 85→10 by 5, PNG 9→0 by 1.
const Default = "default"

// Built-in profiles.
var profiles = map[string]Profile{
	Default: {
		Name:         Default,
		SizeBudgetKB: 50,
		JPEGQuality:  Range{Min: 10, Max: 85, Step: 5},
		PNGLevel:     Range{Min: 0, Max: 9, Step: 1},
		PDFQuality:   60,
		RasterDPI:    72,
		PageFormat:   "jpg",
	},
	"strict": {
		Name:         "strict",
		SizeBudgetKB: 20,
		JPEGQuality:  Range{Min: 10, Max: 85, Step: 5},
		PNGLevel:     Range{Min: 0, Max: 9, Step: 1},
		PDFQuality:   50,
		PDFMaxDim:    1024,
		RasterDPI:    72,
		PageFormat:   "jpg",
	},
	"relaxed": {
		Name:         "relaxed",
		SizeBudgetKB: 200,
		JPEGQuality:  Range{Min: 30, Max: 95, Step: 5},
		PNGLevel:     Range{Min: 0, Max: 9, Step: 1},
		PDFQuality:   80,
		RasterDPI:    150,
		PageFormat:   "png",
	},
}

// Get returns a profile by name. Falls back to the default profile if unknown.
func Get(name string) Profile {
	if p, ok := profiles[name]; ok {
		return p
	}
	p := profiles[Default]
	p.Name = name // preserve requested name
	return p
}

// Names lists the built-in profile names.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Load reads a TOML profile file. Keys absent from the file keep the values
// of the built-in profile named by base.
func Load(path, base string) (Profile, error) {
	p := Get(base)

	file, err := os.Open(path)
	if err != nil {
		return Profile{}, fmt.Errorf("open profile: %w", err)
	}
	defer file.Close()

	dec := toml.NewDecoder(file)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Profile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if strings.TrimSpace(p.Name) == "" {
		p.Name = base
	}
	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

// Validate rejects settings the encoders cannot honor.
func (p Profile) Validate() error {
	var errs []error
	if p.SizeBudgetKB <= 0 {
		errs = append(errs, fmt.Errorf("size_budget_kb must be positive, got %d", p.SizeBudgetKB))
	}
	errs = append(errs, checkRange("jpeg_quality", p.JPEGQuality, 1, 100))
	errs = append(errs, checkRange("png_level", p.PNGLevel, 0, 9))
	if p.PDFQuality < 1 || p.PDFQuality > 100 {
		errs = append(errs, fmt.Errorf("pdf_quality must be 1-100, got %d", p.PDFQuality))
	}
	if p.PDFMaxDim < 0 {
		errs = append(errs, fmt.Errorf("pdf_max_dim must not be negative, got %d", p.PDFMaxDim))
	}
	if p.RasterDPI <= 0 {
		errs = append(errs, fmt.Errorf("raster_dpi must be positive, got %d", p.RasterDPI))
	}
	switch strings.ToLower(p.PageFormat) {
	case "jpg", "jpeg", "png":
	default:
		errs = append(errs, fmt.Errorf("page_format must be jpg or png, got %q", p.PageFormat))
	}
	return errors.Join(errs...)
}

func checkRange(key string, r Range, lo, hi int) error {
	switch {
	case r.Step <= 0:
		return fmt.Errorf("%s.step must be positive, got %d", key, r.Step)
	case r.Min > r.Max:
		return fmt.Errorf("%s: min %d above max %d", key, r.Min, r.Max)
	case r.Min < lo || r.Max > hi:
		return fmt.Errorf("%s must stay within %d-%d, got %d-%d", key, lo, hi, r.Min, r.Max)
	}
	return nil
}
