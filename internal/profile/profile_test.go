package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRangeSteps(t *testing.T) {
	tests := []struct {
		name string
		r    Range
		want []int
	}{
		{"jpeg", Range{Min: 10, Max: 85, Step: 5}, []int{85, 80, 75, 70, 65, 60, 55, 50, 45, 40, 35, 30, 25, 20, 15, 10}},
		{"png", Range{Min: 0, Max: 9, Step: 1}, []int{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}},
		{"uneven", Range{Min: 10, Max: 22, Step: 5}, []int{22, 17, 12, 10}},
		{"single", Range{Min: 50, Max: 50, Step: 5}, []int{50}},
		{"inverted", Range{Min: 60, Max: 50, Step: 5}, nil},
		{"zero step", Range{Min: 0, Max: 9, Step: 0}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.r.Steps()); diff != "" {
				t.Errorf("Steps() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDefaultProfile(t *testing.T) {
	p := Get(Default)
	if p.SizeBudgetKB != 50 {
		t.Errorf("budget: got %d", p.SizeBudgetKB)
	}
	if p.BudgetBytes() != 51200 {
		t.Errorf("budget bytes: got %d", p.BudgetBytes())
	}
	if len(p.JPEGQuality.Steps()) != 16 || len(p.PNGLevel.Steps()) != 10 {
		t.Errorf("step counts: jpeg=%d png=%d", len(p.JPEGQuality.Steps()), len(p.PNGLevel.Steps()))
	}
	if p.RasterDPI != 72 {
		t.Errorf("dpi: got %d", p.RasterDPI)
	}
	for _, n := range Names() {
		if err := Get(n).Validate(); err != nil {
			t.Errorf("built-in %q invalid: %v", n, err)
		}
	}
}

func TestGetUnknownFallsBack(t *testing.T) {
	p := Get("nope")
	if p.Name != "nope" || p.SizeBudgetKB != 50 {
		t.Errorf("got %+v", p)
	}
}

func TestLoadOverridesBase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imgfit.toml")
	raw := `
size_budget_kb = 120
raster_dpi = 96

[jpeg_quality]
min = 20
max = 90
step = 10
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path, Default)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Get(Default)
	want.SizeBudgetKB = 120
	want.RasterDPI = 96
	want.JPEGQuality = Range{Min: 20, Max: 90, Step: 10}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"budget":   "size_budget_kb = 0\n",
		"quality":  "[jpeg_quality]\nmin = 0\nmax = 85\nstep = 5\n",
		"level":    "[png_level]\nmin = 0\nmax = 12\nstep = 1\n",
		"dpi":      "raster_dpi = -1\n",
		"page":     "page_format = \"gif\"\n",
		"unknown":  "budget = 50\n",
		"bad toml": "size_budget_kb = = 3\n",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "p.toml")
			if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path, Default); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	p := Get(Default)
	p.SizeBudgetKB = -1
	p.PDFQuality = 0
	err := p.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "size_budget_kb") || !strings.Contains(msg, "pdf_quality") {
		t.Errorf("message missing fields: %q", msg)
	}
}
