package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AnyUserName/imgfit-cli/internal/budget"
	"github.com/AnyUserName/imgfit-cli/internal/hasher"
	"github.com/AnyUserName/imgfit-cli/internal/manifest"
)

func sampleManifest(t *testing.T) (*manifest.Manifest, string) {
	t.Helper()
	dir := t.TempDir()
	data := []byte("pretend jpeg bytes")
	if err := os.WriteFile(filepath.Join(dir, "a.1234.jpg"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	m := manifest.New("default", 50)
	m.Entries["a.png"] = manifest.Entry{
		Source: manifest.SourceInfo{Path: "a.png", Kind: "raster", Size: 900, Width: 10, Height: 10},
		Output: manifest.OutputInfo{
			Format: "jpg", Size: int64(len(data)), Param: 85, MetBudget: true,
			Hash: hasher.Sum(data, hasher.Len), Path: "a.1234.jpg",
		},
		Attempts: []budget.Attempt{{Param: 85, Size: int64(len(data))}},
	}
	m.ComputeStats()
	return m, dir
}

func TestValidateManifest_OK(t *testing.T) {
	m, dir := sampleManifest(t)
	if errs := validateManifest(m, dir); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestValidateManifest_Detects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *manifest.Manifest, dir string)
		want   string
	}{
		{"hash", func(m *manifest.Manifest, dir string) {
			os.WriteFile(filepath.Join(dir, "a.1234.jpg"), []byte("changed"), 0o644)
		}, "hash mismatch"},
		{"missing", func(m *manifest.Manifest, dir string) {
			os.Remove(filepath.Join(dir, "a.1234.jpg"))
		}, "file not found"},
		{"budget flag", func(m *manifest.Manifest, _ string) {
			e := m.Entries["a.png"]
			e.Output.MetBudget = false
			m.Entries["a.png"] = e
		}, "met_budget=false"},
		{"param", func(m *manifest.Manifest, _ string) {
			e := m.Entries["a.png"]
			e.Output.Param = 40
			m.Entries["a.png"] = e
		}, "not the last attempt"},
		{"stats", func(m *manifest.Manifest, _ string) {
			m.Stats.TotalEntries = 3
		}, "stats.total_entries"},
		{"format", func(m *manifest.Manifest, _ string) {
			e := m.Entries["a.png"]
			e.Output.Format = "gif"
			m.Entries["a.png"] = e
		}, "unknown format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, dir := sampleManifest(t)
			tt.mutate(m, dir)
			errs := validateManifest(m, dir)
			if !strings.Contains(strings.Join(errs, "\n"), tt.want) {
				t.Errorf("errors %v do not mention %q", errs, tt.want)
			}
		})
	}
}

func TestStatsRowsOrder(t *testing.T) {
	m := manifest.New("default", 50)
	m.Entries["small.png"] = manifest.Entry{Output: manifest.OutputInfo{Format: "png", Size: 10, MetBudget: true}}
	m.Entries["big.png"] = manifest.Entry{Output: manifest.OutputInfo{Format: "jpg", Size: 99999, Param: 10}}

	rows := statsRows(m)
	if len(rows) != 2 || rows[0][0] != "big.png" || rows[0][6] != "✗" || rows[1][6] != "✓" {
		t.Errorf("rows: %v", rows)
	}
	if out := renderTable([]string{"A", "B"}, [][]string{{"x"}}, nil); !strings.Contains(out, "x") {
		t.Errorf("table: %q", out)
	}
}
