package manifest

import "github.com/AnyUserName/imgfit-cli/internal/budget"

// FileName is the manifest name written next to converted files.
const FileName = "imgfit.manifest.json"

// Manifest is the top-level output of an imgfit batch run.
type Manifest struct {
	Version     int              `json:"version"`
	GeneratedAt string           `json:"generated_at"`
	Profile     string           `json:"profile"`
	BudgetKB    int              `json:"budget_kb"`
	BasePath    string           `json:"base_path"`
	BuildInfo   *BuildInfo       `json:"build_info,omitempty"`
	Entries     map[string]Entry `json:"entries"`
	Stats       Stats            `json:"stats"`
}

// BuildInfo captures run-time parameters for diagnostics.
type BuildInfo struct {
	Workers    int    `json:"workers"`
	Target     string `json:"target"`
	PageFormat string `json:"page_format,omitempty"`
	Rasterizer string `json:"rasterizer,omitempty"` // PDF tool found on PATH
}

// Entry describes one source file and the artifact produced from it.
type Entry struct {
	Source   SourceInfo       `json:"source"`
	Output   OutputInfo       `json:"output"`
	Attempts []budget.Attempt `json:"attempts,omitempty"` // empty for PDF output
}

// SourceInfo holds metadata about the input file.
type SourceInfo struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"` // "raster" or "pdf"
	Size     int64  `json:"size"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	HasAlpha bool   `json:"has_alpha"`
}

// OutputInfo is the converted artifact.
type OutputInfo struct {
	Format    string `json:"format"` // "jpg", "png", "pdf"
	Size      int64  `json:"size"`   // bytes on disk
	Width     int    `json:"width"`  // encoded raster width, after any PDF fit
	Height    int    `json:"height"` // encoded raster height
	Param     int    `json:"param"`  // quality or compression level
	MetBudget bool   `json:"met_budget"`
	Hash      string `json:"hash"` // 16 hex chars of xxhash64
	Path      string `json:"path"` // relative to base_path
}

// Stats aggregates run metrics.
type Stats struct {
	TotalInputBytes  int64 `json:"total_input_bytes"`
	TotalOutputBytes int64 `json:"total_output_bytes"`
	TotalEntries     int   `json:"total_entries"`
	OverBudget       int   `json:"over_budget"`
	Failed           int   `json:"failed,omitempty"`
}

// SupportedManifestVersion is the current schema version.
const SupportedManifestVersion = 1
