package pipeline

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/AnyUserName/imgfit-cli/internal/convert"
	"github.com/AnyUserName/imgfit-cli/internal/manifest"
	"github.com/AnyUserName/imgfit-cli/internal/pdfbridge"
	"github.com/AnyUserName/imgfit-cli/internal/profile"
)

// Config holds all parameters for a batch run.
type Config struct {
	InputDir   string
	OutputDir  string
	Profile    profile.Profile
	Target     convert.Format
	PageFormat convert.Format // for PDF sources with a raster target
	Workers    int
}

// Pipeline converts every file of a directory tree. Each conversion is
// independent; workers only bound how many run at once.
type Pipeline struct {
	cfg  Config
	conv *convert.Converter
}

// New creates a configured pipeline.
func New(cfg Config, opts ...convert.Option) (*Pipeline, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	conv, err := convert.New(cfg.Profile, opts...)
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, conv: conv}, nil
}

// Run executes the batch and returns the manifest.
func (p *Pipeline) Run() (*manifest.Manifest, error) {
	sources, err := ScanInputs(p.cfg.InputDir, p.cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no images or PDFs found in %s", p.cfg.InputDir)
	}

	slog.Info("batch start", "files", len(sources), "target", string(p.cfg.Target),
		"budget_kb", p.cfg.Profile.SizeBudgetKB, "workers", p.cfg.Workers)

	results := make([]processResult, len(sources))
	var wg sync.WaitGroup
	sem := make(chan struct{}, p.cfg.Workers)

	for i, src := range sources {
		wg.Add(1)
		go func(idx int, s Source) {
			defer wg.Done()
			sem <- struct{}{}        // acquire
			defer func() { <-sem }() // release

			slog.Debug("processing", "source", s.RelPath)
			results[idx] = processFile(s, p.cfg, p.conv)
		}(i, src)
	}
	wg.Wait()

	m := manifest.New(p.cfg.Profile.Name, p.cfg.Profile.SizeBudgetKB)
	m.BuildInfo = &manifest.BuildInfo{
		Workers:    p.cfg.Workers,
		Target:     string(p.cfg.Target),
		PageFormat: string(p.cfg.PageFormat),
	}
	if rz := pdfbridge.FindRasterizer(); rz != nil {
		m.BuildInfo.Rasterizer = rz.Name()
	}

	var failed int
	for _, r := range results {
		if r.err != nil {
			failed++
			slog.Error("conversion failed", "source", r.key, "err", r.err)
			continue
		}
		m.Entries[r.key] = r.entry
	}

	// Partial failures are reported, not fatal.
	if failed == len(sources) {
		return nil, fmt.Errorf("all %d files failed to convert", failed)
	}
	if failed > 0 {
		slog.Warn("some files had errors", "failed", failed, "total", len(sources))
	}

	m.Stats.Failed = failed
	m.ComputeStats()
	return m, nil
}
