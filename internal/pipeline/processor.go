package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/AnyUserName/imgfit-cli/internal/convert"
	"github.com/AnyUserName/imgfit-cli/internal/hasher"
	"github.com/AnyUserName/imgfit-cli/internal/manifest"
)

// processResult holds the result of converting a single source file.
type processResult struct {
	key   string
	entry manifest.Entry
	err   error
}

// processFile converts one source and writes the artifact as
// <key>.<hash8>.<ext> under the output directory.
func processFile(src Source, cfg Config, conv *convert.Converter) processResult {
	result := processResult{key: src.RelPath}

	out, err := conv.ConvertFile(src.AbsPath, cfg.Target, cfg.PageFormat)
	if err != nil {
		result.err = err
		return result
	}

	hash := hasher.Sum(out.Data, hasher.Len)
	fileName := fmt.Sprintf("%s.%s.%s", filepath.Base(src.Key), hash[:8], out.Format)
	relPath := filepath.ToSlash(filepath.Join(filepath.Dir(src.Key), fileName))

	outPath := filepath.Join(cfg.OutputDir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		result.err = fmt.Errorf("create dir for %s: %w", relPath, err)
		return result
	}
	if err := os.WriteFile(outPath, out.Data, 0o644); err != nil {
		result.err = fmt.Errorf("write %s: %w", relPath, err)
		return result
	}

	if !out.MetBudget {
		slog.Warn("over budget", "source", src.RelPath, "size", out.Size, "param", out.Param)
	}

	result.entry = manifest.Entry{
		Source: manifest.SourceInfo{
			Path:     src.RelPath,
			Kind:     out.Source.String(),
			Size:     src.Size,
			Width:    out.SrcWidth,
			Height:   out.SrcHeight,
			HasAlpha: out.HadAlpha,
		},
		Output: manifest.OutputInfo{
			Format:    string(out.Format),
			Size:      out.Size,
			Width:     out.Width,
			Height:    out.Height,
			Param:     out.Param,
			MetBudget: out.MetBudget,
			Hash:      hash,
			Path:      relPath,
		},
		Attempts: out.Attempts,
	}
	return result
}
