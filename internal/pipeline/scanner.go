package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Source represents a discovered input file.
type Source struct {
	// AbsPath is the absolute path to the file on disk.
	AbsPath string
	// RelPath is the path relative to the input directory.
	RelPath string
	// Key is the relpath without extension; output names derive from it.
	Key string
	// Ext is the lower-cased extension without dot (png, jpg, pdf, ...).
	Ext string
	// Size is the file size in bytes.
	Size int64
}

// inputExtensions lists recognized input file extensions.
var inputExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".pdf":  true,
}

// ScanInputs walks the input directory and returns all convertible files,
// sorted by relative path. Hidden directories and outDir are skipped.
func ScanInputs(inputDir, outDir string) ([]Source, error) {
	var sources []Source

	err := filepath.Walk(inputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path == outDir && path != inputDir {
				return filepath.SkipDir
			}
			if strings.HasPrefix(info.Name(), ".") && path != inputDir {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !inputExtensions[ext] {
			return nil
		}

		relPath, err := filepath.Rel(inputDir, path)
		if err != nil {
			return err
		}

		sources = append(sources, Source{
			AbsPath: path,
			RelPath: filepath.ToSlash(relPath),
			Key:     filepath.ToSlash(strings.TrimSuffix(relPath, filepath.Ext(relPath))),
			Ext:     strings.TrimPrefix(ext, "."),
			Size:    info.Size(),
		})
		return nil
	})

	sort.Slice(sources, func(i, j int) bool { return sources[i].RelPath < sources[j].RelPath })
	return sources, err
}
