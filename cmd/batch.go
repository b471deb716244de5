package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AnyUserName/imgfit-cli/internal/convert"
	"github.com/AnyUserName/imgfit-cli/internal/manifest"
	"github.com/AnyUserName/imgfit-cli/internal/pipeline"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	batchOutDir     string
	batchTo         string
	batchPageFormat string
	batchWorkers    int
)

var batchCmd = &cobra.Command{
	Use:   "batch <input_dir>",
	Short: "Convert every image and PDF in a directory and write a manifest",
	Long: `Scans input directory for images (png, jpg, jpeg, webp, gif, bmp, tiff)
and PDFs, converts each one under the size budget, and writes a manifest.

Output filenames are content-addressed: <name>.<hash>.<ext>`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchOutDir, "out", "o", "./converted", "output directory")
	batchCmd.Flags().StringVarP(&batchTo, "to", "t", "jpg", "target format: jpg, png or pdf")
	batchCmd.Flags().StringVar(&batchPageFormat, "page-format", "", "format for rasterized PDF pages (default from profile)")
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "parallel conversions (0 = NumCPU)")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(_ *cobra.Command, args []string) error {
	start := time.Now()

	absInput, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve input path: %w", err)
	}
	absOutput, err := filepath.Abs(batchOutDir)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	target, err := convert.ParseFormat(batchTo)
	if err != nil {
		return err
	}
	var page convert.Format
	if batchPageFormat != "" {
		if page, err = convert.ParseFormat(batchPageFormat); err != nil {
			return err
		}
	}
	prof, err := resolveProfile()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(absOutput, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	p, err := pipeline.New(pipeline.Config{
		InputDir:   absInput,
		OutputDir:  absOutput,
		Profile:    prof,
		Target:     target,
		PageFormat: page,
		Workers:    batchWorkers,
	})
	if err != nil {
		return err
	}

	m, err := p.Run()
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	manifestPath := filepath.Join(absOutput, manifest.FileName)
	if err := manifest.WriteJSON(m, manifestPath); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	printBatchReport(m, time.Since(start))
	return nil
}

func printBatchReport(m *manifest.Manifest, elapsed time.Duration) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════╗")
	fmt.Println("║              imgfit batch complete               ║")
	fmt.Println("╚══════════════════════════════════════════════════╝")
	fmt.Println()

	s := m.Stats
	fmt.Printf("  Files:       %d converted", s.TotalEntries)
	if s.Failed > 0 {
		fmt.Printf(", %d failed", s.Failed)
	}
	fmt.Println()
	fmt.Printf("  Budget:      %d KB (%d over budget)\n", m.BudgetKB, s.OverBudget)
	fmt.Printf("  Input size:  %s\n", humanize.IBytes(uint64(s.TotalInputBytes)))
	fmt.Printf("  Output size: %s\n", humanize.IBytes(uint64(s.TotalOutputBytes)))
	if s.TotalInputBytes > 0 {
		fmt.Printf("  Ratio:       %.1f%% of original\n", float64(s.TotalOutputBytes)/float64(s.TotalInputBytes)*100)
	}
	fmt.Printf("  Time:        %s\n", elapsed.Round(time.Millisecond))
	if m.BuildInfo != nil {
		fmt.Printf("  Workers:     %d\n", m.BuildInfo.Workers)
	}
	fmt.Printf("  Manifest:    %s\n", manifest.FileName)
	fmt.Println()
}
