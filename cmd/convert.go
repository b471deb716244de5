package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AnyUserName/imgfit-cli/internal/convert"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	convTo         string
	convPageFormat string
	convOutput     string
	convOutDir     string
)

var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Convert one image or PDF under the size budget",
	Long: `Converts an image (png, jpg, gif, bmp, tiff, webp) or a PDF.

  --to jpg|png   flatten transparency and search for the best setting that fits
  --to pdf       wrap the image in a single page (fixed JPEG quality)

For PDF input with --to jpg|png, the first page is rasterized and written
in --page-format (jpg by default).`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convTo, "to", "t", "jpg", "target format: jpg, png or pdf")
	convertCmd.Flags().StringVar(&convPageFormat, "page-format", "", "format for a rasterized PDF page: jpg or png (default from profile)")
	convertCmd.Flags().StringVarP(&convOutput, "output", "o", "", "output file (default <out-dir>/<name>.<ext>)")
	convertCmd.Flags().StringVar(&convOutDir, "out-dir", "converted", "directory for the output when --output is not set")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(_ *cobra.Command, args []string) error {
	input := args[0]
	start := time.Now()

	target, err := convert.ParseFormat(convTo)
	if err != nil {
		return err
	}
	var page convert.Format
	if convPageFormat != "" {
		if page, err = convert.ParseFormat(convPageFormat); err != nil {
			return err
		}
	}

	prof, err := resolveProfile()
	if err != nil {
		return err
	}
	conv, err := convert.New(prof)
	if err != nil {
		return err
	}

	out, err := conv.ConvertFile(input, target, page)
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	outPath := convOutput
	if outPath == "" {
		base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		outPath = filepath.Join(convOutDir, base+"."+string(out.Format))
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(outPath, out.Data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	printConvertReport(os.Stdout, input, outPath, out, prof.BudgetBytes(), time.Since(start))
	return nil
}

func printConvertReport(w io.Writer, input, outPath string, out convert.Output, budget int64, elapsed time.Duration) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Source:   %s (%s, %dx%d)\n", input, out.Source, out.SrcWidth, out.SrcHeight)
	fmt.Fprintf(w, "  Output:   %s (%dx%d)\n", outPath, out.Width, out.Height)
	fmt.Fprintf(w, "  Size:     %s (budget %s)\n", humanize.IBytes(uint64(out.Size)), humanize.IBytes(uint64(budget)))
	switch out.Format {
	case convert.FormatJPEG:
		fmt.Fprintf(w, "  Quality:  %d (%d attempts)\n", out.Param, len(out.Attempts))
	case convert.FormatPNG:
		fmt.Fprintf(w, "  Level:    %d (%d attempts)\n", out.Param, len(out.Attempts))
	case convert.FormatPDF:
		fmt.Fprintf(w, "  Quality:  %d (fixed)\n", out.Param)
	}
	if out.MetBudget {
		fmt.Fprintln(w, "  Budget:   ✓ met")
	} else {
		fmt.Fprintln(w, "  Budget:   ✗ not met, best effort kept")
	}
	fmt.Fprintf(w, "  Time:     %s\n", elapsed.Round(time.Millisecond))
	fmt.Fprintln(w)
}
