package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/AnyUserName/imgfit-cli/internal/hasher"
	"github.com/AnyUserName/imgfit-cli/internal/manifest"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <manifest_path>",
	Short: "Validate an imgfit manifest and check referenced files",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, args []string) error {
	manifestPath := args[0]

	m, err := manifest.ReadJSON(manifestPath)
	if err != nil {
		return err
	}

	errs := validateManifest(m, filepath.Dir(manifestPath))
	if len(errs) == 0 {
		fmt.Println("  ✓ Manifest is valid")
		fmt.Printf("  ✓ %d entries — all files present and matching\n", m.Stats.TotalEntries)
		return nil
	}

	fmt.Printf("  ✗ Manifest has %d error(s):\n", len(errs))
	for _, e := range errs {
		fmt.Printf("    • %s\n", e)
	}
	return fmt.Errorf("validation failed with %d errors", len(errs))
}

func validateManifest(m *manifest.Manifest, baseDir string) []string {
	var errs []string
	budget := int64(m.BudgetKB) * 1024

	if m.BudgetKB <= 0 {
		errs = append(errs, fmt.Sprintf("invalid budget_kb: %d", m.BudgetKB))
	}

	seenPaths := map[string]string{}
	var overBudget int
	for key, e := range m.Entries {
		out := e.Output

		switch out.Format {
		case "jpg", "png", "pdf":
		default:
			errs = append(errs, fmt.Sprintf("entry %q: unknown format %q", key, out.Format))
		}
		if e.Source.Width <= 0 || e.Source.Height <= 0 {
			errs = append(errs, fmt.Sprintf("entry %q: invalid source dimensions %dx%d",
				key, e.Source.Width, e.Source.Height))
		}

		// met_budget must agree with the recorded size.
		if out.MetBudget != (out.Size <= budget) {
			errs = append(errs, fmt.Sprintf("entry %q: met_budget=%v but size %d vs budget %d",
				key, out.MetBudget, out.Size, budget))
		}
		if !out.MetBudget {
			overBudget++
		}
		if n := len(e.Attempts); n > 0 && e.Attempts[n-1].Param != out.Param {
			errs = append(errs, fmt.Sprintf("entry %q: param %d is not the last attempt (%d)",
				key, out.Param, e.Attempts[n-1].Param))
		}

		if out.Path == "" {
			errs = append(errs, fmt.Sprintf("entry %q: missing path", key))
			continue
		}
		if prev, dup := seenPaths[out.Path]; dup {
			errs = append(errs, fmt.Sprintf("entry %q: path %q already used by %q", key, out.Path, prev))
		}
		seenPaths[out.Path] = key

		sum, err := hasher.SumFile(filepath.Join(baseDir, filepath.FromSlash(out.Path)), hasher.Len)
		if err != nil {
			errs = append(errs, fmt.Sprintf("entry %q: file not found: %s", key, out.Path))
			continue
		}
		if sum != out.Hash {
			errs = append(errs, fmt.Sprintf("entry %q: hash mismatch: manifest=%s, disk=%s", key, out.Hash, sum))
		}
	}

	if m.Stats.TotalEntries != len(m.Entries) {
		errs = append(errs, fmt.Sprintf("stats.total_entries mismatch: %d != %d", m.Stats.TotalEntries, len(m.Entries)))
	}
	if m.Stats.OverBudget != overBudget {
		errs = append(errs, fmt.Sprintf("stats.over_budget mismatch: %d != %d", m.Stats.OverBudget, overBudget))
	}

	return errs
}
