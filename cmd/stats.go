package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/AnyUserName/imgfit-cli/internal/manifest"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats <out_dir_or_manifest>",
	Short: "Display statistics for a batch output directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(_ *cobra.Command, args []string) error {
	path := args[0]

	// If path is a directory, look for manifest inside.
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		path = filepath.Join(path, manifest.FileName)
	}

	m, err := manifest.ReadJSON(path)
	if err != nil {
		return err
	}

	printStats(m)
	return nil
}

func printStats(m *manifest.Manifest) {
	fmt.Println()
	fmt.Printf("  Manifest version: %d\n", m.Version)
	fmt.Printf("  Generated:        %s\n", m.GeneratedAt)
	fmt.Printf("  Profile:          %s (budget %d KB)\n", m.Profile, m.BudgetKB)
	if m.BuildInfo != nil {
		fmt.Printf("  Target:           %s\n", m.BuildInfo.Target)
		if m.BuildInfo.Rasterizer != "" {
			fmt.Printf("  PDF rasterizer:   %s\n", m.BuildInfo.Rasterizer)
		}
	}
	fmt.Println()

	s := m.Stats
	fmt.Printf("  Entries:          %d (%d over budget, %d failed)\n", s.TotalEntries, s.OverBudget, s.Failed)
	fmt.Printf("  Input size:       %s\n", humanize.IBytes(uint64(s.TotalInputBytes)))
	fmt.Printf("  Output size:      %s\n", humanize.IBytes(uint64(s.TotalOutputBytes)))
	if s.TotalInputBytes > 0 {
		fmt.Printf("  Compression:      %.1f%% of original\n", float64(s.TotalOutputBytes)/float64(s.TotalInputBytes)*100)
	}
	fmt.Println()

	fmt.Println(renderTable(
		[]string{"Source", "Kind", "Output", "Size", "Param", "Tries", "Budget"},
		statsRows(m),
		map[int]bool{3: true, 4: true, 5: true},
	))
	fmt.Println()
}

// statsRows lists entries, largest output first.
func statsRows(m *manifest.Manifest) [][]string {
	keys := make([]string, 0, len(m.Entries))
	for k := range m.Entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := m.Entries[keys[i]], m.Entries[keys[j]]
		if a.Output.Size != b.Output.Size {
			return a.Output.Size > b.Output.Size
		}
		return keys[i] < keys[j]
	})

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		e := m.Entries[k]
		met := "✓"
		if !e.Output.MetBudget {
			met = "✗"
		}
		rows = append(rows, []string{
			truncKey(k, 40),
			e.Source.Kind,
			e.Output.Format,
			humanize.IBytes(uint64(e.Output.Size)),
			strconv.Itoa(e.Output.Param),
			strconv.Itoa(len(e.Attempts)),
			met,
		})
	}
	return rows
}

func truncKey(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}
