package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strings"

	"github.com/AnyUserName/imgfit-cli/internal/profile"
	"github.com/spf13/cobra"
)

var (
	version     = "0.1.0"
	verbose     bool
	profileName string
	configPath  string
	budgetKB    int
)

var rootCmd = &cobra.Command{
	Use:   "imgfit",
	Short: "Convert images and PDFs into size-bounded JPEG, PNG or PDF files",
	Long: `imgfit — converts an image or single-page PDF into JPEG, PNG or PDF
while keeping the result under a size budget.

Transparent areas are flattened onto white. JPEG quality (85 down to 10)
or PNG compression level (9 down to 0) is stepped until the output fits;
if nothing fits, the last attempt is kept and reported as over budget.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(verbose)
	},
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "imgfit: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", profile.Default, "built-in profile (default, strict, relaxed)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML profile file (overrides --profile values)")
	rootCmd.PersistentFlags().IntVarP(&budgetKB, "budget", "b", 0, "size budget in KB (0 = profile value)")
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"imgfit %s (%s/%s, %s)\n",
		version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}

// setupLogging installs a stderr text logger; --verbose enables per-attempt
// debug records.
func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h).With("app", "imgfit"))
}

// resolveProfile applies --profile, then --config, then --budget.
func resolveProfile() (profile.Profile, error) {
	if names := profile.Names(); !slices.Contains(names, profileName) {
		return profile.Profile{}, fmt.Errorf("unknown profile %q (want one of: %s)",
			profileName, strings.Join(names, ", "))
	}
	p := profile.Get(profileName)
	if configPath != "" {
		loaded, err := profile.Load(configPath, profileName)
		if err != nil {
			return profile.Profile{}, err
		}
		p = loaded
	}
	if budgetKB > 0 {
		p.SizeBudgetKB = budgetKB
	}
	if err := p.Validate(); err != nil {
		return profile.Profile{}, fmt.Errorf("profile %s: %w", p.Name, err)
	}
	slog.Debug("profile", "name", p.Name, "budget_kb", p.SizeBudgetKB,
		"jpeg", p.JPEGQuality, "png", p.PNGLevel, "dpi", p.RasterDPI)
	return p, nil
}
