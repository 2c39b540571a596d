package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/imgio/internal/report"
)

const topOutputs = 10

var statsCmd = &cobra.Command{
	Use:   "stats <out_dir_or_report>",
	Short: "Display statistics for a conversion report",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(_ *cobra.Command, args []string) error {
	path := args[0]

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		path = filepath.Join(path, reportName)
	}

	r, err := readReport(path)
	if err != nil {
		return err
	}
	printStats(r)
	return nil
}

func printStats(r *report.Report) {
	fmt.Println()
	fmt.Printf("  Report schema:    %d\n", r.Schema)
	fmt.Printf("  Tool version:     %s\n", r.ToolVersion)
	fmt.Printf("  Generated:        %s\n", r.GeneratedAt)
	fmt.Printf("  Target format:    %s\n", r.TargetFormat)
	if r.Run != nil {
		backend := "pure Go"
		if r.Run.Native {
			backend = "native (vips)"
		}
		fmt.Printf("  Workers:          %d\n", r.Run.Workers)
		fmt.Printf("  Codecs:           %s on %s\n", backend, r.Run.GOOS)
	}
	fmt.Println()

	s := r.Stats
	fmt.Printf("  Converted:        %d\n", s.Converted)
	fmt.Printf("  Failed:           %d\n", s.Failed)
	fmt.Printf("  Input size:       %s\n", formatBytes(s.TotalInputBytes))
	fmt.Printf("  Output size:      %s\n", formatBytes(s.TotalOutputBytes))
	if s.TotalInputBytes > 0 {
		ratio := float64(s.TotalOutputBytes) / float64(s.TotalInputBytes) * 100
		fmt.Printf("  Size ratio:       %.1f%% of original\n", ratio)
	}
	fmt.Println()

	// Per-mode breakdown.
	modes := map[string]int{}
	extFallback := 0
	for _, e := range r.Entries {
		modes[e.Mode]++
		if e.ByExtension {
			extFallback++
		}
	}
	if len(modes) > 0 {
		fmt.Println("  Mode breakdown:")
		for _, m := range sortedKeys(modes) {
			fmt.Printf("    %-8s %4d images\n", m, modes[m])
		}
		fmt.Println()
	}

	largest := append([]report.Entry(nil), r.Entries...)
	sort.SliceStable(largest, func(i, j int) bool { return largest[i].Output.Size > largest[j].Output.Size })
	largest = largest[:min(len(largest), topOutputs)]
	if len(largest) > 0 {
		fmt.Printf("  Top %d largest outputs (original → converted):\n", len(largest))
		for _, e := range largest {
			fmt.Printf("    %-40s %8s → %8s\n",
				truncPath(e.Source, 40), formatBytes(e.InputSize), formatBytes(e.Output.Size))
		}
		fmt.Println()
	}

	// Warnings.
	var warnings []string
	if extFallback > 0 {
		warnings = append(warnings, fmt.Sprintf("%d inputs were identified by extension only", extFallback))
	}
	for _, f := range r.Failures {
		kind := f.Kind
		if kind == "" {
			kind = "error"
		}
		warnings = append(warnings, fmt.Sprintf("%s: %s (%s)", f.Source, f.Error, kind))
	}
	if len(warnings) > 0 {
		fmt.Printf("  Warnings (%d):\n", len(warnings))
		for _, w := range warnings {
			fmt.Printf("    ⚠ %s\n", w)
		}
		fmt.Println()
	}
}
