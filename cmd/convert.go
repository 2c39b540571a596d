package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/imgio/internal/pipeline"
	"github.com/AnyUserName/imgio/internal/report"
	"github.com/AnyUserName/imgio/internal/version"
)

// reportName is the report file written into the output directory.
const reportName = "imgio.report.json"

var (
	convertOutDir   string
	convertFormat   string
	convertWorkers  int
	convertQuality  int
	convertLossless bool
	convertReport   string
)

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Convert an image or a directory of images to another format",
	Long: `With a file argument, opens it and writes it to --out. The target
format comes from --format or from the extension of --out.

With a directory argument, converts every recognized image below it into
--out, keeping the relative layout, and writes imgio.report.json there.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutDir, "out", "o", "", "output file or directory (required)")
	convertCmd.Flags().StringVarP(&convertFormat, "format", "f", "", "target format ID, e.g. PNG")
	convertCmd.Flags().IntVarP(&convertWorkers, "workers", "w", 0, "parallel workers (0 = config, then NumCPU)")
	convertCmd.Flags().IntVarP(&convertQuality, "quality", "q", 0, "quality 1-100 (0 = config default)")
	convertCmd.Flags().BoolVar(&convertLossless, "lossless", false, "use the lossless mode where the format has one")
	convertCmd.Flags().StringVar(&convertReport, "report", "", "report path (default <out>/"+reportName+")")
	_ = convertCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(convertCmd)
}

func saveOptions() pipeline.SaveOptions {
	opts := pipeline.SaveOptions{
		Format:   convertFormat,
		Quality:  cfg.Save.Quality,
		Lossless: cfg.Save.Lossless || convertLossless,
	}
	if convertQuality > 0 {
		opts.Quality = convertQuality
	}
	return opts
}

func runConvert(_ *cobra.Command, args []string) error {
	info, err := os.Stat(args[0])
	if err != nil {
		return fmt.Errorf("stat %s: %w", args[0], err)
	}
	if !info.IsDir() {
		return convertFile(args[0], convertOutDir)
	}
	return convertDir(args[0], convertOutDir)
}

func convertFile(in, out string) error {
	im, err := pipe.OpenFile(in, pipeline.OpenOptions{Formats: cfg.Formats})
	if err != nil {
		return err
	}
	if err := im.SaveFile(out, saveOptions()); err != nil {
		return err
	}
	logVerbose("%s (%s %dx%d %s) -> %s", in, im.FormatID(), im.Width(), im.Height(), im.Mode(), out)
	return nil
}

func convertDir(in, out string) error {
	start := time.Now()
	if convertFormat == "" {
		return fmt.Errorf("--format is required when converting a directory")
	}

	absInput, err := filepath.Abs(in)
	if err != nil {
		return fmt.Errorf("resolve input path: %w", err)
	}
	absOutput, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}
	if err := os.MkdirAll(absOutput, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	workers := convertWorkers
	if workers == 0 {
		workers = cfg.Workers
	}
	logVerbose("input:  %s", absInput)
	logVerbose("output: %s", absOutput)

	r, runErr := pipe.Convert(pipeline.ConvertConfig{
		InputDir:    absInput,
		OutputDir:   absOutput,
		Save:        saveOptions(),
		Formats:     cfg.Formats,
		Workers:     workers,
		ToolVersion: version.Version,
	})
	if r == nil {
		return fmt.Errorf("convert: %w", runErr)
	}

	reportPath := convertReport
	if reportPath == "" {
		reportPath = filepath.Join(absOutput, reportName)
	}
	if err := report.WriteJSON(r, reportPath); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	printConvertSummary(r, reportPath, time.Since(start))
	return runErr
}

func printConvertSummary(r *report.Report, reportPath string, elapsed time.Duration) {
	s := r.Stats
	fmt.Println()
	fmt.Printf("  Target:      %s\n", r.TargetFormat)
	fmt.Printf("  Converted:   %d\n", s.Converted)
	if s.Failed > 0 {
		fmt.Printf("  Failed:      %d\n", s.Failed)
	}
	fmt.Printf("  Input size:  %s\n", formatBytes(s.TotalInputBytes))
	fmt.Printf("  Output size: %s\n", formatBytes(s.TotalOutputBytes))
	fmt.Printf("  Time:        %s\n", elapsed.Round(time.Millisecond))
	if r.Run != nil {
		fmt.Printf("  Workers:     %d\n", r.Run.Workers)
	}
	fmt.Println()

	if len(s.ByFormat) > 0 {
		fmt.Println("  Source formats:")
		for _, f := range sortedKeys(s.ByFormat) {
			fmt.Printf("    %-9s %4d files\n", f, s.ByFormat[f])
		}
		fmt.Println()
	}
	for _, f := range r.Failures {
		fmt.Printf("  ✗ %s: %s\n", f.Source, f.Error)
	}
	fmt.Printf("  Report:      %s\n", reportPath)
	fmt.Println()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatBytes renders b with a binary unit, one decimal above bytes.
func formatBytes(b int64) string {
	if b < 1<<10 {
		return fmt.Sprintf("%d B", b)
	}
	v, unit := float64(b)/(1<<10), "KB"
	if b >= 1<<20 {
		v, unit = float64(b)/(1<<20), "MB"
	}
	return fmt.Sprintf("%.1f %s", v, unit)
}

func truncPath(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}
