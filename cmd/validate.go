package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/imgio/internal/hasher"
	"github.com/AnyUserName/imgio/internal/pipeline"
	"github.com/AnyUserName/imgio/internal/report"
)

var validateCmd = &cobra.Command{
	Use:   "validate <report_path>",
	Short: "Validate a conversion report against the files on disk",
	Long: `Checks that every output listed in the report exists, has the recorded
size and hash, and is recognized as the report's target format.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func readReport(path string) (*report.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r report.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return &r, nil
}

func runValidate(_ *cobra.Command, args []string) error {
	reportPath := args[0]
	r, err := readReport(reportPath)
	if err != nil {
		return err
	}

	errs := validateReport(r, filepath.Dir(reportPath), pipe)
	if len(errs) == 0 {
		fmt.Println("  ✓ Report is valid")
		fmt.Printf("  ✓ %d outputs present and identified as %s\n", len(r.Entries), r.TargetFormat)
		return nil
	}

	fmt.Printf("  ✗ Report has %d error(s):\n", len(errs))
	for _, e := range errs {
		fmt.Printf("    • %s\n", e)
	}
	return fmt.Errorf("validation failed with %d errors", len(errs))
}

// validateReport checks r against the files under baseDir. With a non-nil
// p, each output is also identified and compared with the target format.
func validateReport(r *report.Report, baseDir string, p *pipeline.Pipeline) []string {
	var errs []string

	if r.Schema != report.SchemaVersion {
		errs = append(errs, fmt.Sprintf("unsupported schema %d (expected %d)", r.Schema, report.SchemaVersion))
	}
	if r.TargetFormat == "" {
		errs = append(errs, "missing target_format")
	}

	seenPaths := map[string]bool{}
	for i, e := range r.Entries {
		name := e.Source
		if name == "" {
			name = fmt.Sprintf("entries[%d]", i)
			errs = append(errs, fmt.Sprintf("%s: missing source", name))
		}
		if e.Format == "" {
			errs = append(errs, fmt.Sprintf("%s: empty format", name))
		}
		if e.Width <= 0 || e.Height <= 0 {
			errs = append(errs, fmt.Sprintf("%s: invalid dimensions %dx%d", name, e.Width, e.Height))
		}
		if e.Output.Path == "" {
			errs = append(errs, fmt.Sprintf("%s: missing output path", name))
			continue
		}
		if seenPaths[e.Output.Path] {
			errs = append(errs, fmt.Sprintf("%s: duplicate output path %q", name, e.Output.Path))
		}
		seenPaths[e.Output.Path] = true

		fullPath := filepath.Join(baseDir, filepath.FromSlash(e.Output.Path))
		errs = append(errs, checkOutput(name, fullPath, e, r.TargetFormat, p)...)
	}

	converted, in, out := len(r.Entries), int64(0), int64(0)
	for _, e := range r.Entries {
		in += e.InputSize
		out += e.Output.Size
	}
	if r.Stats.Converted != converted {
		errs = append(errs, fmt.Sprintf("stats.converted mismatch: %d != %d", r.Stats.Converted, converted))
	}
	if r.Stats.Failed != len(r.Failures) {
		errs = append(errs, fmt.Sprintf("stats.failed mismatch: %d != %d", r.Stats.Failed, len(r.Failures)))
	}
	if r.Stats.TotalInputBytes != in || r.Stats.TotalOutputBytes != out {
		errs = append(errs, "stats byte totals do not match entries")
	}
	return errs
}

func checkOutput(name, path string, e report.Entry, target string, p *pipeline.Pipeline) []string {
	f, err := os.Open(path)
	if err != nil {
		return []string{fmt.Sprintf("%s: output not found: %s", name, e.Output.Path)}
	}
	defer f.Close()

	var errs []string
	if info, err := f.Stat(); err == nil && e.Output.Size > 0 && info.Size() != e.Output.Size {
		errs = append(errs, fmt.Sprintf("%s: size mismatch: report=%d, disk=%d", name, e.Output.Size, info.Size()))
	}
	if e.Output.Hash != "" {
		sum, err := hasher.DigestSeeker(f, len(e.Output.Hash))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
		} else if sum != e.Output.Hash {
			errs = append(errs, fmt.Sprintf("%s: hash mismatch: report=%s, disk=%s", name, e.Output.Hash, sum))
		}
	}
	if p == nil {
		return errs
	}

	im, err := p.Open(f, pipeline.OpenOptions{Lazy: true})
	if err != nil {
		return append(errs, fmt.Sprintf("%s: output unreadable: %v", name, err))
	}
	defer im.Close()
	if im.FormatID() != target {
		errs = append(errs, fmt.Sprintf("%s: output is %s, report says %s", name, im.FormatID(), target))
	}
	if im.Width() != e.Width || im.Height() != e.Height {
		errs = append(errs, fmt.Sprintf("%s: output is %dx%d, source was %dx%d",
			name, im.Width(), im.Height(), e.Width, e.Height))
	}
	return errs
}
