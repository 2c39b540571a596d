package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AnyUserName/imgio/internal/hasher"
	"github.com/AnyUserName/imgio/internal/imgerr"
	"github.com/AnyUserName/imgio/internal/pipeline"
)

var (
	identifyDecode  bool
	identifyJSON    bool
	identifyFormats []string
)

var identifyCmd = &cobra.Command{
	Use:   "identify <file>...",
	Short: "Report the format, size and mode of image files",
	Long: `Reads the leading bytes of each file, picks the matching format plugin
and reads the image header. With --decode the full pixel data is decoded
as well, which catches truncated or corrupt files.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIdentify,
}

func init() {
	identifyCmd.Flags().BoolVar(&identifyDecode, "decode", false, "decode pixel data, not only the header")
	identifyCmd.Flags().BoolVar(&identifyJSON, "json", false, "print one JSON object per file")
	identifyCmd.Flags().StringSliceVar(&identifyFormats, "formats", nil, "only accept these format IDs")
	rootCmd.AddCommand(identifyCmd)
}

// identifyResult is one line of identify output.
type identifyResult struct {
	Path        string `json:"path"`
	Format      string `json:"format,omitempty"`
	ByExtension bool   `json:"by_extension,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Hash        string `json:"hash,omitempty"`
	Error       string `json:"error,omitempty"`
	Kind        string `json:"kind,omitempty"`
}

func runIdentify(_ *cobra.Command, args []string) error {
	formats := identifyFormats
	if formats == nil {
		formats = cfg.Formats
	}

	failed := 0
	enc := json.NewEncoder(os.Stdout)
	for _, path := range args {
		res := identifyFile(pipe, path, formats, identifyDecode || !cfg.Lazy)
		if res.Error != "" {
			failed++
			logger.Debug("identify failed", zap.String("path", path), zap.String("error", res.Error))
		}
		if identifyJSON {
			if err := enc.Encode(res); err != nil {
				return err
			}
			continue
		}
		printIdentify(res)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be identified", failed, len(args))
	}
	return nil
}

func identifyFile(p *pipeline.Pipeline, path string, formats []string, decode bool) identifyResult {
	res := identifyResult{Path: path}
	fail := func(err error) identifyResult {
		res.Error = err.Error()
		if k, ok := imgerr.KindOf(err); ok {
			res.Kind = string(k)
		}
		return res
	}

	f, err := os.Open(path)
	if err != nil {
		return fail(err)
	}
	defer f.Close()

	if res.Hash, err = hasher.DigestSeeker(f, hasher.DigestLen); err != nil {
		return fail(err)
	}
	im, err := p.Open(f, pipeline.OpenOptions{Filename: path, Formats: formats, Lazy: !decode})
	if err != nil {
		return fail(err)
	}
	defer im.Close()

	res.Format = im.FormatID()
	res.ByExtension = im.ByExtension()
	res.Mode = im.Mode()
	res.Width, res.Height = im.Width(), im.Height()
	return res
}

func printIdentify(r identifyResult) {
	if r.Error != "" {
		fmt.Printf("%s: error: %s\n", r.Path, r.Error)
		return
	}
	note := ""
	if r.ByExtension {
		note = " (by extension)"
	}
	fmt.Printf("%s: %s %dx%d %s%s xxh64=%s\n", r.Path, r.Format, r.Width, r.Height, r.Mode, note, r.Hash)
}
