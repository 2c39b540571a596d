package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/AnyUserName/imgio/internal/hasher"
	"github.com/AnyUserName/imgio/internal/imgerr"
	"github.com/AnyUserName/imgio/internal/report"
)

// ConvertConfig holds all parameters for a batch conversion.
type ConvertConfig struct {
	InputDir  string
	OutputDir string
	// Save selects the target format (Save.Format must be set) and its
	// encoding parameters.
	Save SaveOptions
	// Formats restricts which input formats are accepted. Empty means all.
	Formats []string
	Workers int
	// ToolVersion is recorded in the report.
	ToolVersion string
}

// convertResult holds the outcome of converting one source.
type convertResult struct {
	entry report.Entry
	err   error
}

// Convert opens every image under cfg.InputDir and saves it under
// cfg.OutputDir in the target format, mirroring the directory layout.
// Distinct files are processed in parallel, bounded by cfg.Workers.
// Per-file failures are recorded in the report; Convert fails only when
// nothing could be scanned or every file failed.
func (p *Pipeline) Convert(cfg ConvertConfig) (*report.Report, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	target, err := p.ResolveSaveFormat(cfg.Save.Format, "")
	if err != nil {
		return nil, err
	}
	if !target.CanEncode() {
		return nil, imgerr.Unsupported("convert", target.ID, "format is read-only")
	}
	if _, err := p.loader.EnsureLoaded(target); err != nil {
		return nil, err
	}
	cfg.Save.Format = target.ID
	outExt := target.Extensions[0]

	sources, err := ScanImages(cfg.InputDir, p.registry.Extensions())
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no images found in %s", cfg.InputDir)
	}
	p.logger.Info("converting",
		zap.Int("images", len(sources)), zap.String("target", target.ID), zap.Int("workers", cfg.Workers))

	results := make([]convertResult, len(sources))
	var wg sync.WaitGroup
	sem := make(chan struct{}, cfg.Workers)

	for i, src := range sources {
		wg.Add(1)
		go func(idx int, s Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = p.convertOne(s, cfg, outExt)
			if results[idx].err == nil {
				p.logger.Debug("converted",
					zap.String("source", s.RelPath), zap.String("format", results[idx].entry.Format))
			}
		}(i, src)
	}
	wg.Wait()

	r := report.New(cfg.ToolVersion, target.ID)
	caps := p.loader.Capabilities()
	r.Run = &report.RunInfo{
		Workers:    cfg.Workers,
		PrefixSize: p.engine.PrefixSize(),
	}
	if caps != nil {
		r.Run.Native = caps.Flags().Native
		r.Run.GOOS = caps.GOOS()
	}

	for i, res := range results {
		if res.err != nil {
			p.logger.Warn("convert failed", zap.String("source", sources[i].RelPath), zap.Error(res.err))
			f := report.Failure{Source: sources[i].RelPath, Error: res.err.Error()}
			if k, ok := imgerr.KindOf(res.err); ok {
				f.Kind = string(k)
			}
			r.Failures = append(r.Failures, f)
			continue
		}
		r.Entries = append(r.Entries, res.entry)
	}
	r.ComputeStats()

	if len(r.Failures) == len(sources) {
		return r, fmt.Errorf("all %d images failed to convert", len(sources))
	}
	return r, nil
}

func (p *Pipeline) convertOne(src Source, cfg ConvertConfig, outExt string) convertResult {
	f, err := os.Open(src.AbsPath)
	if err != nil {
		return convertResult{err: fmt.Errorf("open %s: %w", src.RelPath, err)}
	}
	defer f.Close()

	inHash, err := hasher.DigestSeeker(f, hasher.DigestLen)
	if err != nil {
		return convertResult{err: fmt.Errorf("%s: %w", src.RelPath, err)}
	}

	im, err := p.open(f, OpenOptions{Filename: src.AbsPath, Formats: cfg.Formats}, nil)
	if err != nil {
		return convertResult{err: err}
	}
	if im.FormatID() != src.Hint {
		p.logger.Debug("content disagrees with extension",
			zap.String("source", src.RelPath), zap.String("extension", src.Hint), zap.String("content", im.FormatID()))
	}

	relOut := filepath.ToSlash(src.Key + outExt)
	outPath := filepath.Join(cfg.OutputDir, filepath.FromSlash(relOut))
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return convertResult{err: fmt.Errorf("mkdir for %s: %w", relOut, err)}
	}
	data, err := p.saveFile(im.pixels, outPath, cfg.Save)
	if err != nil {
		return convertResult{err: err}
	}

	return convertResult{entry: report.Entry{
		Source:      src.RelPath,
		Format:      im.FormatID(),
		ByExtension: im.byExtension,
		Mode:        im.Mode(),
		Width:       im.Width(),
		Height:      im.Height(),
		InputSize:   src.Size,
		InputHash:   inHash,
		Output: report.Output{
			Path: relOut,
			Size: int64(len(data)),
			Hash: hasher.Digest(data, hasher.DigestLen),
		},
	}}
}
