package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/AnyUserName/imgio/internal/identify"
	"github.com/AnyUserName/imgio/internal/imgerr"
	"github.com/AnyUserName/imgio/internal/plugin"
)

// OpenOptions control a single open.
type OpenOptions struct {
	// Filename is used for the extension fallback and in messages.
	Filename string
	// Formats restricts the formats considered. Empty means all.
	Formats []string
	// Lazy reads only the header; pixels are decoded on Load.
	Lazy bool
}

// Open identifies and decodes r. A reader that cannot seek is buffered in
// memory first. On failure the stream position of a seekable r is where
// it was on entry.
func (p *Pipeline) Open(r io.Reader, opts OpenOptions) (*Image, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("open: buffer stream: %w", err)
		}
		rs = bytes.NewReader(data)
	}
	return p.open(rs, opts, nil)
}

// OpenFile opens the file at path. The file is closed on every error path;
// a lazily opened handle owns it until Load or Close.
func (p *Pipeline) OpenFile(path string, opts OpenOptions) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if opts.Filename == "" {
		opts.Filename = path
	}
	im, err := p.open(f, opts, f.Close)
	if err != nil {
		f.Close()
		return nil, err
	}
	if !opts.Lazy {
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("close %s: %w", path, err)
		}
	}
	return im, nil
}

// open runs IDENTIFY, then LOAD_PLUGIN and DECODE for each candidate the
// retry policy allows. closer, if set, is handed to a lazy handle.
func (p *Pipeline) open(rs io.ReadSeeker, opts OpenOptions, closer func() error) (*Image, error) {
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("open: tell: %w", err)
	}

	m, err := p.engine.Identify(rs, opts.Filename)
	if err != nil {
		return nil, err
	}
	if !m.Filter(opts.Formats) {
		return nil, imgerr.Unrecognized("open",
			fmt.Errorf("%w: not among allowed formats %v", imgerr.ErrUnrecognizedFormat, opts.Formats))
	}
	readable := readableCandidates(m)
	if len(readable) == 0 {
		return nil, imgerr.Unsupported("open", m.Descriptor.ID, "format is write-only")
	}

	ambiguous := len(m.Candidates) > 1
	var attempts []error
	for i, d := range readable {
		im, err := p.attempt(rs, start, d, opts.Lazy)
		if err == nil {
			im.byExtension = m.ByExtension
			if opts.Lazy {
				im.pending.close = closer
			}
			if i > 0 {
				p.logger.Debug("opened after retry",
					zap.String("file", opts.Filename), zap.String("format", d.ID), zap.Int("attempt", i+1))
			}
			return im, nil
		}
		if _, serr := rs.Seek(start, io.SeekStart); serr != nil {
			return nil, fmt.Errorf("open: rewind: %w", serr)
		}
		if !ambiguous || !imgerr.IsRetryable(err) {
			return nil, err
		}
		p.logger.Debug("candidate failed",
			zap.String("file", opts.Filename), zap.String("format", d.ID), zap.Error(err))
		attempts = append(attempts, err)
	}
	return nil, imgerr.Unrecognized("open",
		errors.Join(append([]error{imgerr.ErrUnrecognizedFormat}, attempts...)...))
}

// attempt loads d's plugin, reads the header and, unless lazy, decodes
// from start. The mode is always taken from the header so that lazy and
// eager opens of one stream agree. It leaves the stream position
// unspecified; the caller rewinds.
func (p *Pipeline) attempt(rs io.ReadSeeker, start int64, d *plugin.Descriptor, lazy bool) (*Image, error) {
	codec, err := p.loader.EnsureLoaded(d)
	if err != nil {
		return nil, err
	}
	if codec.Decoder == nil {
		return nil, imgerr.Unsupported("open", d.ID, "format is write-only")
	}

	cfg, err := codec.Decoder.DecodeConfig(rs)
	if err != nil {
		return nil, imgerr.Wrap(imgerr.KindMalformed, "open", d.ID, err)
	}
	if _, err := rs.Seek(start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("open: rewind: %w", err)
	}
	mode := ModeOfModel(cfg.ColorModel)

	if lazy {
		return &Image{
			format:  d,
			mode:    mode,
			width:   cfg.Width,
			height:  cfg.Height,
			pending: &deferred{src: rs, start: start, dec: codec.Decoder},
			p:       p,
		}, nil
	}

	img, err := codec.Decoder.Decode(rs)
	if err != nil {
		return nil, imgerr.Wrap(imgerr.KindMalformed, "open", d.ID, err)
	}
	if b := img.Bounds(); b.Empty() {
		return nil, imgerr.Malformed("open", d.ID, fmt.Errorf("empty image %v", b))
	}
	im := &Image{format: d, p: p}
	im.setPixels(img, mode)
	return im, nil
}

func readableCandidates(m *identify.Match) []*plugin.Descriptor {
	out := make([]*plugin.Descriptor, 0, len(m.Candidates))
	for _, d := range m.Candidates {
		if d.CanDecode() {
			out = append(out, d)
		}
	}
	return out
}

func errSizeMismatch(b image.Rectangle, w, h int) error {
	return fmt.Errorf("decoded %dx%d, header said %dx%d", b.Dx(), b.Dy(), w, h)
}
