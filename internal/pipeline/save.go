package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/AnyUserName/imgio/internal/imgerr"
	"github.com/AnyUserName/imgio/internal/plugin"
)

// SaveOptions control a single save.
type SaveOptions struct {
	// Format is a format ID. Empty selects by destination extension.
	Format   string
	Quality  int
	Lossless bool
}

// Save encodes img into w. Nothing is written to w unless encoding
// succeeds.
func (p *Pipeline) Save(img image.Image, w io.Writer, opts SaveOptions) error {
	if opts.Format == "" {
		return imgerr.Unsupported("save", "", "no format given and no destination name")
	}
	data, d, err := p.encode(img, opts.Format, "", opts)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("save %s: write: %w", d.ID, err)
	}
	return nil
}

// SaveFile encodes img and writes it to path. The file only appears once
// encoding and writing have both succeeded; an existing file at path is
// left untouched on failure.
func (p *Pipeline) SaveFile(img image.Image, path string, opts SaveOptions) error {
	_, err := p.saveFile(img, path, opts)
	return err
}

// saveFile is SaveFile returning the bytes written.
func (p *Pipeline) saveFile(img image.Image, path string, opts SaveOptions) ([]byte, error) {
	data, d, err := p.encode(img, opts.Format, path, opts)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", path, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("save %s: write: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("save %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("save %s: close: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return nil, fmt.Errorf("save %s: %w", path, err)
	}
	committed = true

	p.logger.Debug("saved",
		zap.String("path", path), zap.String("format", d.ID), zap.Int("bytes", len(data)))
	return data, nil
}

// ResolveSaveFormat picks the descriptor for a save: by ID when format is
// set, otherwise by the extension of dest.
func (p *Pipeline) ResolveSaveFormat(format, dest string) (*plugin.Descriptor, error) {
	if format != "" {
		d, ok := p.registry.LookupByID(format)
		if !ok {
			return nil, imgerr.Unsupported("save", strings.ToUpper(format), "unknown format")
		}
		return d, nil
	}
	ext := filepath.Ext(dest)
	if ext == "" {
		return nil, imgerr.Unsupported("save", "", "cannot determine format from "+filepath.Base(dest))
	}
	d, ok := p.registry.LookupByExtension(ext)
	if !ok {
		return nil, imgerr.Unsupported("save", "", "unknown extension "+ext)
	}
	return d, nil
}

func (p *Pipeline) encode(img image.Image, format, dest string, opts SaveOptions) ([]byte, *plugin.Descriptor, error) {
	if img == nil {
		return nil, nil, fmt.Errorf("save: nil image")
	}
	d, err := p.ResolveSaveFormat(format, dest)
	if err != nil {
		return nil, nil, err
	}
	if !d.CanEncode() {
		return nil, d, imgerr.Unsupported("save", d.ID, "format is read-only")
	}
	codec, err := p.loader.EnsureLoaded(d)
	if err != nil {
		return nil, d, err
	}
	if codec.Encoder == nil {
		return nil, d, imgerr.Unsupported("save", d.ID, "format is read-only")
	}

	var buf bytes.Buffer
	err = codec.Encoder.Encode(&buf, img, plugin.EncodeOptions{Quality: opts.Quality, Lossless: opts.Lossless})
	if err != nil {
		return nil, d, imgerr.Wrap(imgerr.KindMalformed, "save", d.ID, err)
	}
	return buf.Bytes(), d, nil
}
