//go:build vips

package formats

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"

	"github.com/anthonynsimon/bild/clone"
	govips "github.com/davidbyttow/govips/v2/vips"

	"github.com/AnyUserName/imgio/internal/plugin"
)

var vipsStartup sync.Once

// startVips initializes libvips once per process; it is never shut down
// because the registry lives for the whole process.
func startVips() {
	vipsStartup.Do(func() {
		govips.Startup(nil)
	})
}

func newJPEG2000Decoder() (plugin.Decoder, error) {
	startVips()
	return &vipsCodec{format: govips.ImageTypeJP2K, name: JPEG2000}, nil
}

func newJPEG2000Encoder() (plugin.Encoder, error) {
	startVips()
	return &vipsCodec{format: govips.ImageTypeJP2K, name: JPEG2000}, nil
}

func webpEncoderFactory() func() (plugin.Encoder, error) {
	return func() (plugin.Encoder, error) {
		startVips()
		return &vipsCodec{format: govips.ImageTypeWEBP, name: WEBP}, nil
	}
}

// vipsCodec bridges libvips for formats the pure-Go stack cannot handle.
// Pixels cross the boundary as PNG.
type vipsCodec struct {
	format govips.ImageType
	name   string
}

func (c *vipsCodec) load(r io.Reader) (*govips.ImageRef, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	ref, err := govips.NewImageFromBuffer(buf)
	if err != nil {
		return nil, err
	}
	if ref.Format() != c.format {
		ref.Close()
		return nil, fmt.Errorf("vips: not a %s stream", c.name)
	}
	return ref, nil
}

func (c *vipsCodec) DecodeConfig(r io.Reader) (image.Config, error) {
	ref, err := c.load(r)
	if err != nil {
		return image.Config{}, err
	}
	defer ref.Close()
	return image.Config{
		ColorModel: bandsModel(ref.Bands()),
		Width:      ref.Width(),
		Height:     ref.Height(),
	}, nil
}

func (c *vipsCodec) Decode(r io.Reader) (image.Image, error) {
	ref, err := c.load(r)
	if err != nil {
		return nil, err
	}
	defer ref.Close()
	buf, _, err := ref.ExportPng(govips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("vips: export: %w", err)
	}
	return png.Decode(bytes.NewReader(buf))
}

func (c *vipsCodec) Encode(w io.Writer, img image.Image, opts plugin.EncodeOptions) error {
	var src bytes.Buffer
	if err := png.Encode(&src, clone.AsRGBA(img)); err != nil {
		return fmt.Errorf("vips: stage: %w", err)
	}
	ref, err := govips.NewImageFromBuffer(src.Bytes())
	if err != nil {
		return fmt.Errorf("vips: load: %w", err)
	}
	defer ref.Close()

	var out []byte
	switch c.format {
	case govips.ImageTypeJP2K:
		ep := govips.NewJp2kExportParams()
		if opts.Quality > 0 {
			ep.Quality = opts.Quality
		}
		ep.Lossless = opts.Lossless
		out, _, err = ref.ExportJp2k(ep)
	case govips.ImageTypeWEBP:
		ep := govips.NewWebpExportParams()
		if opts.Quality > 0 {
			ep.Quality = opts.Quality
		}
		ep.Lossless = opts.Lossless
		out, _, err = ref.ExportWebp(ep)
	default:
		return fmt.Errorf("vips: no writer for %s", c.name)
	}
	if err != nil {
		return fmt.Errorf("vips: export %s: %w", c.name, err)
	}
	_, err = w.Write(out)
	return err
}

func bandsModel(bands int) color.Model {
	switch bands {
	case 1:
		return color.GrayModel
	case 2, 4:
		return color.NRGBAModel
	}
	return color.RGBAModel
}
