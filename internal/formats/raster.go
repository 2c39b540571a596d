package formats

import (
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/anthonynsimon/bild/clone"
	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"github.com/AnyUserName/imgio/internal/plugin"
)

// defaultJPEGQuality matches the quality the JPEG writer uses when the
// caller passes none.
const defaultJPEGQuality = 75

// bmpCodec reads and writes Windows bitmaps via golang.org/x/image/bmp.
type bmpCodec struct{}

func (c *bmpCodec) DecodeConfig(r io.Reader) (image.Config, error) { return bmp.DecodeConfig(r) }
func (c *bmpCodec) Decode(r io.Reader) (image.Image, error)        { return bmp.Decode(r) }

func (c *bmpCodec) Encode(w io.Writer, img image.Image, _ plugin.EncodeOptions) error {
	switch img.(type) {
	case *image.Gray, *image.Paletted, *image.RGBA, *image.NRGBA:
	default:
		// The writer only has fast paths for the layouts above.
		img = clone.AsRGBA(img)
	}
	return bmp.Encode(w, img)
}

// gifCodec decodes the first frame only.
type gifCodec struct{}

func (c *gifCodec) DecodeConfig(r io.Reader) (image.Config, error) { return gif.DecodeConfig(r) }
func (c *gifCodec) Decode(r io.Reader) (image.Image, error)        { return gif.Decode(r) }

func (c *gifCodec) Encode(w io.Writer, img image.Image, _ plugin.EncodeOptions) error {
	return imaging.Encode(w, img, imaging.GIF, imaging.GIFNumColors(256))
}

type jpegCodec struct{}

func (c *jpegCodec) DecodeConfig(r io.Reader) (image.Config, error) { return jpeg.DecodeConfig(r) }
func (c *jpegCodec) Decode(r io.Reader) (image.Image, error)        { return jpeg.Decode(r) }

func (c *jpegCodec) Encode(w io.Writer, img image.Image, opts plugin.EncodeOptions) error {
	q := opts.Quality
	if q <= 0 || q > 100 {
		q = defaultJPEGQuality
	}
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(q))
}

type pngCodec struct{}

func (c *pngCodec) DecodeConfig(r io.Reader) (image.Config, error) { return png.DecodeConfig(r) }
func (c *pngCodec) Decode(r io.Reader) (image.Image, error)        { return png.Decode(r) }

func (c *pngCodec) Encode(w io.Writer, img image.Image, opts plugin.EncodeOptions) error {
	level := png.DefaultCompression
	if opts.Quality > 0 && opts.Quality < 50 {
		// Low quality requests trade size for speed; PNG stays lossless.
		level = png.BestSpeed
	} else if opts.Quality >= 90 {
		level = png.BestCompression
	}
	return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(level))
}

type tiffCodec struct{}

func (c *tiffCodec) DecodeConfig(r io.Reader) (image.Config, error) { return tiff.DecodeConfig(r) }
func (c *tiffCodec) Decode(r io.Reader) (image.Image, error)        { return tiff.Decode(r) }

func (c *tiffCodec) Encode(w io.Writer, img image.Image, _ plugin.EncodeOptions) error {
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// webpCodec decodes with golang.org/x/image/webp. Encoding needs the native
// backend, see webpEncoderFactory.
type webpCodec struct{}

func (c *webpCodec) DecodeConfig(r io.Reader) (image.Config, error) { return webp.DecodeConfig(r) }
func (c *webpCodec) Decode(r io.Reader) (image.Image, error)        { return webp.Decode(r) }
