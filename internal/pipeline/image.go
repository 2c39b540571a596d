package pipeline

import (
	"errors"
	"image"
	"io"
	"sync"

	"github.com/AnyUserName/imgio/internal/imgerr"
	"github.com/AnyUserName/imgio/internal/plugin"
)

// ErrClosed is returned when pixels are requested from a closed handle.
var ErrClosed = errors.New("image handle closed")

// Image is the handle produced by a successful open. It records the format
// that produced it, its mode and size, and owns the decoded pixels.
//
// The mode is the one the decoder declares in the header, whether or not
// the pixels are decoded; it changes on Load only when the header declared
// none. A handle opened lazily keeps its stream and decoder until Load or
// Close. A handle is not safe for concurrent use.
type Image struct {
	format *plugin.Descriptor
	mode   string
	width  int
	height int
	pixels image.Image
	// byExtension is set when no signature matched and the file name chose
	// the format.
	byExtension bool

	// deferred-load state, nil once loaded or closed
	pending *deferred
	closed  bool
	p       *Pipeline
}

type deferred struct {
	src   io.ReadSeeker
	start int64
	dec   plugin.Decoder
	close func() error // releases src if the handle owns it
	once  sync.Once
}

// Format returns the descriptor of the format the image was decoded from.
// Images built with FromImage have none.
func (im *Image) Format() *plugin.Descriptor { return im.format }

// FormatID returns the format identifier, or "" for in-memory images.
func (im *Image) FormatID() string {
	if im.format == nil {
		return ""
	}
	return im.format.ID
}

// ByExtension reports whether the format was chosen from the file name
// because no signature matched.
func (im *Image) ByExtension() bool { return im.byExtension }

// Mode returns the pixel mode, e.g. "RGB" or "L".
func (im *Image) Mode() string { return im.mode }

func (im *Image) Width() int  { return im.width }
func (im *Image) Height() int { return im.height }

// Bounds returns the image rectangle.
func (im *Image) Bounds() image.Rectangle { return image.Rect(0, 0, im.width, im.height) }

// Loaded reports whether the pixels are in memory.
func (im *Image) Loaded() bool { return im.pixels != nil }

// Load decodes the pixels of a lazily opened image and releases its stream.
// It is a no-op for loaded images.
func (im *Image) Load() error {
	if im.pixels != nil {
		return nil
	}
	if im.closed || im.pending == nil {
		return ErrClosed
	}
	d := im.pending
	defer im.release()

	if _, err := d.src.Seek(d.start, io.SeekStart); err != nil {
		return imgerr.Malformed("load", im.FormatID(), err)
	}
	img, err := d.dec.Decode(d.src)
	if err != nil {
		_, _ = d.src.Seek(d.start, io.SeekStart)
		return imgerr.Wrap(imgerr.KindMalformed, "load", im.FormatID(), err)
	}
	if b := img.Bounds(); b.Dx() != im.width || b.Dy() != im.height {
		return imgerr.Malformed("load", im.FormatID(), errSizeMismatch(b, im.width, im.height))
	}
	im.setPixels(img, im.mode)
	return nil
}

// Pixels returns the decoded image, loading it first if needed.
func (im *Image) Pixels() (image.Image, error) {
	if err := im.Load(); err != nil {
		return nil, err
	}
	return im.pixels, nil
}

// Close releases the stream and decoder of a lazily opened image. The
// pixels of a loaded image stay available.
func (im *Image) Close() error {
	var err error
	if im.pending != nil {
		err = im.release()
	}
	if im.pixels == nil {
		im.closed = true
	}
	return err
}

func (im *Image) release() error {
	d := im.pending
	im.pending = nil
	if d == nil || d.close == nil {
		return nil
	}
	var err error
	d.once.Do(func() { err = d.close() })
	return err
}

// setPixels stores img. declared is the header's mode; ModeUnknown falls
// back to the color model of the decoded pixels.
func (im *Image) setPixels(img image.Image, declared string) {
	im.pixels = img
	b := img.Bounds()
	im.width, im.height = b.Dx(), b.Dy()
	im.mode = declared
	if declared == ModeUnknown {
		im.mode = ModeOf(img)
	}
}

// Save encodes the image through the pipeline that opened it.
func (im *Image) Save(w io.Writer, opts SaveOptions) error {
	img, err := im.Pixels()
	if err != nil {
		return err
	}
	if im.p == nil {
		return errors.New("save: image not bound to a pipeline")
	}
	return im.p.Save(img, w, opts)
}

// SaveFile encodes the image to path through the pipeline that opened it.
func (im *Image) SaveFile(path string, opts SaveOptions) error {
	img, err := im.Pixels()
	if err != nil {
		return err
	}
	if im.p == nil {
		return errors.New("save: image not bound to a pipeline")
	}
	return im.p.SaveFile(img, path, opts)
}

// FromImage wraps an in-memory image in a handle bound to p.
func (p *Pipeline) FromImage(img image.Image) *Image {
	im := &Image{p: p}
	im.setPixels(img, ModeOf(img))
	return im
}
