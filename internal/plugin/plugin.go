// Package plugin holds the format plugin contract, the ordered registry of
// format descriptors, and the loader that initializes a plugin's codec
// machinery the first time the format is used.
package plugin

import (
	"image"
	"io"

	"github.com/AnyUserName/imgio/internal/capability"
)

// Decoder reads one encoded image.
type Decoder interface {
	// DecodeConfig reads only the header: dimensions and color model.
	DecodeConfig(r io.Reader) (image.Config, error)
	// Decode reads the full pixel data.
	Decode(r io.Reader) (image.Image, error)
}

// Encoder writes one encoded image.
type Encoder interface {
	Encode(w io.Writer, img image.Image, opts EncodeOptions) error
}

// EncodeOptions carries format-independent encoding parameters.
type EncodeOptions struct {
	Quality  int  // 1-100; 0 = encoder default
	Lossless bool // honored by formats that have a lossless mode
}

// Descriptor describes a format plugin. The core only ever calls Detect
// and the two factories; it never looks inside a plugin.
type Descriptor struct {
	// ID is the unique format identifier, e.g. "PNG".
	ID string
	// Extensions are the recognized file extensions, ".png" style.
	Extensions []string
	// MIME is the format's media type, optional.
	MIME string
	// Detect reports whether a leading byte window belongs to this format.
	// The window may be shorter than the format's signature.
	Detect func(prefix []byte) bool
	// Requires lists capabilities the codec machinery depends on.
	Requires []capability.Key
	// NewDecoder builds the decoder; nil for write-only formats.
	NewDecoder func() (Decoder, error)
	// NewEncoder builds the encoder; nil for read-only formats.
	NewEncoder func() (Encoder, error)
}

// CanDecode reports whether the format has a decoder factory.
func (d *Descriptor) CanDecode() bool { return d.NewDecoder != nil }

// CanEncode reports whether the format has an encoder factory.
func (d *Descriptor) CanEncode() bool { return d.NewEncoder != nil }

// Codec is the initialized machinery of one format. Either side may be nil.
type Codec struct {
	Decoder Decoder
	Encoder Encoder
}
