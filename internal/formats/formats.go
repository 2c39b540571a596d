// Package formats provides the built-in format plugins. Each plugin is a
// plugin.Descriptor; Register installs them into a registry in detection
// order.
package formats

import (
	"bytes"
	"fmt"

	"github.com/AnyUserName/imgio/internal/capability"
	"github.com/AnyUserName/imgio/internal/plugin"
)

// Built-in format identifiers.
const (
	BMP      = "BMP"
	GIF      = "GIF"
	JPEG     = "JPEG"
	JPEG2000 = "JPEG2000"
	PNG      = "PNG"
	TIFF     = "TIFF"
	WEBP     = "WEBP"
)

// Signatures, checked against the identification window.
var (
	bmpMagic   = []byte("BM")
	gif87Magic = []byte("GIF87a")
	gif89Magic = []byte("GIF89a")
	jpegMagic  = []byte{0xFF, 0xD8, 0xFF}
	j2kMagic   = []byte{0xFF, 0x4F, 0xFF, 0x51}
	jp2Magic   = []byte{0x00, 0x00, 0x00, 0x0C, 'j', 'P', ' ', ' ', 0x0D, 0x0A, 0x87, 0x0A}
	pngMagic   = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	tiffLE     = []byte{'I', 'I', 0x2A, 0x00}
	tiffBE     = []byte{'M', 'M', 0x00, 0x2A}
	riffMagic  = []byte("RIFF")
	webpMagic  = []byte("WEBP")
)

// Descriptors returns the built-in descriptors in detection order.
func Descriptors() []plugin.Descriptor {
	return []plugin.Descriptor{
		{
			ID:         BMP,
			Extensions: []string{".bmp", ".dib"},
			MIME:       "image/bmp",
			Detect:     hasPrefix(bmpMagic),
			NewDecoder: func() (plugin.Decoder, error) { return &bmpCodec{}, nil },
			NewEncoder: func() (plugin.Encoder, error) { return &bmpCodec{}, nil },
		},
		{
			ID:         GIF,
			Extensions: []string{".gif"},
			MIME:       "image/gif",
			Detect:     hasPrefix(gif87Magic, gif89Magic),
			NewDecoder: func() (plugin.Decoder, error) { return &gifCodec{}, nil },
			NewEncoder: func() (plugin.Encoder, error) { return &gifCodec{}, nil },
		},
		{
			ID:         JPEG,
			Extensions: []string{".jpg", ".jpe", ".jpeg", ".jfif"},
			MIME:       "image/jpeg",
			Detect:     hasPrefix(jpegMagic),
			Requires:   []capability.Key{capability.Codec("jpg")},
			NewDecoder: func() (plugin.Decoder, error) { return &jpegCodec{}, nil },
			NewEncoder: func() (plugin.Encoder, error) { return &jpegCodec{}, nil },
		},
		{
			ID:         JPEG2000,
			Extensions: []string{".jp2", ".j2k", ".jpc", ".jpf", ".jpx", ".j2c"},
			MIME:       "image/jp2",
			Detect:     hasPrefix(j2kMagic, jp2Magic),
			Requires:   []capability.Key{capability.Codec("jpg_2000")},
			NewDecoder: newJPEG2000Decoder,
			NewEncoder: newJPEG2000Encoder,
		},
		{
			ID:         PNG,
			Extensions: []string{".png", ".apng"},
			MIME:       "image/png",
			Detect:     hasPrefix(pngMagic),
			Requires:   []capability.Key{capability.Codec("zlib")},
			NewDecoder: func() (plugin.Decoder, error) { return &pngCodec{}, nil },
			NewEncoder: func() (plugin.Encoder, error) { return &pngCodec{}, nil },
		},
		{
			ID:         TIFF,
			Extensions: []string{".tif", ".tiff"},
			MIME:       "image/tiff",
			Detect:     hasPrefix(tiffLE, tiffBE),
			Requires:   []capability.Key{capability.Codec("libtiff")},
			NewDecoder: func() (plugin.Decoder, error) { return &tiffCodec{}, nil },
			NewEncoder: func() (plugin.Encoder, error) { return &tiffCodec{}, nil },
		},
		{
			ID:         WEBP,
			Extensions: []string{".webp"},
			MIME:       "image/webp",
			Detect:     isWebP,
			Requires:   []capability.Key{capability.Module("webp")},
			NewDecoder: func() (plugin.Decoder, error) { return &webpCodec{}, nil },
			// Read-only unless the native backend provides an encoder.
			NewEncoder: webpEncoderFactory(),
		},
	}
}

// Register installs every built-in descriptor into reg.
func Register(reg *plugin.Registry) error {
	for _, d := range Descriptors() {
		if err := reg.Register(d); err != nil {
			return fmt.Errorf("register %s: %w", d.ID, err)
		}
	}
	return nil
}

// hasPrefix returns a predicate matching any of the signatures.
func hasPrefix(sigs ...[]byte) func([]byte) bool {
	return func(prefix []byte) bool {
		for _, sig := range sigs {
			if bytes.HasPrefix(prefix, sig) {
				return true
			}
		}
		return false
	}
}

// isWebP matches "RIFF????WEBP".
func isWebP(prefix []byte) bool {
	return len(prefix) >= 12 &&
		bytes.Equal(prefix[:4], riffMagic) &&
		bytes.Equal(prefix[8:12], webpMagic)
}
