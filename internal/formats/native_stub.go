//go:build !vips

package formats

import (
	"github.com/AnyUserName/imgio/internal/imgerr"
	"github.com/AnyUserName/imgio/internal/plugin"
)

// Without the vips tag JPEG2000 has no codec. The descriptor stays
// registered so such files are recognized and reported as unavailable.

func newJPEG2000Decoder() (plugin.Decoder, error) {
	return nil, imgerr.CodecUnavailable("load", JPEG2000, nil)
}

func newJPEG2000Encoder() (plugin.Encoder, error) {
	return nil, imgerr.CodecUnavailable("load", JPEG2000, nil)
}

func webpEncoderFactory() func() (plugin.Encoder, error) { return nil }
