package imgerr

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestErrorIsMatchesKindSentinel(t *testing.T) {
	err := Malformed("open", "PNG", io.ErrUnexpectedEOF)

	if !errors.Is(err, ErrMalformedContent) {
		t.Error("malformed error does not match ErrMalformedContent")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("cause lost")
	}
	if errors.Is(err, ErrUnrecognizedFormat) {
		t.Error("malformed error matched ErrUnrecognizedFormat")
	}
	if got := err.Error(); got != "open PNG: unexpected EOF" {
		t.Errorf("message: got %q", got)
	}
}

func TestWrapKeepsExistingKind(t *testing.T) {
	inner := CodecUnavailable("load", "JPEG2000", nil)
	wrapped := fmt.Errorf("decode: %w", inner)

	got := Wrap(KindMalformed, "open", "JPEG2000", wrapped)
	if k, _ := KindOf(got); k != KindCodecUnavailable {
		t.Errorf("kind: got %q, want %q", k, KindCodecUnavailable)
	}
	if Wrap(KindMalformed, "open", "", nil) != nil {
		t.Error("Wrap(nil) should be nil")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{Malformed("open", "GIF", errors.New("bad header")), true},
		{CodecUnavailable("open", "WEBP", nil), true},
		{Unsupported("save", "WEBP", "no encoder"), false},
		{Unrecognized("open", nil), false},
		{errors.New("plain"), false},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v): got %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestKindOfBareSentinel(t *testing.T) {
	k, ok := KindOf(fmt.Errorf("x: %w", ErrUnsupportedOperation))
	if !ok || k != KindUnsupported {
		t.Errorf("got %q %v", k, ok)
	}
}
