// Package imgerr defines the failure taxonomy shared by identification,
// plugin loading, and the open/save pipeline.
package imgerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can branch on it with errors.Is.
type Kind string

const (
	KindUnrecognized     Kind = "unrecognized"
	KindUnsupported      Kind = "unsupported"
	KindCodecUnavailable Kind = "codec_unavailable"
	KindMalformed        Kind = "malformed"
)

// Sentinel errors, one per Kind.
var (
	ErrUnrecognizedFormat   = errors.New("cannot identify image format")
	ErrUnsupportedOperation = errors.New("operation not supported by format")
	ErrCodecUnavailable     = errors.New("codec not available in this build")
	ErrMalformedContent     = errors.New("malformed image content")
)

// Error is the structured error returned by the core.
type Error struct {
	Kind   Kind
	Op     string // e.g. "open", "save", "load"
	Format string // format identifier, empty when unknown
	Err    error
}

func (e *Error) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Format, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel belonging to e.Kind, so a wrapped decoder error
// still satisfies errors.Is(err, ErrMalformedContent).
func (e *Error) Is(target error) bool {
	return target == sentinel(e.Kind)
}

func sentinel(k Kind) error {
	switch k {
	case KindUnrecognized:
		return ErrUnrecognizedFormat
	case KindUnsupported:
		return ErrUnsupportedOperation
	case KindCodecUnavailable:
		return ErrCodecUnavailable
	case KindMalformed:
		return ErrMalformedContent
	}
	return nil
}

// New creates an Error of the given kind.
func New(kind Kind, op, format string, err error) *Error {
	if err == nil {
		err = sentinel(kind)
	}
	return &Error{Kind: kind, Op: op, Format: format, Err: err}
}

// Wrap wraps err unless it already carries a Kind, in which case it is
// returned unchanged.
func Wrap(kind Kind, op, format string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := KindOf(err); ok {
		return err
	}
	return New(kind, op, format, err)
}

// Unrecognized returns an ErrUnrecognizedFormat error.
func Unrecognized(op string, err error) *Error {
	return New(KindUnrecognized, op, "", err)
}

// Unsupported returns an ErrUnsupportedOperation error for format.
func Unsupported(op, format, msg string) *Error {
	return New(KindUnsupported, op, format, fmt.Errorf("%w: %s", ErrUnsupportedOperation, msg))
}

// CodecUnavailable returns an ErrCodecUnavailable error for format.
func CodecUnavailable(op, format string, err error) *Error {
	if err == nil {
		err = ErrCodecUnavailable
	}
	return New(KindCodecUnavailable, op, format, err)
}

// Malformed returns an ErrMalformedContent error for format.
func Malformed(op, format string, err error) *Error {
	return New(KindMalformed, op, format, err)
}

// KindOf reports the Kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	switch {
	case errors.Is(err, ErrUnrecognizedFormat):
		return KindUnrecognized, true
	case errors.Is(err, ErrUnsupportedOperation):
		return KindUnsupported, true
	case errors.Is(err, ErrCodecUnavailable):
		return KindCodecUnavailable, true
	case errors.Is(err, ErrMalformedContent):
		return KindMalformed, true
	}
	return "", false
}

// IsRetryable reports whether an ambiguous open may move on to the next
// candidate after err.
func IsRetryable(err error) bool {
	k, ok := KindOf(err)
	return ok && (k == KindMalformed || k == KindCodecUnavailable)
}
