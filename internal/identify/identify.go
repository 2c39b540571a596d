// Package identify determines the format of an encoded image from a bounded
// leading byte window, falling back to the file extension.
package identify

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/AnyUserName/imgio/internal/imgerr"
	"github.com/AnyUserName/imgio/internal/plugin"
)

// DefaultPrefixSize is the number of leading bytes handed to predicates.
const DefaultPrefixSize = 16

// Match is the outcome of a successful identification.
type Match struct {
	// Descriptor is the winning format: the first predicate that matched,
	// in registration order.
	Descriptor *plugin.Descriptor
	// Candidates holds every matching format in registration order;
	// Candidates[0] == Descriptor.
	Candidates []*plugin.Descriptor
	// ByExtension is set when no predicate matched and the format came
	// from the file name.
	ByExtension bool
}

// Ambiguous reports whether more than one predicate matched the prefix.
func (m *Match) Ambiguous() bool { return len(m.Candidates) > 1 }

// Filter keeps only candidates whose ID is in allowed. An empty allowed list
// keeps everything. It returns false when nothing is left.
func (m *Match) Filter(allowed []string) bool {
	if len(allowed) == 0 {
		return len(m.Candidates) > 0
	}
	keep := make(map[string]bool, len(allowed))
	for _, id := range allowed {
		keep[strings.ToUpper(strings.TrimSpace(id))] = true
	}
	out := m.Candidates[:0:0]
	for _, d := range m.Candidates {
		if keep[d.ID] {
			out = append(out, d)
		}
	}
	m.Candidates = out
	if len(out) == 0 {
		m.Descriptor = nil
		return false
	}
	m.Descriptor = out[0]
	return true
}

// Engine runs descriptor predicates over a stream prefix.
type Engine struct {
	registry   *plugin.Registry
	prefixSize int
}

// New returns an engine over reg. A prefixSize <= 0 selects
// DefaultPrefixSize.
func New(reg *plugin.Registry, prefixSize int) *Engine {
	if prefixSize <= 0 {
		prefixSize = DefaultPrefixSize
	}
	return &Engine{registry: reg, prefixSize: prefixSize}
}

// PrefixSize returns the size of the byte window the engine reads.
func (e *Engine) PrefixSize() int { return e.prefixSize }

// Identify reads at most PrefixSize bytes from the current position of r,
// restores the position, and identifies the prefix. filename may be empty.
func (e *Engine) Identify(r io.ReadSeeker, filename string) (*Match, error) {
	prefix, err := e.ReadPrefix(r)
	if err != nil {
		return nil, err
	}
	return e.IdentifyPrefix(prefix, filename)
}

// ReadPrefix reads the leading window of r and seeks back to where r was.
// A stream shorter than the window yields a short prefix, not an error.
func (e *Engine) ReadPrefix(r io.ReadSeeker) (prefix []byte, err error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("identify: tell: %w", err)
	}
	defer func() {
		if _, serr := r.Seek(start, io.SeekStart); serr != nil && err == nil {
			err = fmt.Errorf("identify: rewind: %w", serr)
		}
	}()

	buf := make([]byte, e.prefixSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("identify: read prefix: %w", err)
	}
	return buf[:n], nil
}

// IdentifyPrefix evaluates every predicate against prefix in registration
// order, then tries the extension of filename.
func (e *Engine) IdentifyPrefix(prefix []byte, filename string) (*Match, error) {
	if len(prefix) > e.prefixSize {
		prefix = prefix[:e.prefixSize]
	}

	var candidates []*plugin.Descriptor
	if len(prefix) > 0 {
		for _, d := range e.registry.All() {
			if d.Detect != nil && d.Detect(prefix) {
				candidates = append(candidates, d)
			}
		}
	}
	if len(candidates) > 0 {
		return &Match{Descriptor: candidates[0], Candidates: candidates}, nil
	}

	if m, ok := e.IdentifyByExtension(filename); ok {
		return m, nil
	}
	if filename != "" {
		return nil, imgerr.Unrecognized("identify",
			fmt.Errorf("%w: %s", imgerr.ErrUnrecognizedFormat, filepath.Base(filename)))
	}
	return nil, imgerr.Unrecognized("identify", nil)
}

// IdentifyByExtension looks up the extension of filename.
func (e *Engine) IdentifyByExtension(filename string) (*Match, bool) {
	ext := filepath.Ext(filename)
	if ext == "" {
		return nil, false
	}
	d, ok := e.registry.LookupByExtension(ext)
	if !ok {
		return nil, false
	}
	return &Match{Descriptor: d, Candidates: []*plugin.Descriptor{d}, ByExtension: true}, true
}
