package plugin

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ErrInvalidDescriptor is returned by Register for structurally invalid
// descriptors.
var ErrInvalidDescriptor = errors.New("invalid format descriptor")

// Registry maps format identifiers, extensions and MIME types to
// descriptors and remembers registration order, which is the order
// identification tries formats in.
//
// All registrations normally happen once at startup. Later registrations are
// serialized against readers; descriptors are copied on the way in and never
// mutated, so a lookup sees either the old or the new descriptor in full.
type Registry struct {
	mu     sync.RWMutex
	order  []*Descriptor
	byID   map[string]int // index into order
	byExt  map[string]*Descriptor
	byMIME map[string]*Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[string]int),
		byExt:  make(map[string]*Descriptor),
		byMIME: make(map[string]*Descriptor),
	}
}

// Register adds d, or replaces the descriptor already registered under the
// same ID while keeping its position in the detection order.
func (r *Registry) Register(d Descriptor) error {
	id := normalizeID(d.ID)
	switch {
	case id == "":
		return fmt.Errorf("%w: missing identifier", ErrInvalidDescriptor)
	case d.NewDecoder == nil && d.NewEncoder == nil:
		return fmt.Errorf("%w: %s has neither decoder nor encoder", ErrInvalidDescriptor, id)
	}

	desc := d
	desc.ID = id
	desc.Extensions = make([]string, 0, len(d.Extensions))
	for _, ext := range d.Extensions {
		if ext = normalizeExt(ext); ext != "" {
			desc.Extensions = append(desc.Extensions, ext)
		}
	}
	desc.MIME = strings.ToLower(strings.TrimSpace(d.MIME))
	desc.Requires = append(desc.Requires[:0:0], d.Requires...)

	r.mu.Lock()
	defer r.mu.Unlock()

	if i, ok := r.byID[id]; ok {
		old := r.order[i]
		r.order[i] = &desc
		r.unindex(old)
	} else {
		r.byID[id] = len(r.order)
		r.order = append(r.order, &desc)
	}
	r.index(&desc)
	return nil
}

// index maps the descriptor's extensions and MIME type. The most recent
// registration claiming an extension wins it.
func (r *Registry) index(d *Descriptor) {
	for _, ext := range d.Extensions {
		r.byExt[ext] = d
	}
	if d.MIME != "" {
		r.byMIME[d.MIME] = d
	}
}

// unindex drops d's keys. A key another registered descriptor still claims
// passes to the last such descriptor in registration order. d must already
// be out of r.order.
func (r *Registry) unindex(d *Descriptor) {
	for _, ext := range d.Extensions {
		if r.byExt[ext] != d {
			continue
		}
		delete(r.byExt, ext)
		if heir := r.lastClaiming(func(o *Descriptor) bool { return slices.Contains(o.Extensions, ext) }); heir != nil {
			r.byExt[ext] = heir
		}
	}
	if d.MIME != "" && r.byMIME[d.MIME] == d {
		delete(r.byMIME, d.MIME)
		if heir := r.lastClaiming(func(o *Descriptor) bool { return o.MIME == d.MIME }); heir != nil {
			r.byMIME[d.MIME] = heir
		}
	}
}

func (r *Registry) lastClaiming(claims func(*Descriptor) bool) *Descriptor {
	for i := len(r.order) - 1; i >= 0; i-- {
		if claims(r.order[i]) {
			return r.order[i]
		}
	}
	return nil
}

// LookupByID returns the descriptor registered under id.
func (r *Registry) LookupByID(id string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[normalizeID(id)]
	if !ok {
		return nil, false
	}
	return r.order[i], true
}

// LookupByExtension accepts "png", ".png", or a file name such as
// "photo.PNG".
func (r *Registry) LookupByExtension(ext string) (*Descriptor, bool) {
	key := extOf(ext)
	if key == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byExt[key]
	return d, ok
}

// LookupByMIME returns the descriptor registered for a media type.
func (r *Registry) LookupByMIME(mime string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byMIME[strings.ToLower(strings.TrimSpace(mime))]
	return d, ok
}

// All returns the descriptors in registration order.
func (r *Registry) All() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Descriptor, len(r.order))
	copy(out, r.order)
	return out
}

// IDs returns the format identifiers in registration order.
func (r *Registry) IDs() []string {
	all := r.All()
	ids := make([]string, len(all))
	for i, d := range all {
		ids[i] = d.ID
	}
	return ids
}

// Extensions maps every registered extension to its format identifier.
func (r *Registry) Extensions() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.byExt))
	for ext, d := range r.byExt {
		out[ext] = d.ID
	}
	return out
}

// Len returns the number of registered formats.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func normalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// extOf turns a bare extension or a file name into a normalized extension.
func extOf(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexAny(s, `/\`); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i:]
	}
	return normalizeExt(s)
}
