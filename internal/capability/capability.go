// Package capability records which optional modules, codecs and features were
// compiled into this build. The record is computed once from build flags and
// the target platform and never changes afterwards; nothing here touches the
// filesystem or the network.
package capability

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"sort"

	"github.com/AnyUserName/imgio/internal/imgerr"
)

// Category is one of the three disjoint capability tables.
type Category string

const (
	Modules  Category = "modules"
	Codecs   Category = "codecs"
	Features Category = "features"
)

// Categories lists the tables in report order.
var Categories = []Category{Modules, Codecs, Features}

// Key names a single capability.
type Key struct {
	Category Category
	Name     string
}

func (k Key) String() string { return string(k.Category) + "/" + k.Name }

func Module(name string) Key  { return Key{Modules, name} }
func Codec(name string) Key   { return Key{Codecs, name} }
func Feature(name string) Key { return Key{Features, name} }

// ErrUnknownCapability is returned by Check for names not in the table.
var ErrUnknownCapability = errors.New("unknown capability")

// BuildFlags describe what was linked into the binary.
type BuildFlags struct {
	// Native is set when the libvips backend is compiled in (vips build tag).
	Native bool
	// GUI is cleared by the notkinter build tag.
	GUI bool
}

// Record answers availability queries for one build and platform.
type Record struct {
	goos   string
	flags  BuildFlags
	tables map[Category]map[string]bool
}

// New computes the record for goos under flags.
func New(goos string, flags BuildFlags) *Record {
	r := &Record{
		goos:   goos,
		flags:  flags,
		tables: make(map[Category]map[string]bool, len(Categories)),
	}
	for _, c := range Categories {
		r.tables[c] = make(map[string]bool)
	}
	for _, e := range entries {
		r.tables[e.key.Category][e.key.Name] = e.available(goos, flags)
	}
	return r
}

// Default returns the record for the running binary.
func Default() *Record {
	return New(runtime.GOOS, Compiled)
}

// GOOS is the platform the record was computed for.
func (r *Record) GOOS() string { return r.goos }

// Flags are the build flags the record was computed from.
func (r *Record) Flags() BuildFlags { return r.flags }

func (r *Record) IsModuleAvailable(name string) bool  { return r.tables[Modules][name] }
func (r *Record) IsCodecAvailable(name string) bool   { return r.tables[Codecs][name] }
func (r *Record) IsFeatureAvailable(name string) bool { return r.tables[Features][name] }

// IsAvailable reports whether k is compiled in. Unknown keys are absent.
func (r *Record) IsAvailable(k Key) bool {
	return r.tables[k.Category][k.Name]
}

func (r *Record) ListModules() []string  { return r.list(Modules) }
func (r *Record) ListCodecs() []string   { return r.list(Codecs) }
func (r *Record) ListFeatures() []string { return r.list(Features) }

// List returns the sorted names available in category c.
func (r *Record) List(c Category) []string { return r.list(c) }

func (r *Record) list(c Category) []string {
	var out []string
	for name, ok := range r.tables[c] {
		if ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Known returns every name the table defines for c, available or not.
func Known(c Category) []string {
	var out []string
	for _, e := range entries {
		if e.key.Category == c {
			out = append(out, e.key.Name)
		}
	}
	sort.Strings(out)
	return out
}

// Check returns nil when k is available, an ErrCodecUnavailable error when
// it is known but not compiled in, and ErrUnknownCapability otherwise.
func (r *Record) Check(k Key) error {
	avail, known := r.tables[k.Category][k.Name]
	switch {
	case !known:
		return fmt.Errorf("%w: %s", ErrUnknownCapability, k)
	case !avail:
		return imgerr.CodecUnavailable("check", k.Name,
			fmt.Errorf("%w: %s not compiled in for %s", imgerr.ErrCodecUnavailable, k, r.goos))
	}
	return nil
}

// Report writes every known capability with its state.
func (r *Record) Report(w io.Writer) error {
	for _, c := range Categories {
		if _, err := fmt.Fprintf(w, "--- %s\n", c); err != nil {
			return err
		}
		for _, name := range Known(c) {
			state := "---"
			if r.tables[c][name] {
				state = "ok"
			}
			if _, err := fmt.Fprintf(w, "  %-14s %s\n", name, state); err != nil {
				return err
			}
		}
	}
	return nil
}
