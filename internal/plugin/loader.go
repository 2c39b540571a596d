package plugin

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/AnyUserName/imgio/internal/capability"
	"github.com/AnyUserName/imgio/internal/imgerr"
)

// Loader initializes plugin codecs on first use and caches the outcome.
// A failed initialization stays failed for that descriptor only.
type Loader struct {
	caps   *capability.Record
	logger *zap.Logger

	mu     sync.Mutex
	states map[string]*loadState // by descriptor ID
}

type loadState struct {
	desc  *Descriptor
	once  sync.Once
	done  bool // guarded by Loader.mu
	codec *Codec
	err   error
}

// NewLoader returns a loader that consults caps before running factories.
// A nil logger disables logging.
func NewLoader(caps *capability.Record, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		caps:   caps,
		logger: logger,
		states: make(map[string]*loadState),
	}
}

// Capabilities returns the record the loader checks against.
func (l *Loader) Capabilities() *capability.Record { return l.caps }

// EnsureLoaded runs d's factories the first time it is called for d and
// returns the cached result afterwards. A required capability the record
// reports absent fails with ErrCodecUnavailable without calling any factory.
func (l *Loader) EnsureLoaded(d *Descriptor) (*Codec, error) {
	st := l.state(d)
	st.once.Do(func() {
		st.codec, st.err = l.load(d)
		l.mu.Lock()
		st.done = true
		l.mu.Unlock()
	})
	return st.codec, st.err
}

// Loaded reports whether d has been initialized successfully.
func (l *Loader) Loaded(d *Descriptor) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.states[d.ID]
	return ok && st.desc == d && st.done && st.err == nil
}

// state returns the load state of d. One state is kept per ID: meeting a
// descriptor that replaced the cached one under the same ID drops the old
// state.
func (l *Loader) state(d *Descriptor) *loadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.states[d.ID]
	if !ok || st.desc != d {
		st = &loadState{desc: d}
		l.states[d.ID] = st
	}
	return st
}

func (l *Loader) load(d *Descriptor) (*Codec, error) {
	for _, k := range d.Requires {
		if l.caps != nil && !l.caps.IsAvailable(k) {
			l.logger.Debug("plugin disabled by build",
				zap.String("format", d.ID), zap.Stringer("capability", k))
			return nil, imgerr.CodecUnavailable("load", d.ID,
				fmt.Errorf("%w: requires %s", imgerr.ErrCodecUnavailable, k))
		}
	}

	c := &Codec{}
	if d.NewDecoder != nil {
		dec, err := d.NewDecoder()
		if err != nil {
			return nil, l.fail(d, "decoder", err)
		}
		c.Decoder = dec
	}
	if d.NewEncoder != nil {
		enc, err := d.NewEncoder()
		if err != nil {
			return nil, l.fail(d, "encoder", err)
		}
		c.Encoder = enc
	}
	l.logger.Debug("plugin loaded", zap.String("format", d.ID),
		zap.Bool("decode", c.Decoder != nil), zap.Bool("encode", c.Encoder != nil))
	return c, nil
}

func (l *Loader) fail(d *Descriptor, side string, err error) error {
	l.logger.Warn("plugin initialization failed",
		zap.String("format", d.ID), zap.String("side", side), zap.Error(err))
	return imgerr.CodecUnavailable("load", d.ID, fmt.Errorf("init %s: %w", side, err))
}
