// Package pipeline ties identification, lazy plugin loading and decoding
// into a single open call, and format selection plus encoding into a single
// save call.
package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/AnyUserName/imgio/internal/capability"
	"github.com/AnyUserName/imgio/internal/formats"
	"github.com/AnyUserName/imgio/internal/identify"
	"github.com/AnyUserName/imgio/internal/plugin"
)

// Pipeline is safe for concurrent use on distinct streams. The registry,
// loader and engine are shared read-mostly state.
type Pipeline struct {
	registry *plugin.Registry
	loader   *plugin.Loader
	engine   *identify.Engine
	logger   *zap.Logger
}

// New assembles a pipeline from explicitly constructed parts. A nil logger
// disables logging.
func New(reg *plugin.Registry, loader *plugin.Loader, engine *identify.Engine, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		registry: reg,
		loader:   loader,
		engine:   engine,
		logger:   logger,
	}
}

// Options configure NewDefault.
type Options struct {
	PrefixSize int
	Logger     *zap.Logger
	// Capabilities overrides the build's capability record, for tests that
	// simulate a missing codec.
	Capabilities *capability.Record
}

// NewDefault builds a pipeline over the built-in formats and the running
// binary's capability record.
func NewDefault(opts Options) (*Pipeline, error) {
	reg := plugin.NewRegistry()
	if err := formats.Register(reg); err != nil {
		return nil, fmt.Errorf("register formats: %w", err)
	}
	caps := opts.Capabilities
	if caps == nil {
		caps = capability.Default()
	}
	return New(reg,
		plugin.NewLoader(caps, opts.Logger),
		identify.New(reg, opts.PrefixSize),
		opts.Logger,
	), nil
}

// Registry returns the plugin registry the pipeline dispatches through.
func (p *Pipeline) Registry() *plugin.Registry { return p.registry }

// Loader returns the plugin loader.
func (p *Pipeline) Loader() *plugin.Loader { return p.loader }

// Engine returns the identification engine.
func (p *Pipeline) Engine() *identify.Engine { return p.engine }
