// Package config holds the runtime configuration of imgio and loads it from
// an optional HCL file.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Config is the top-level configuration. Default returns a usable value;
// a file and command-line flags override individual fields.
type Config struct {
	// PrefixSize is the number of leading bytes handed to format predicates.
	PrefixSize int
	// Lazy makes identify read headers only; --decode overrides it.
	Lazy bool
	// Formats restricts which formats open accepts. Empty means all.
	Formats []string
	// Workers bounds batch conversion parallelism; 0 = runtime.NumCPU().
	Workers int

	Log  LogConfig
	Save SaveConfig
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string   // debug, info, warn, error
	Format      string   // console or json
	Outputs     []string // stderr, stdout or file paths
	Development bool
}

// SaveConfig holds default encoding parameters.
type SaveConfig struct {
	Quality  int // 1-100; 0 = encoder default
	Lossless bool
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		PrefixSize: 16,
		Lazy:       true,
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
		},
	}
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	var errs []error
	if c.PrefixSize < 1 || c.PrefixSize > 4096 {
		errs = append(errs, fmt.Errorf("config: prefix_size must be between 1 and 4096, got %d", c.PrefixSize))
	}
	if c.Workers < 0 {
		errs = append(errs, errors.New("config: workers must not be negative"))
	}
	if c.Save.Quality < 0 || c.Save.Quality > 100 {
		errs = append(errs, fmt.Errorf("config: save.quality must be between 0 and 100, got %d", c.Save.Quality))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("config: unknown log level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("config: unknown log format %q", c.Log.Format))
	}
	for _, f := range c.Formats {
		if strings.TrimSpace(f) == "" {
			errs = append(errs, errors.New("config: empty entry in formats"))
			break
		}
	}
	return errors.Join(errs...)
}
