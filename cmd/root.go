package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AnyUserName/imgio/internal/config"
	"github.com/AnyUserName/imgio/internal/logging"
	"github.com/AnyUserName/imgio/internal/pipeline"
	"github.com/AnyUserName/imgio/internal/version"
)

var (
	verbose    bool
	configPath string
	logFormat  string

	// Set up by PersistentPreRunE for every subcommand.
	cfg        config.Config
	logger     = zap.NewNop()
	pipe       *pipeline.Pipeline
	logCleanup = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "imgio",
	Short: "Identify, decode and convert images across formats",
	Long: `imgio recognizes the format of an image from its leading bytes,
decodes it through the matching format plugin and writes it back out in
any writable format.

Optional native codecs (JPEG2000, WebP encoding) are only present in
builds made with the vips tag; "imgio features" shows what this binary has.`,
	Version:           version.Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) { logCleanup() },
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "HCL config file")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log encoding: console or json (overrides config)")
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"imgio %s (%s/%s, %s)\n",
		version.Version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}

// setup loads the config, builds the logger and the pipeline.
func setup(*cobra.Command, []string) error {
	c := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		c = loaded
	}
	if verbose {
		c.Log.Level = "debug"
	}
	if logFormat != "" {
		c.Log.Format = logFormat
	}
	if err := config.Validate(c); err != nil {
		return err
	}

	l, cleanup, err := logging.Setup(c.Log)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	p, err := pipeline.NewDefault(pipeline.Options{PrefixSize: c.PrefixSize, Logger: l})
	if err != nil {
		cleanup()
		return err
	}

	cfg, logger, pipe, logCleanup = c, l, p, cleanup
	logVerbose("config: %s", describeConfig(configPath))
	return nil
}

func describeConfig(path string) string {
	if path == "" {
		return "defaults"
	}
	return path
}

// logVerbose emits a debug message; it shows only with --verbose or a
// debug log level.
func logVerbose(format string, args ...any) {
	logger.Sugar().Debugf(format, args...)
}
