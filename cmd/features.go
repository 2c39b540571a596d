package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/imgio/internal/capability"
)

var featuresCheck []string

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "List the optional modules, codecs and features of this build",
	Long: `Prints every known capability with ok or --- depending on whether this
binary was built with it. --check category/name exits non-zero when any of
the named capabilities is absent or unknown, e.g. --check codecs/jpg_2000.`,
	Args: cobra.NoArgs,
	RunE: runFeatures,
}

func init() {
	featuresCmd.Flags().StringSliceVar(&featuresCheck, "check", nil, "capabilities to require, as category/name")
	rootCmd.AddCommand(featuresCmd)
}

func runFeatures(_ *cobra.Command, _ []string) error {
	caps := pipe.Loader().Capabilities()
	if len(featuresCheck) == 0 {
		return caps.Report(os.Stdout)
	}

	var missing int
	for _, arg := range featuresCheck {
		key, err := parseKey(arg)
		if err == nil {
			err = caps.Check(key)
		}
		if err != nil {
			missing++
			fmt.Printf("  ✗ %s: %v\n", arg, err)
			continue
		}
		fmt.Printf("  ✓ %s\n", arg)
	}
	if missing > 0 {
		return fmt.Errorf("%d of %d capabilities unavailable", missing, len(featuresCheck))
	}
	return nil
}

// parseKey parses "category/name". A bare name is looked up in every
// category.
func parseKey(s string) (capability.Key, error) {
	if cat, name, ok := strings.Cut(s, "/"); ok {
		for _, c := range capability.Categories {
			if string(c) == cat {
				return capability.Key{Category: c, Name: name}, nil
			}
		}
		return capability.Key{}, fmt.Errorf("unknown category %q", cat)
	}
	for _, c := range capability.Categories {
		for _, n := range capability.Known(c) {
			if n == s {
				return capability.Key{Category: c, Name: s}, nil
			}
		}
	}
	return capability.Key{}, fmt.Errorf("%w: %s", capability.ErrUnknownCapability, s)
}
