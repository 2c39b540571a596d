package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List registered formats in detection order",
	Args:  cobra.NoArgs,
	RunE:  runFormats,
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}

func runFormats(_ *cobra.Command, _ []string) error {
	caps := pipe.Loader().Capabilities()
	fmt.Printf("  %-9s %-5s %-10s %s\n", "FORMAT", "MODE", "STATUS", "EXTENSIONS")
	for _, d := range pipe.Registry().All() {
		rw := ""
		if d.CanDecode() {
			rw += "R"
		}
		if d.CanEncode() {
			rw += "W"
		}
		status := "ok"
		for _, k := range d.Requires {
			if !caps.IsAvailable(k) {
				status = "no " + k.Name
				break
			}
		}
		fmt.Printf("  %-9s %-5s %-10s %s\n", d.ID, rw, status, strings.Join(d.Extensions, " "))
	}
	return nil
}
