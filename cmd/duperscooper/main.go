// Command duperscooper finds and removes duplicate tracks and albums
// from a music library using perceptual audio fingerprinting.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "duperscooper",
	Short: "Find and remove duplicate audio tracks and albums",
	Long: "duperscooper fingerprints a music library, clusters near-duplicate " +
		"tracks and albums, and applies reversible deletion policies to them.",
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "enable verbose logging")
	rootCmd.PersistentFlags().Bool("color", true, "colorize log output")
}
