package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spindle",
	Short: "Manifest resolution server for modular YAML page documents",
	Long: `Spindle resolves modular YAML page manifests: template inheritance,
style extends chains, module imports and template slots, into a single
self-contained document, and emits it as html, react, vue or php source.

Quick start:
  spindle serve               # Start the resolution server
  spindle resolve page.yaml   # Resolve a manifest to stdout
  spindle emit page.yaml --format react

Management:
  spindle validate page.yaml  # Check a manifest without resolving it
  spindle publish shared/nav nav.yaml`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "spindle.yaml", "config file path")
}
