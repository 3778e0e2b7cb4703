package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spindleworks/spindle/config"
	"github.com/spindleworks/spindle/domain/manifest"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a manifest for structural problems",
	Long: `Validate a manifest file without resolving it.

Checks:
  - YAML syntax and node shape
  - Supported version tag
  - Unique module aliases
  - Coherent import and slot declarations

Examples:
  spindle validate page.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	maxDepth := 32
	if cfg, err := config.LoadWithFallback(cfgFile); err == nil {
		maxDepth = cfg.Resolver.MaxDepth
	}

	m, err := manifest.Parse(data)
	if err != nil {
		fmt.Printf("  %s %v\n", crossMark, err)
		return fmt.Errorf("manifest is invalid")
	}
	if err := m.Validate(maxDepth); err != nil {
		fmt.Printf("  %s %v\n", crossMark, err)
		return fmt.Errorf("manifest is invalid")
	}

	fmt.Printf("  %s %s is valid\n", checkMark, args[0])
	return nil
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
