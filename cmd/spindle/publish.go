package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spindleworks/spindle/adapters/loader"
	"github.com/spindleworks/spindle/config"
	"github.com/spindleworks/spindle/domain/manifest"
)

var publishCmd = &cobra.Command{
	Use:   "publish <name> <file>",
	Short: "Publish a manifest into the registry",
	Long: `Publish a manifest file into the sqlite registry so other
manifests can reference it as registry:<name>.

The manifest is validated before publishing.

Examples:
  spindle publish shared/nav nav.yaml`,
	Args: cobra.ExactArgs(2),
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	name, path := args[0], args[1]

	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if cfg.Registry.DSN == "" {
		return fmt.Errorf("no registry configured: set registry.dsn or SPINDLE_REGISTRY_DSN")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	m, err := manifest.Parse(data)
	if err != nil {
		return err
	}
	if err := m.Validate(cfg.Resolver.MaxDepth); err != nil {
		return err
	}

	registry, err := loader.OpenRegistry(cfg.Registry.DSN)
	if err != nil {
		return err
	}
	defer registry.Close()

	if err := registry.Publish(context.Background(), name, data); err != nil {
		return err
	}
	fmt.Printf("published %s as registry:%s\n", path, name)
	return nil
}
