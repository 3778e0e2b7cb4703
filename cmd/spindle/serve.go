package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spindleworks/spindle/bootstrap"
	"github.com/spindleworks/spindle/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the manifest resolution server",
	Long: `Start the Spindle resolution server.

The server will:
  - Load configuration from spindle.yaml (or --config)
  - Or load configuration from SPINDLE_* environment variables
  - Serve the resolution API on the configured address
  - Watch the manifest directory and invalidate the cache on changes

Environment variables (for Docker deployments):
  SPINDLE_BASE_DIR         - Manifest base directory (default: .)
  SPINDLE_SERVER_PORT      - Server port (default: 3009)
  SPINDLE_CACHE_MAX_AGE    - Cache entry max age (default: 5m)
  SPINDLE_REGISTRY_DSN     - Optional sqlite registry path
  SPINDLE_LOG_LEVEL        - Log level: debug, info, warn, error

Examples:
  spindle serve
  spindle serve --config /etc/spindle/config.yaml
  SPINDLE_BASE_DIR=/srv/manifests spindle serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	a, err := bootstrap.New(cfg)
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return a.Run()
}
