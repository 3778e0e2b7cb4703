package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spindleworks/spindle/app"
	"github.com/spindleworks/spindle/emit"
)

var (
	emitFormat string
	emitOut    string
)

var emitCmd = &cobra.Command{
	Use:   "emit <locator>",
	Short: "Resolve a manifest and emit source for a target framework",
	Long: `Resolve a manifest and emit it as source code.

Supported formats: ` + strings.Join(emit.Formats(), ", ") + `

Examples:
  spindle emit page.yaml --format html
  spindle emit page.yaml --format react --out ./dist
  spindle emit page.yaml --format vue --out -   # write to stdout`,
	Args: cobra.ExactArgs(1),
	RunE: runEmit,
}

func init() {
	rootCmd.AddCommand(emitCmd)

	emitCmd.Flags().StringVarP(&emitFormat, "format", "f", "html", "output format")
	emitCmd.Flags().StringVar(&emitOut, "out", ".", "output directory, or - for stdout")
}

func runEmit(cmd *cobra.Command, args []string) error {
	emitter, err := emit.ForFormat(emitFormat)
	if err != nil {
		return err
	}

	a, err := newOneShotApp()
	if err != nil {
		return err
	}
	defer a.Shutdown()

	m, err := a.Resolver.Resolve(context.Background(), app.Request{Locator: args[0]})
	if err != nil {
		return err
	}

	file, err := emitter.Emit(m)
	if err != nil {
		return err
	}

	if emitOut == "-" {
		fmt.Print(file.Content)
		return nil
	}
	if err := os.MkdirAll(emitOut, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(emitOut, file.Name)
	if err := os.WriteFile(path, []byte(file.Content), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
