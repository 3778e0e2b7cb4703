package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spindleworks/spindle/domain/manifest"
)

// File loads manifests from a base directory. Relative locators are
// resolved against the base; escapes above it are rejected.
type File struct {
	base string
}

// NewFile creates a file loader rooted at base.
func NewFile(base string) (*File, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("base directory: %w", err)
	}
	return &File{base: abs}, nil
}

// Load reads the manifest file at the locator.
func (f *File) Load(_ context.Context, locator string) ([]byte, error) {
	path := filepath.Join(f.base, filepath.FromSlash(locator))

	rel, err := filepath.Rel(f.base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, &manifest.LoadError{
			Locator: locator,
			Err:     fmt.Errorf("locator escapes base directory"),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &manifest.LoadError{Locator: locator, Err: err}
	}
	return data, nil
}
