// Package loader provides reference Loader implementations: local files
// under a base directory, HTTP(S) addresses, and a sqlite-backed
// manifest registry, plus a Router that dispatches on locator shape.
package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/spindleworks/spindle/domain/manifest"
	"github.com/spindleworks/spindle/ports"
)

// RegistryPrefix marks locators served by the manifest registry.
const RegistryPrefix = "registry:"

// Router dispatches loads by locator shape: http(s) addresses go to the
// HTTP loader, registry: locators to the registry, everything else to
// the file loader. Unconfigured loaders surface as LoadError.
type Router struct {
	File     ports.Loader
	HTTP     ports.Loader
	Registry ports.Loader
}

// Load dispatches to the loader matching the locator's shape.
func (r *Router) Load(ctx context.Context, locator string) ([]byte, error) {
	switch {
	case strings.HasPrefix(locator, "http://"), strings.HasPrefix(locator, "https://"):
		return r.dispatch(ctx, r.HTTP, locator, "http")
	case strings.HasPrefix(locator, RegistryPrefix):
		return r.dispatch(ctx, r.Registry, strings.TrimPrefix(locator, RegistryPrefix), "registry")
	default:
		return r.dispatch(ctx, r.File, locator, "file")
	}
}

func (r *Router) dispatch(ctx context.Context, l ports.Loader, locator, kind string) ([]byte, error) {
	if l == nil {
		return nil, &manifest.LoadError{
			Locator: locator,
			Err:     fmt.Errorf("no %s loader configured", kind),
		}
	}
	return l.Load(ctx, locator)
}
