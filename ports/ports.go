// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/spindleworks/spindle/domain/manifest"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// Loader fetches raw manifest text for a locator. A locator is either an
// absolute network address or a path interpreted relative to a
// configured base directory; callers treat the two uniformly.
type Loader interface {
	Load(ctx context.Context, locator string) ([]byte, error)
}

// ResolveFunc produces a resolved manifest for a cache key.
type ResolveFunc func(ctx context.Context) (*manifest.Manifest, error)

// ManifestCache stores resolved manifests with time-bound entries and
// collapses concurrent resolutions of the same key into one flight.
// Cached manifests are immutable by contract.
type ManifestCache interface {
	// Get returns a fresh entry, treating anything older than the
	// cache's max age as absent.
	Get(key string) (*manifest.Manifest, bool)

	// Put stores a resolved manifest under key.
	Put(key string, m *manifest.Manifest)

	// Do returns a fresh cached value or runs fn, guaranteeing at most
	// one concurrent execution per key. Errors are never cached; the
	// in-flight slot is released so a later call can retry.
	Do(ctx context.Context, key string, fn ResolveFunc) (*manifest.Manifest, error)

	// Clear drops every entry. All-or-nothing; there is no partial
	// invalidation.
	Clear()
}

// RegistryWriter publishes raw manifest text into a registry-backed
// loader so other resolutions can reference it by locator.
type RegistryWriter interface {
	Publish(ctx context.Context, locator string, body []byte) error
}
