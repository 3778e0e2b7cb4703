// Package memory provides in-memory adapter implementations.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/spindleworks/spindle/domain/manifest"
	"github.com/spindleworks/spindle/ports"
)

// ManifestCache is a time-bound cache of resolved manifests with
// single-flight resolution: concurrent callers for one key share a
// single underlying resolution. Expiry is checked lazily on lookup;
// nothing is evicted proactively.
type ManifestCache struct {
	mu       sync.Mutex
	entries  map[string]entry
	inflight map[string]*flight
	maxAge   time.Duration
	clock    ports.Clock
}

type entry struct {
	manifest  *manifest.Manifest
	createdAt time.Time
}

type flight struct {
	done     chan struct{}
	manifest *manifest.Manifest
	err      error
}

// NewManifestCache creates a cache whose entries are served only while
// younger than maxAge. A maxAge of zero means entries never expire.
func NewManifestCache(maxAge time.Duration, clock ports.Clock) *ManifestCache {
	return &ManifestCache{
		entries:  make(map[string]entry),
		inflight: make(map[string]*flight),
		maxAge:   maxAge,
		clock:    clock,
	}
}

// Get returns a fresh entry. Stale entries are treated as absent and
// dropped.
func (c *ManifestCache) Get(key string) (*manifest.Manifest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

func (c *ManifestCache) getLocked(key string) (*manifest.Manifest, bool) {
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.maxAge > 0 && c.clock.Now().Sub(e.createdAt) >= c.maxAge {
		delete(c.entries, key)
		return nil, false
	}
	return e.manifest, true
}

// Put stores a resolved manifest under key.
func (c *ManifestCache) Put(key string, m *manifest.Manifest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{manifest: m, createdAt: c.clock.Now()}
}

// Clear drops every entry. In-flight resolutions are unaffected; they
// complete and repopulate the cache.
func (c *ManifestCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Do returns a fresh cached value or runs fn exactly once per key at a
// time; concurrent callers await the in-flight result. Successful
// results populate the cache. Errors are not cached and release the
// slot so a later call can retry.
func (c *ManifestCache) Do(ctx context.Context, key string, fn ports.ResolveFunc) (*manifest.Manifest, error) {
	c.mu.Lock()
	if m, ok := c.getLocked(key); ok {
		c.mu.Unlock()
		return m, nil
	}
	if f, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-f.done:
			return f.manifest, f.err
		case <-ctx.Done():
			// The flight keeps running; other waiters may still need it.
			return nil, ctx.Err()
		}
	}

	f := &flight{done: make(chan struct{})}
	c.inflight[key] = f
	c.mu.Unlock()

	m, err := fn(ctx)

	c.mu.Lock()
	delete(c.inflight, key)
	if err == nil {
		c.entries[key] = entry{manifest: m, createdAt: c.clock.Now()}
	}
	c.mu.Unlock()

	f.manifest = m
	f.err = err
	close(f.done)
	return m, err
}

// Len reports the number of stored entries, fresh or stale.
func (c *ManifestCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
