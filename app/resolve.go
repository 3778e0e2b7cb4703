// Package app contains the resolution service: the orchestration layer
// between transports (web, cli) and the domain engine.
package app

import (
	"context"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/spindleworks/spindle/adapters/metrics"
	"github.com/spindleworks/spindle/domain/expand"
	"github.com/spindleworks/spindle/domain/manifest"
	"github.com/spindleworks/spindle/domain/merge"
	"github.com/spindleworks/spindle/domain/refgraph"
	"github.com/spindleworks/spindle/domain/style"
	"github.com/spindleworks/spindle/domain/version"
	"github.com/spindleworks/spindle/ports"
)

// Options tune a single resolution.
type Options struct {
	// SkipCache forces a fresh resolution. The result still refreshes
	// the cache.
	SkipCache bool

	// MaxDepth overrides the configured reference chain bound when
	// positive.
	MaxDepth int
}

// Request names what to resolve: a locator, or an inline manifest that
// has no locator identity and is therefore never cached.
type Request struct {
	Locator string
	Inline  *manifest.Manifest
	Options Options
}

// Service resolves manifests: template chains, style flattening, module
// expansion and slot substitution, fronted by a single-flight cache.
type Service struct {
	loader   ports.Loader
	cache    ports.ManifestCache
	clock    ports.Clock
	metrics  *metrics.Collector
	logger   zerolog.Logger
	maxDepth int
}

// NewService wires a resolution service. metrics may be nil.
func NewService(loader ports.Loader, cache ports.ManifestCache, clock ports.Clock,
	collector *metrics.Collector, logger zerolog.Logger, maxDepth int) *Service {

	return &Service{
		loader:   loader,
		cache:    cache,
		clock:    clock,
		metrics:  collector,
		logger:   logger.With().Str("component", "resolver").Logger(),
		maxDepth: maxDepth,
	}
}

// Resolve produces a fully resolved manifest: no extends, no style
// extends, no unexpanded module references. Callers get either a
// resolved manifest or one descriptive error, never both.
func (s *Service) Resolve(ctx context.Context, req Request) (*manifest.Manifest, error) {
	done := s.metrics.InFlight()
	defer done()
	start := s.clock.Now()

	maxDepth := s.maxDepth
	if req.Options.MaxDepth > 0 {
		maxDepth = req.Options.MaxDepth
	}

	var (
		m   *manifest.Manifest
		err error
	)
	switch {
	case req.Inline != nil:
		m, err = s.resolveInline(ctx, req.Inline, maxDepth)
	case req.Locator != "":
		m, err = s.resolveLocator(ctx, req.Locator, req.Options.SkipCache, maxDepth)
	default:
		err = &manifest.StructuralError{Reason: "request carries neither locator nor manifest"}
	}

	elapsed := s.clock.Now().Sub(start)
	if err != nil {
		s.metrics.ObserveResolution("error", elapsed)
		s.logger.Error().Err(err).Str("locator", req.Locator).
			Dur("elapsed", elapsed).Msg("resolution failed")
		return nil, err
	}
	s.metrics.ObserveResolution("ok", elapsed)
	s.logger.Debug().Str("locator", req.Locator).
		Dur("elapsed", elapsed).Msg("resolved")
	return m, nil
}

func (s *Service) resolveInline(ctx context.Context, m *manifest.Manifest, maxDepth int) (*manifest.Manifest, error) {
	work := m.Clone()
	if err := work.Validate(maxDepth); err != nil {
		return nil, err
	}
	return s.resolveManifest(ctx, work, maxDepth, refgraph.NewTracker())
}

func (s *Service) resolveLocator(ctx context.Context, locator string, skipCache bool, maxDepth int) (*manifest.Manifest, error) {
	key := cacheKey(locator, maxDepth)

	resolve := func(ctx context.Context) (*manifest.Manifest, error) {
		tracker := refgraph.NewTracker()
		if err := tracker.Enter(manifest.RefTemplate, locator); err != nil {
			return nil, err
		}
		defer tracker.Leave(locator)

		m, err := s.fetch(ctx, manifest.RefTemplate, locator, maxDepth)
		if err != nil {
			return nil, err
		}
		return s.resolveManifest(ctx, m, maxDepth, tracker)
	}

	if skipCache {
		m, err := resolve(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.Put(key, m)
		return m, nil
	}
	return s.cache.Do(ctx, key, resolve)
}

// resolveTemplate loads a template ancestor and folds in its own
// ancestry. Ancestors stay unexpanded: module fan-out and slot
// substitution run once, over the final merged manifest, so a child's
// imports can fill slots its templates declare and imported content
// takes precedence over a template's slot defaults. Merged ancestors
// are cached under a template-stage key, separate from fully resolved
// manifests for the same locator.
func (s *Service) resolveTemplate(ctx context.Context, locator string,
	maxDepth int, tracker *refgraph.Tracker) (*manifest.Manifest, error) {

	if err := tracker.Enter(manifest.RefTemplate, locator); err != nil {
		return nil, err
	}
	defer tracker.Leave(locator)

	if maxDepth > 0 && tracker.Depth() > maxDepth {
		return nil, &manifest.StructuralError{
			Reason: "reference chain exceeds maximum depth " + strconv.Itoa(maxDepth),
		}
	}

	key := templateKey(locator, maxDepth)
	if m, ok := s.cache.Get(key); ok {
		s.metrics.CacheHit()
		return m, nil
	}
	s.metrics.CacheMiss()

	m, err := s.fetch(ctx, manifest.RefTemplate, locator, maxDepth)
	if err != nil {
		return nil, err
	}
	merged, err := s.mergeAncestry(ctx, m, maxDepth, tracker)
	if err != nil {
		return nil, err
	}
	s.cache.Put(key, merged)
	return merged, nil
}

// resolveModule loads and fully resolves a module or module-for-slot
// manifest. Resolved modules are cached directly rather than through
// the single-flight slot, so a cyclic chain surfaces as a cycle error
// instead of deadlocking on its own in-flight resolution.
func (s *Service) resolveModule(ctx context.Context, locator string,
	maxDepth int, tracker *refgraph.Tracker) (*manifest.Manifest, error) {

	if err := tracker.Enter(manifest.RefModule, locator); err != nil {
		return nil, err
	}
	defer tracker.Leave(locator)

	if maxDepth > 0 && tracker.Depth() > maxDepth {
		return nil, &manifest.StructuralError{
			Reason: "reference chain exceeds maximum depth " + strconv.Itoa(maxDepth),
		}
	}

	key := cacheKey(locator, maxDepth)
	if m, ok := s.cache.Get(key); ok {
		s.metrics.CacheHit()
		return m, nil
	}
	s.metrics.CacheMiss()

	m, err := s.fetch(ctx, manifest.RefModule, locator, maxDepth)
	if err != nil {
		return nil, err
	}
	resolved, err := s.resolveManifest(ctx, m, maxDepth, tracker)
	if err != nil {
		return nil, err
	}
	s.cache.Put(key, resolved)
	return resolved, nil
}

// mergeAncestry folds the template chain into m, cycle-checked and
// depth-bounded. The result carries the merged module, import and slot
// tables but no expansion has happened yet.
func (s *Service) mergeAncestry(ctx context.Context, m *manifest.Manifest,
	maxDepth int, tracker *refgraph.Tracker) (*manifest.Manifest, error) {

	extends := m.Metadata.Extends
	if extends == "" {
		return m, nil
	}
	ancestor, err := s.resolveTemplate(ctx, extends, maxDepth, tracker)
	if err != nil {
		return nil, err
	}
	return merge.Merge(ancestor, m, merge.PolicyFrom(m.Metadata.Inherit)), nil
}

func (s *Service) fetch(ctx context.Context, kind manifest.RefKind, locator string, maxDepth int) (*manifest.Manifest, error) {
	s.metrics.LoaderFetch(string(kind))
	raw, err := s.loader.Load(ctx, locator)
	if err != nil {
		return nil, err
	}
	m, err := manifest.Parse(raw)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(maxDepth); err != nil {
		return nil, err
	}
	return m, nil
}

// resolveManifest runs the pipeline over a private copy: template chain,
// style flattening, module fan-out, expansion. Expansion sees the merged
// slot and import tables, never a lone template's.
func (s *Service) resolveManifest(ctx context.Context, m *manifest.Manifest,
	maxDepth int, tracker *refgraph.Tracker) (*manifest.Manifest, error) {

	m, err := s.mergeAncestry(ctx, m, maxDepth, tracker)
	if err != nil {
		return nil, err
	}

	flat, err := style.Resolve(m.Styles)
	if err != nil {
		return nil, err
	}
	m.Styles = flat

	mods, tolerated, content, err := s.loadModules(ctx, m, maxDepth, tracker)
	if err != nil {
		return nil, err
	}

	structure, filled, err := expand.Apply(m.Structure, mods, tolerated, m.TemplateSlots, content)
	if err != nil {
		return nil, err
	}
	m.Structure = structure
	for name := range filled {
		spec := m.TemplateSlots[name]
		spec.Filled = true
		m.TemplateSlots[name] = spec
	}
	return m, nil
}

// loadModules resolves every declared module and module-for-slot import
// concurrently. A required failure aborts the whole fan-out; optional
// failures are logged and tolerated.
func (s *Service) loadModules(ctx context.Context, m *manifest.Manifest,
	maxDepth int, tracker *refgraph.Tracker) (expand.Modules, map[string]bool, expand.SlotContent, error) {

	mods := make(expand.Modules, len(m.Modules))
	tolerated := make(map[string]bool)
	content := make(expand.SlotContent)

	if len(m.Modules) == 0 && len(m.Imports) == 0 {
		return mods, tolerated, content, nil
	}

	fanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	for i := range m.Modules {
		decl := &m.Modules[i]
		decl.State = manifest.ModuleLoading
		wg.Add(1)
		go func() {
			defer wg.Done()
			resolved, err := s.resolveModule(fanCtx, decl.Locator, maxDepth, tracker.Clone())
			if err == nil {
				err = version.Check(decl.Alias, decl.Version, resolved.Metadata.Version)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				decl.State = manifest.ModuleFailed
				if decl.Optional {
					tolerated[decl.Alias] = true
					s.logger.Warn().Err(err).Str("alias", decl.Alias).
						Str("locator", decl.Locator).Msg("optional module failed")
					return
				}
				fail(err)
				return
			}
			decl.State = manifest.ModuleLoaded
			decl.Resolved = resolved
			mods[decl.Alias] = resolved
		}()
	}

	for _, imp := range m.Imports {
		if imp.Kind != manifest.ImportModuleForSlot {
			continue
		}
		imp := imp
		wg.Add(1)
		go func() {
			defer wg.Done()
			resolved, err := s.resolveModule(fanCtx, imp.Locator, maxDepth, tracker.Clone())

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if imp.Optional {
					s.logger.Warn().Err(err).Str("slot", imp.Slot).
						Str("locator", imp.Locator).Msg("optional slot import failed")
					return
				}
				fail(err)
				return
			}
			if resolved.Structure != nil {
				content[imp.Slot] = resolved.Structure
			}
		}()
	}

	wg.Wait()
	if firstErr != nil {
		return nil, nil, nil, firstErr
	}
	return mods, tolerated, content, nil
}

func cacheKey(locator string, maxDepth int) string {
	return locator + "\x00" + strconv.Itoa(maxDepth)
}

// templateKey separates merged-but-unexpanded ancestors from fully
// resolved manifests for the same locator.
func templateKey(locator string, maxDepth int) string {
	return cacheKey(locator, maxDepth) + "\x00template"
}
