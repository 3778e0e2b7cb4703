package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/spindleworks/spindle/ports"
)

// Watcher invalidates the manifest cache when manifest files under the
// base directory change. Invalidation is all-or-nothing: any change
// clears the whole cache and later resolutions repopulate it.
type Watcher struct {
	base    string
	cache   ports.ManifestCache
	logger  zerolog.Logger
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
}

// NewWatcher creates a watcher over base and its subdirectories.
func NewWatcher(base string, cache ports.ManifestCache, logger zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		base:    base,
		cache:   cache,
		logger:  logger.With().Str("component", "watcher").Logger(),
		watcher: fw,
		stopCh:  make(chan struct{}),
	}
	if err := w.addTree(base); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Start begins watching. Events are processed until Stop.
func (w *Watcher) Start() {
	go w.watchLoop()
	w.logger.Info().Str("dir", w.base).Msg("watching manifest directory for changes")
}

// Stop stops watching.
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
}

// addTree watches the directory and every subdirectory; fsnotify does
// not recurse on its own.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("watch directory: %w", err)
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watch directory %q: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("file watcher error")

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	// New subdirectories need their own watch before files inside them
	// produce events.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Error().Err(err).Str("dir", event.Name).Msg("watch new directory failed")
			}
			return
		}
	}

	if !isManifestFile(event.Name) {
		return
	}
	// Write, create, remove and rename all invalidate; atomic saves show
	// up as create+rename.
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.logger.Debug().
		Str("event", event.Op.String()).
		Str("file", event.Name).
		Msg("manifest changed, clearing cache")
	w.cache.Clear()
}

func isManifestFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
