// Package refgraph tracks reference traversal for cycle detection.
// Template extends chains and module reference graphs are both walked
// depth-first; a locator re-entered while still on the active path is a
// circular reference.
package refgraph

import (
	"github.com/spindleworks/spindle/domain/manifest"
)

// Tracker holds the active traversal path. It is call-stack-local: one
// tracker per resolution path, cloned when the path forks into
// concurrent module loads.
type Tracker struct {
	visiting map[string]int // locator -> index in path
	path     []string
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{visiting: make(map[string]int)}
}

// Enter pushes a locator onto the active path. If the locator is already
// on the path the traversal has cycled, and the returned error names the
// full chain from the first occurrence back to the repeat.
func (t *Tracker) Enter(kind manifest.RefKind, locator string) error {
	if idx, ok := t.visiting[locator]; ok {
		chain := append(append([]string(nil), t.path[idx:]...), locator)
		return &manifest.CircularReferenceError{Kind: kind, Chain: chain}
	}
	t.visiting[locator] = len(t.path)
	t.path = append(t.path, locator)
	return nil
}

// Leave pops a locator off the active path. Callers pair every
// successful Enter with a Leave.
func (t *Tracker) Leave(locator string) {
	delete(t.visiting, locator)
	if n := len(t.path); n > 0 && t.path[n-1] == locator {
		t.path = t.path[:n-1]
	}
}

// Depth returns the current path length.
func (t *Tracker) Depth() int {
	return len(t.path)
}

// Clone returns an independent copy of the tracker for a forked
// traversal path. Concurrent module loads each get their own clone so
// per-path cycle detection stays race-free.
func (t *Tracker) Clone() *Tracker {
	out := &Tracker{
		visiting: make(map[string]int, len(t.visiting)),
		path:     append([]string(nil), t.path...),
	}
	for k, v := range t.visiting {
		out.visiting[k] = v
	}
	return out
}
