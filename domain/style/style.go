// Package style resolves extends chains inside a manifest style table.
// Resolution is pure: it returns a new, flat table and never mutates its
// input.
package style

import (
	"github.com/spindleworks/spindle/domain/manifest"
)

// Resolve flattens every extends chain in the table into a single
// property map. Ancestor properties come first; an entry's own
// properties win on key collision. The extends key itself never
// survives into the result. Cyclic or missing references are errors.
func Resolve(table manifest.StyleTable) (manifest.StyleTable, error) {
	flat := make(manifest.StyleTable, len(table))
	r := resolver{
		table:    table,
		resolved: make(map[string]map[string]string, len(table)),
		visiting: make(map[string]bool),
	}
	for name := range table {
		props, err := r.resolve(name)
		if err != nil {
			return nil, err
		}
		flat[name] = manifest.StyleEntry{Props: props}
	}
	return flat, nil
}

type resolver struct {
	table    manifest.StyleTable
	resolved map[string]map[string]string
	visiting map[string]bool
	chain    []string
}

func (r *resolver) resolve(name string) (map[string]string, error) {
	if props, ok := r.resolved[name]; ok {
		return props, nil
	}
	if r.visiting[name] {
		return nil, &manifest.CircularReferenceError{
			Kind:  manifest.RefStyle,
			Chain: append(append([]string(nil), r.chain...), name),
		}
	}
	entry, ok := r.table[name]
	if !ok {
		return nil, &manifest.MissingReferenceError{Kind: manifest.RefStyle, Name: name}
	}

	r.visiting[name] = true
	r.chain = append(r.chain, name)
	defer func() {
		delete(r.visiting, name)
		r.chain = r.chain[:len(r.chain)-1]
	}()

	props := make(map[string]string, len(entry.Props))
	if entry.Extends != "" {
		ancestor, err := r.resolve(entry.Extends)
		if err != nil {
			return nil, err
		}
		for k, v := range ancestor {
			props[k] = v
		}
	}
	for k, v := range entry.Props {
		props[k] = v
	}

	r.resolved[name] = props
	return props, nil
}
