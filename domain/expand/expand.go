// Package expand rewrites a merged structure tree: module reference
// nodes are replaced with the referenced module's exported structure,
// and template slot placeholders are spliced with imported or default
// content. Rewriting is pure; new trees are returned and inputs are
// never mutated.
package expand

import (
	"sort"

	"github.com/spindleworks/spindle/domain/manifest"
)

// Modules maps module aliases to their resolved manifests.
type Modules map[string]*manifest.Manifest

// SlotContent maps slot names to externally supplied content.
type SlotContent map[string]*manifest.Node

// Apply performs module expansion and slot substitution over the tree.
// tolerated lists aliases whose load failed but were marked optional: a
// node referencing one keeps its own content instead of failing. The
// returned set names the slots whose content was actually spliced.
func Apply(root *manifest.Node, mods Modules, tolerated map[string]bool,
	slots map[string]manifest.SlotSpec, content SlotContent) (*manifest.Node, map[string]bool, error) {

	out, err := expandNode(root, mods, tolerated)
	if err != nil {
		return nil, nil, err
	}

	// Deterministic substitution order regardless of map iteration.
	names := make([]string, 0, len(slots))
	for name := range slots {
		names = append(names, name)
	}
	sort.Strings(names)

	filled := make(map[string]bool, len(names))
	for _, name := range names {
		spec := slots[name]

		replacement := content[name]
		if replacement == nil {
			replacement = spec.Default
		}
		if replacement == nil {
			if spec.Required {
				return nil, nil, &manifest.MissingReferenceError{Kind: manifest.RefSlot, Name: name}
			}
			// Absent optional slots render as empty containers.
			continue
		}

		spliced, found := substitute(out, spec.Placeholder, replacement)
		if !found {
			if spec.Required {
				return nil, nil, &manifest.MissingReferenceError{Kind: manifest.RefSlot, Name: name}
			}
			continue
		}
		out = spliced
		filled[name] = true
	}

	return out, filled, nil
}

// expandNode replaces module reference nodes. The referenced module's
// export matching the node's tag wins, then the module's top-level
// structure; a module with neither leaves the node's own content
// untouched (a node is never silently emptied).
func expandNode(n *manifest.Node, mods Modules, tolerated map[string]bool) (*manifest.Node, error) {
	if n == nil {
		return nil, nil
	}

	if alias := n.Props.Module; alias != "" {
		mod, ok := mods[alias]
		if !ok {
			if !tolerated[alias] {
				return nil, &manifest.MissingReferenceError{Kind: manifest.RefModule, Name: alias}
			}
			return stripModuleRef(n, mods, tolerated)
		}
		if export, ok := mod.Exports[n.Tag]; ok {
			return export.Clone(), nil
		}
		if mod.Structure != nil {
			return mod.Structure.Clone(), nil
		}
		return stripModuleRef(n, mods, tolerated)
	}

	out := &manifest.Node{Tag: n.Tag}
	out.Props.Text = n.Props.Text
	if n.Props.Attrs != nil {
		for k, v := range n.Props.Attrs {
			out.SetAttr(k, v)
		}
	}
	if n.Props.Children != nil {
		out.Props.Children = make([]*manifest.Node, len(n.Props.Children))
		for i, c := range n.Props.Children {
			expanded, err := expandNode(c, mods, tolerated)
			if err != nil {
				return nil, err
			}
			out.Props.Children[i] = expanded
		}
	}
	return out, nil
}

// stripModuleRef keeps a node's own content, consuming the module
// reference so the resolved tree carries none.
func stripModuleRef(n *manifest.Node, mods Modules, tolerated map[string]bool) (*manifest.Node, error) {
	kept := n.Clone()
	kept.Props.Module = ""
	return expandNode(kept, mods, tolerated)
}

// substitute replaces the first node (depth-first) whose id attribute
// equals placeholder with a clone of replacement, returning the new tree
// and whether a placeholder was found.
func substitute(n *manifest.Node, placeholder string, replacement *manifest.Node) (*manifest.Node, bool) {
	if n == nil {
		return nil, false
	}
	if n.Attr("id") == placeholder {
		return replacement.Clone(), true
	}

	for i, c := range n.Props.Children {
		spliced, found := substitute(c, placeholder, replacement)
		if !found {
			continue
		}
		out := n.Clone()
		out.Props.Children[i] = spliced
		return out, true
	}
	return n, false
}
