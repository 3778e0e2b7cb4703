// Package merge implements the template inheritance engine: combining a
// fully-resolved ancestor manifest with a raw child manifest under a
// merge policy. Merging is pure; both inputs are left untouched.
package merge

import (
	"github.com/spindleworks/spindle/domain/manifest"
)

// Policy controls how a child manifest merges with its ancestor.
type Policy struct {
	// MergeStyles overlays child style entries onto the ancestor's by
	// name; non-overlapping entries from both survive. When false the
	// child's table stands alone.
	MergeStyles bool

	// OverrideStructure replaces the ancestor structure wholesale with
	// the child's instead of deep-merging the two trees.
	OverrideStructure bool

	// PreserveSlots lists dotted structure paths (e.g. "structure.header")
	// whose ancestor value must survive even if the child supplies one.
	PreserveSlots []string
}

// PolicyFrom derives a Policy from a child's inheritance declaration.
// Absent fields take their defaults: styles merge, structures deep-merge.
func PolicyFrom(p *manifest.InheritPolicy) Policy {
	pol := Policy{MergeStyles: true}
	if p == nil {
		return pol
	}
	if p.MergeStyles != nil {
		pol.MergeStyles = *p.MergeStyles
	}
	pol.OverrideStructure = p.OverrideStructure
	pol.PreserveSlots = append([]string(nil), p.PreserveSlots...)
	return pol
}

// Merge combines a resolved ancestor with a child manifest. The child's
// extends reference and inheritance policy are consumed: they never
// propagate past the merge.
func Merge(ancestor, child *manifest.Manifest, pol Policy) *manifest.Manifest {
	out := child.Clone()
	anc := ancestor.Clone()

	out.Metadata = mergeMetadata(anc.Metadata, out.Metadata)

	if pol.MergeStyles {
		out.Styles = mergeStyles(anc.Styles, out.Styles)
	}

	preserve := make(map[string]bool, len(pol.PreserveSlots))
	for _, path := range pol.PreserveSlots {
		preserve[path] = true
	}
	if pol.OverrideStructure {
		if out.Structure == nil {
			out.Structure = anc.Structure
		}
	} else {
		out.Structure = mergeNode(anc.Structure, out.Structure, "structure", preserve)
	}

	out.Modules = mergeModules(anc.Modules, out.Modules)
	out.Imports = append(anc.Imports, out.Imports...)
	out.TemplateSlots = mergeSlots(anc.TemplateSlots, out.TemplateSlots)
	out.Exports = mergeExports(anc.Exports, out.Exports)

	return out
}

// mergeMetadata is a shallow field-by-field merge: child values win when
// present. The extends key is dropped once the ancestor is merged in.
func mergeMetadata(anc, child manifest.Metadata) manifest.Metadata {
	out := anc
	if child.Title != "" {
		out.Title = child.Title
	}
	if child.Description != "" {
		out.Description = child.Description
	}
	if child.Version != "" {
		out.Version = child.Version
	}
	if len(child.Extra) > 0 {
		if out.Extra == nil {
			out.Extra = make(map[string]string, len(child.Extra))
		}
		for k, v := range child.Extra {
			out.Extra[k] = v
		}
	}
	out.Extends = ""
	out.Inherit = nil
	return out
}

func mergeStyles(anc, child manifest.StyleTable) manifest.StyleTable {
	if anc == nil {
		return child
	}
	out := anc
	for name, entry := range child {
		out[name] = entry
	}
	return out
}

// mergeNode deep-merges two structure trees. Same-tag nodes merge
// property-by-property; on a tag mismatch the child replaces the
// ancestor. A path listed in preserve keeps the ancestor node wholesale.
// Both inputs are already private copies, so subtrees are shared freely.
func mergeNode(anc, child *manifest.Node, parentPath string, preserve map[string]bool) *manifest.Node {
	if anc == nil {
		return child
	}
	if child == nil {
		return anc
	}

	if anc.Tag != child.Tag {
		if preserve[parentPath+"."+anc.Tag] {
			return anc
		}
		return child
	}

	path := parentPath + "." + anc.Tag
	if preserve[path] {
		return anc
	}

	out := &manifest.Node{Tag: anc.Tag}

	for k, v := range anc.Props.Attrs {
		out.SetAttr(k, v)
	}
	for k, v := range child.Props.Attrs {
		out.SetAttr(k, v)
	}

	out.Props.Text = anc.Props.Text
	if child.Props.Text != "" {
		out.Props.Text = child.Props.Text
	}
	out.Props.Module = anc.Props.Module
	if child.Props.Module != "" {
		out.Props.Module = child.Props.Module
	}

	// Two single-child nodes merge recursively; any sequence is an
	// ordered value and the child's wins outright.
	switch {
	case len(anc.Props.Children) == 1 && len(child.Props.Children) == 1:
		out.Props.Children = []*manifest.Node{
			mergeNode(anc.Props.Children[0], child.Props.Children[0], path, preserve),
		}
	case child.Props.Children != nil:
		out.Props.Children = child.Props.Children
	default:
		out.Props.Children = anc.Props.Children
	}

	return out
}

// mergeModules keeps the ancestor's declaration order, with child
// declarations overriding the same alias and new aliases appended.
func mergeModules(anc, child []manifest.ModuleDecl) []manifest.ModuleDecl {
	if len(anc) == 0 {
		return child
	}
	byAlias := make(map[string]manifest.ModuleDecl, len(child))
	for _, decl := range child {
		byAlias[decl.Alias] = decl
	}
	out := make([]manifest.ModuleDecl, 0, len(anc)+len(child))
	seen := make(map[string]bool, len(anc))
	for _, decl := range anc {
		if override, ok := byAlias[decl.Alias]; ok {
			decl = override
		}
		out = append(out, decl)
		seen[decl.Alias] = true
	}
	for _, decl := range child {
		if !seen[decl.Alias] {
			out = append(out, decl)
		}
	}
	return out
}

func mergeSlots(anc, child map[string]manifest.SlotSpec) map[string]manifest.SlotSpec {
	if anc == nil {
		return child
	}
	for name, spec := range child {
		anc[name] = spec
	}
	return anc
}

func mergeExports(anc, child map[string]*manifest.Node) map[string]*manifest.Node {
	if anc == nil {
		return child
	}
	for name, node := range child {
		anc[name] = node
	}
	return anc
}
