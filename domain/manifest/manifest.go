// Package manifest defines the in-memory manifest model: the unit of
// resolution. A manifest is parsed from YAML (or supplied inline), mutated
// only by the resolution pipeline, and immutable once resolved.
package manifest

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest is a declarative page document: metadata, a style table, a
// structure tree, and its declared relationships (template, modules,
// imports, slots).
type Manifest struct {
	Metadata      Metadata            `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	Styles        StyleTable          `yaml:"styles,omitempty" json:"styles,omitempty"`
	Structure     *Node               `yaml:"structure,omitempty" json:"structure,omitempty"`
	Modules       []ModuleDecl        `yaml:"modules,omitempty" json:"modules,omitempty"`
	Imports       []Import            `yaml:"imports,omitempty" json:"imports,omitempty"`
	TemplateSlots map[string]SlotSpec `yaml:"templateSlots,omitempty" json:"templateSlots,omitempty"`
	Exports       map[string]*Node    `yaml:"exports,omitempty" json:"exports,omitempty"`
}

// Metadata holds document metadata. Extends and Inherit are consumed
// during template merging and never survive into a resolved manifest.
// Unknown scalar keys are kept in Extra and shallow-merged key-by-key.
type Metadata struct {
	Title       string
	Description string
	Version     string
	Extends     string
	Inherit     *InheritPolicy
	Extra       map[string]string
}

// InheritPolicy controls how a child manifest merges with its ancestor.
type InheritPolicy struct {
	MergeStyles       *bool    `yaml:"mergeStyles,omitempty" json:"mergeStyles,omitempty"`
	OverrideStructure bool     `yaml:"overrideStructure,omitempty" json:"overrideStructure,omitempty"`
	PreserveSlots     []string `yaml:"preserveSlots,omitempty" json:"preserveSlots,omitempty"`
}

// StyleTable maps style names to entries.
type StyleTable map[string]StyleEntry

// StyleEntry is a property map plus an optional extends reference to
// another style in the same table.
type StyleEntry struct {
	Extends string
	Props   map[string]string
}

// ModuleState tracks a module declaration through resolution.
type ModuleState string

const (
	ModuleUnresolved ModuleState = "unresolved"
	ModuleLoading    ModuleState = "loading"
	ModuleLoaded     ModuleState = "loaded"
	ModuleFailed     ModuleState = "failed"
)

// ModuleDecl declares an imported module by alias.
type ModuleDecl struct {
	Alias    string `yaml:"alias" json:"alias"`
	Locator  string `yaml:"locator" json:"locator"`
	Version  string `yaml:"version,omitempty" json:"version,omitempty"`
	Optional bool   `yaml:"optional,omitempty" json:"optional,omitempty"`

	State    ModuleState `yaml:"-" json:"-"`
	Resolved *Manifest   `yaml:"-" json:"-"`
}

// ImportKind types an import declaration.
type ImportKind string

const (
	ImportStylesheet    ImportKind = "stylesheet"
	ImportScript        ImportKind = "script"
	ImportFont          ImportKind = "font"
	ImportModuleForSlot ImportKind = "module-for-slot"
)

// Import declares an external resource. A module-for-slot import supplies
// content for the named template slot.
type Import struct {
	Kind     ImportKind `yaml:"kind" json:"kind"`
	Locator  string     `yaml:"locator" json:"locator"`
	Slot     string     `yaml:"slot,omitempty" json:"slot,omitempty"`
	Optional bool       `yaml:"optional,omitempty" json:"optional,omitempty"`
}

// SlotSpec describes a template slot: which placeholder node it targets
// and what happens when no import supplies content for it.
type SlotSpec struct {
	Placeholder string `yaml:"placeholder" json:"placeholder"`
	Required    bool   `yaml:"required,omitempty" json:"required,omitempty"`
	Default     *Node  `yaml:"default,omitempty" json:"default,omitempty"`

	// Filled is set during resolution once content was spliced for the
	// slot. Absent in the wire form until then.
	Filled bool `yaml:"filled,omitempty" json:"filled,omitempty"`
}

// UnmarshalYAML decodes metadata, keeping unknown scalar keys in Extra.
func (m *Metadata) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return &StructuralError{Reason: "metadata must be a mapping"}
	}
	for i := 0; i < len(value.Content); i += 2 {
		k, v := value.Content[i].Value, value.Content[i+1]
		switch k {
		case "title":
			m.Title = v.Value
		case "description":
			m.Description = v.Value
		case "version":
			m.Version = v.Value
		case "extends":
			m.Extends = v.Value
		case "inherit":
			pol := &InheritPolicy{}
			if err := v.Decode(pol); err != nil {
				return &StructuralError{Reason: fmt.Sprintf("metadata.inherit: %v", err)}
			}
			m.Inherit = pol
		default:
			if v.Kind != yaml.ScalarNode {
				return &StructuralError{Reason: fmt.Sprintf("metadata key %q must be a scalar", k)}
			}
			if m.Extra == nil {
				m.Extra = make(map[string]string)
			}
			m.Extra[k] = v.Value
		}
	}
	return nil
}

// MarshalYAML re-encodes metadata with Extra keys flattened.
func (m Metadata) MarshalYAML() (interface{}, error) {
	return m.asMap(), nil
}

// MarshalJSON mirrors the YAML form.
func (m Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.asMap())
}

func (m Metadata) asMap() map[string]interface{} {
	out := make(map[string]interface{}, len(m.Extra)+5)
	for k, v := range m.Extra {
		out[k] = v
	}
	if m.Title != "" {
		out["title"] = m.Title
	}
	if m.Description != "" {
		out["description"] = m.Description
	}
	if m.Version != "" {
		out["version"] = m.Version
	}
	if m.Extends != "" {
		out["extends"] = m.Extends
	}
	if m.Inherit != nil {
		out["inherit"] = m.Inherit
	}
	return out
}

// UnmarshalYAML decodes a style entry, pulling the reserved extends key
// out of the property map. A plain scalar is accepted as a CSS
// declaration string ("max-width: 800px; margin: 0 auto").
func (s *StyleEntry) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		return s.parseDeclarations(value.Value)
	case yaml.MappingNode:
	default:
		return &StructuralError{Reason: "style entry must be a mapping or a declaration string"}
	}
	for i := 0; i < len(value.Content); i += 2 {
		k, v := value.Content[i].Value, value.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return &StructuralError{Reason: fmt.Sprintf("style property %q must be a scalar", k)}
		}
		if k == "extends" {
			s.Extends = v.Value
			continue
		}
		if s.Props == nil {
			s.Props = make(map[string]string)
		}
		s.Props[k] = v.Value
	}
	return nil
}

// parseDeclarations splits a semicolon-separated CSS declaration string
// into the property map.
func (s *StyleEntry) parseDeclarations(css string) error {
	for _, decl := range strings.Split(css, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			return &StructuralError{Reason: fmt.Sprintf("malformed style declaration %q", decl)}
		}
		if s.Props == nil {
			s.Props = make(map[string]string)
		}
		s.Props[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return nil
}

// MarshalYAML re-encodes the entry in its wire form.
func (s StyleEntry) MarshalYAML() (interface{}, error) {
	return s.asMap(), nil
}

// MarshalJSON mirrors the YAML form.
func (s StyleEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.asMap())
}

func (s StyleEntry) asMap() map[string]string {
	out := make(map[string]string, len(s.Props)+1)
	for k, v := range s.Props {
		out[k] = v
	}
	if s.Extends != "" {
		out["extends"] = s.Extends
	}
	return out
}

// Clone returns a deep copy of the entry.
func (s StyleEntry) Clone() StyleEntry {
	out := StyleEntry{Extends: s.Extends}
	if s.Props != nil {
		out.Props = make(map[string]string, len(s.Props))
		for k, v := range s.Props {
			out.Props[k] = v
		}
	}
	return out
}

// Clone returns a deep copy of the table.
func (t StyleTable) Clone() StyleTable {
	if t == nil {
		return nil
	}
	out := make(StyleTable, len(t))
	for name, entry := range t {
		out[name] = entry.Clone()
	}
	return out
}

// Clone returns a deep copy of the manifest. Resolution always operates
// on copies so cached ancestors are never mutated.
func (m *Manifest) Clone() *Manifest {
	if m == nil {
		return nil
	}
	out := &Manifest{
		Metadata:  m.Metadata,
		Styles:    m.Styles.Clone(),
		Structure: m.Structure.Clone(),
	}
	if m.Metadata.Inherit != nil {
		pol := *m.Metadata.Inherit
		if m.Metadata.Inherit.MergeStyles != nil {
			b := *m.Metadata.Inherit.MergeStyles
			pol.MergeStyles = &b
		}
		pol.PreserveSlots = append([]string(nil), m.Metadata.Inherit.PreserveSlots...)
		out.Metadata.Inherit = &pol
	}
	if m.Metadata.Extra != nil {
		out.Metadata.Extra = make(map[string]string, len(m.Metadata.Extra))
		for k, v := range m.Metadata.Extra {
			out.Metadata.Extra[k] = v
		}
	}
	if m.Modules != nil {
		out.Modules = make([]ModuleDecl, len(m.Modules))
		for i, decl := range m.Modules {
			decl.Resolved = decl.Resolved.Clone()
			out.Modules[i] = decl
		}
	}
	out.Imports = append([]Import(nil), m.Imports...)
	if m.TemplateSlots != nil {
		out.TemplateSlots = make(map[string]SlotSpec, len(m.TemplateSlots))
		for name, spec := range m.TemplateSlots {
			spec.Default = spec.Default.Clone()
			out.TemplateSlots[name] = spec
		}
	}
	if m.Exports != nil {
		out.Exports = make(map[string]*Node, len(m.Exports))
		for name, node := range m.Exports {
			out.Exports[name] = node.Clone()
		}
	}
	return out
}

// versionTag matches supported version tags: dotted numerics like
// "1", "1.0", or "2.1.3".
var versionTag = regexp.MustCompile(`^\d+(\.\d+)*$`)

// Validate checks structural well-formedness: supported version tag,
// bounded structure depth, unique module aliases, and coherent import
// and slot declarations. It does not validate business semantics.
func (m *Manifest) Validate(maxDepth int) error {
	if m.Metadata.Version != "" && !versionTag.MatchString(m.Metadata.Version) {
		return &StructuralError{Reason: fmt.Sprintf("unsupported version tag %q", m.Metadata.Version)}
	}
	if maxDepth > 0 && m.Structure.Depth() > maxDepth {
		return &StructuralError{Reason: fmt.Sprintf("structure exceeds maximum depth %d", maxDepth)}
	}
	seen := make(map[string]bool, len(m.Modules))
	for _, decl := range m.Modules {
		if decl.Alias == "" {
			return &StructuralError{Reason: "module declaration missing alias"}
		}
		if decl.Locator == "" {
			return &StructuralError{Reason: fmt.Sprintf("module %q missing locator", decl.Alias)}
		}
		if seen[decl.Alias] {
			return &StructuralError{Reason: fmt.Sprintf("duplicate module alias %q", decl.Alias)}
		}
		seen[decl.Alias] = true
	}
	for _, imp := range m.Imports {
		switch imp.Kind {
		case ImportStylesheet, ImportScript, ImportFont:
		case ImportModuleForSlot:
			if imp.Slot == "" {
				return &StructuralError{Reason: fmt.Sprintf("module-for-slot import %q missing slot name", imp.Locator)}
			}
		default:
			return &StructuralError{Reason: fmt.Sprintf("unknown import kind %q", imp.Kind)}
		}
		if imp.Locator == "" {
			return &StructuralError{Reason: "import missing locator"}
		}
	}
	for name, spec := range m.TemplateSlots {
		if spec.Placeholder == "" {
			return &StructuralError{Reason: fmt.Sprintf("slot %q missing placeholder id", name)}
		}
	}
	return nil
}

// Resolved reports whether the manifest carries no remaining references:
// no extends, no flat-table extends, and no unexpanded module nodes.
func (m *Manifest) Resolved() bool {
	if m.Metadata.Extends != "" {
		return false
	}
	for _, entry := range m.Styles {
		if entry.Extends != "" {
			return false
		}
	}
	unexpanded := false
	m.Structure.Walk(func(n *Node) bool {
		if n.Props.Module != "" {
			unexpanded = true
			return false
		}
		return true
	})
	return !unexpanded
}
