// Package emit turns resolved manifests into source files for a target
// framework. Emitters are the last stage: they assume a fully resolved
// manifest and reject anything that still carries references.
package emit

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/spindleworks/spindle/domain/manifest"
)

// File is an emitted source file.
type File struct {
	Name    string
	Content string
}

// Emitter renders one target format.
type Emitter interface {
	// Format names the target (html, react, vue, php).
	Format() string

	// Emit renders the manifest. The manifest must be fully resolved.
	Emit(m *manifest.Manifest) (File, error)
}

// ForFormat returns the emitter for a format name.
func ForFormat(format string) (Emitter, error) {
	switch format {
	case "html":
		return htmlEmitter{}, nil
	case "react":
		return reactEmitter{}, nil
	case "vue":
		return vueEmitter{}, nil
	case "php":
		return phpEmitter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// Formats lists the supported format names.
func Formats() []string {
	return []string{"html", "react", "vue", "php"}
}

// ensureResolved rejects manifests that still carry an extends, an
// unexpanded module reference, or an unfilled required slot. The
// resolver guarantees none of these reach an emitter; this is the
// boundary check for manifests handed over directly.
func ensureResolved(m *manifest.Manifest) error {
	if m == nil || m.Structure == nil {
		return &manifest.StructuralError{Reason: "nothing to emit: empty structure"}
	}
	if m.Metadata.Extends != "" {
		return &manifest.StructuralError{
			Reason: fmt.Sprintf("manifest still extends %q; resolve before emitting", m.Metadata.Extends),
		}
	}
	var moduleRef string
	m.Structure.Walk(func(n *manifest.Node) bool {
		if n.Props.Module != "" {
			moduleRef = n.Props.Module
			return false
		}
		return true
	})
	if moduleRef != "" {
		return &manifest.StructuralError{
			Reason: fmt.Sprintf("unexpanded module reference %q; resolve before emitting", moduleRef),
		}
	}
	// Fill state, not a placeholder-id probe: spliced content may
	// legitimately carry the placeholder's id.
	for name, spec := range m.TemplateSlots {
		if spec.Required && !spec.Filled {
			return &manifest.MissingReferenceError{Kind: manifest.RefSlot, Name: name}
		}
	}
	return nil
}

// styleNames returns the table's names sorted, for deterministic output.
func styleNames(t manifest.StyleTable) []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// propNames returns a property map's keys sorted.
func propNames(props map[string]string) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// cssRules renders the style table as class rules.
func cssRules(t manifest.StyleTable, indent string) string {
	var b strings.Builder
	for _, name := range styleNames(t) {
		b.WriteString(indent)
		b.WriteString(".")
		b.WriteString(name)
		b.WriteString(" { ")
		props := t[name].Props
		for _, k := range propNames(props) {
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(props[k])
			b.WriteString("; ")
		}
		b.WriteString("}\n")
	}
	return b.String()
}

// voidTags never carry children or a closing tag in HTML output.
var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// writeHTMLNode renders a node tree as indented HTML.
func writeHTMLNode(b *strings.Builder, n *manifest.Node, depth int) {
	if n == nil {
		return
	}
	indent := strings.Repeat("  ", depth)

	b.WriteString(indent)
	b.WriteString("<")
	b.WriteString(n.Tag)
	for _, k := range propNames(n.Props.Attrs) {
		fmt.Fprintf(b, " %s=%q", k, html.EscapeString(n.Props.Attrs[k]))
	}

	if voidTags[n.Tag] {
		b.WriteString(" />\n")
		return
	}
	b.WriteString(">")

	if len(n.Props.Children) == 0 {
		b.WriteString(html.EscapeString(n.Props.Text))
		b.WriteString("</")
		b.WriteString(n.Tag)
		b.WriteString(">\n")
		return
	}

	b.WriteString("\n")
	if n.Props.Text != "" {
		b.WriteString(strings.Repeat("  ", depth+1))
		b.WriteString(html.EscapeString(n.Props.Text))
		b.WriteString("\n")
	}
	for _, c := range n.Props.Children {
		writeHTMLNode(b, c, depth+1)
	}
	b.WriteString(indent)
	b.WriteString("</")
	b.WriteString(n.Tag)
	b.WriteString(">\n")
}

func pageTitle(m *manifest.Manifest) string {
	if m.Metadata.Title != "" {
		return m.Metadata.Title
	}
	return "Untitled"
}
