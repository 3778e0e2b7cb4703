package emit

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/spindleworks/spindle/domain/manifest"
)

type reactEmitter struct{}

func (reactEmitter) Format() string { return "react" }

// Emit renders a functional component: the style table becomes a styles
// object with camel-cased property names, the structure tree becomes the
// returned JSX.
func (reactEmitter) Emit(m *manifest.Manifest) (File, error) {
	if err := ensureResolved(m); err != nil {
		return File{}, err
	}

	var b strings.Builder
	b.WriteString("import React from 'react';\n\n")

	if len(m.Styles) > 0 {
		b.WriteString("const styles = {\n")
		for _, name := range styleNames(m.Styles) {
			fmt.Fprintf(&b, "  %s: {\n", name)
			props := m.Styles[name].Props
			for _, k := range propNames(props) {
				fmt.Fprintf(&b, "    %s: '%s',\n", camelCase(k), escapeJS(props[k]))
			}
			b.WriteString("  },\n")
		}
		b.WriteString("};\n\n")
	}

	name := componentName(m.Metadata.Title)
	fmt.Fprintf(&b, "export default function %s() {\n", name)
	b.WriteString("  return (\n")
	writeJSXNode(&b, m.Structure, 2)
	b.WriteString("  );\n}\n")

	return File{Name: "output.jsx", Content: b.String()}, nil
}

// jsxAttrNames maps HTML attribute names to their JSX spellings.
var jsxAttrNames = map[string]string{
	"class": "className",
	"for":   "htmlFor",
}

func writeJSXNode(b *strings.Builder, n *manifest.Node, depth int) {
	if n == nil {
		return
	}
	indent := strings.Repeat("  ", depth)

	b.WriteString(indent)
	b.WriteString("<")
	b.WriteString(n.Tag)
	for _, k := range propNames(n.Props.Attrs) {
		name := k
		if jsx, ok := jsxAttrNames[k]; ok {
			name = jsx
		}
		fmt.Fprintf(b, " %s=%q", name, n.Props.Attrs[k])
	}

	if len(n.Props.Children) == 0 && n.Props.Text == "" {
		b.WriteString(" />\n")
		return
	}
	b.WriteString(">")

	if len(n.Props.Children) == 0 {
		b.WriteString(escapeJSX(n.Props.Text))
		b.WriteString("</")
		b.WriteString(n.Tag)
		b.WriteString(">\n")
		return
	}

	b.WriteString("\n")
	if n.Props.Text != "" {
		b.WriteString(strings.Repeat("  ", depth+1))
		b.WriteString(escapeJSX(n.Props.Text))
		b.WriteString("\n")
	}
	for _, c := range n.Props.Children {
		writeJSXNode(b, c, depth+1)
	}
	b.WriteString(indent)
	b.WriteString("</")
	b.WriteString(n.Tag)
	b.WriteString(">\n")
}

// componentName derives a component identifier from the page title.
func componentName(title string) string {
	var b strings.Builder
	upper := true
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || (unicode.IsDigit(r) && b.Len() > 0):
			if upper {
				r = unicode.ToUpper(r)
				upper = false
			}
			b.WriteRune(r)
		default:
			upper = true
		}
	}
	if b.Len() == 0 {
		return "Page"
	}
	return b.String()
}

// camelCase rewrites a kebab-case CSS property name for a JS object key.
func camelCase(s string) string {
	parts := strings.Split(s, "-")
	for i := 1; i < len(parts); i++ {
		if parts[i] == "" {
			continue
		}
		parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
	}
	return strings.Join(parts, "")
}

func escapeJS(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func escapeJSX(s string) string {
	s = strings.ReplaceAll(s, "{", "&#123;")
	s = strings.ReplaceAll(s, "}", "&#125;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	return s
}
