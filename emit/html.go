package emit

import (
	"fmt"
	"html"
	"strings"

	"github.com/spindleworks/spindle/domain/manifest"
)

type htmlEmitter struct{}

func (htmlEmitter) Format() string { return "html" }

// Emit renders a standalone HTML document: metadata in the head, the
// style table as a stylesheet, imports as link/script elements, and the
// structure tree as the body.
func (htmlEmitter) Emit(m *manifest.Manifest) (File, error) {
	if err := ensureResolved(m); err != nil {
		return File{}, err
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	b.WriteString("  <meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "  <title>%s</title>\n", html.EscapeString(pageTitle(m)))
	if m.Metadata.Description != "" {
		fmt.Fprintf(&b, "  <meta name=\"description\" content=%q>\n",
			html.EscapeString(m.Metadata.Description))
	}

	for _, imp := range m.Imports {
		switch imp.Kind {
		case manifest.ImportStylesheet, manifest.ImportFont:
			fmt.Fprintf(&b, "  <link rel=\"stylesheet\" href=%q>\n", imp.Locator)
		case manifest.ImportScript:
			fmt.Fprintf(&b, "  <script src=%q></script>\n", imp.Locator)
		}
	}

	if len(m.Styles) > 0 {
		b.WriteString("  <style>\n")
		b.WriteString(cssRules(m.Styles, "    "))
		b.WriteString("  </style>\n")
	}

	b.WriteString("</head>\n<body>\n")
	writeHTMLNode(&b, m.Structure, 1)
	b.WriteString("</body>\n</html>\n")

	return File{Name: "output.html", Content: b.String()}, nil
}
