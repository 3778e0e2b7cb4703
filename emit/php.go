package emit

import (
	"fmt"
	"strings"

	"github.com/spindleworks/spindle/domain/manifest"
)

type phpEmitter struct{}

func (phpEmitter) Format() string { return "php" }

// Emit renders a PHP page: metadata as variables at the top, then the
// same document the html emitter produces with the title echoed through
// htmlspecialchars.
func (phpEmitter) Emit(m *manifest.Manifest) (File, error) {
	if err := ensureResolved(m); err != nil {
		return File{}, err
	}

	var b strings.Builder
	b.WriteString("<?php\n")
	fmt.Fprintf(&b, "$title = '%s';\n", escapePHP(pageTitle(m)))
	if m.Metadata.Description != "" {
		fmt.Fprintf(&b, "$description = '%s';\n", escapePHP(m.Metadata.Description))
	}
	b.WriteString("?>\n")

	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	b.WriteString("  <meta charset=\"utf-8\">\n")
	b.WriteString("  <title><?php echo htmlspecialchars($title); ?></title>\n")
	if m.Metadata.Description != "" {
		b.WriteString("  <meta name=\"description\" content=\"<?php echo htmlspecialchars($description); ?>\">\n")
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

	return File{Name: "output.php", Content: b.String()}, nil
}

func escapePHP(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
