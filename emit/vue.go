package emit

import (
	"fmt"
	"strings"

	"github.com/spindleworks/spindle/domain/manifest"
)

type vueEmitter struct{}

func (vueEmitter) Format() string { return "vue" }

// Emit renders a single-file component: the structure tree as the
// template block and the style table as a scoped style block.
func (vueEmitter) Emit(m *manifest.Manifest) (File, error) {
	if err := ensureResolved(m); err != nil {
		return File{}, err
	}

	var b strings.Builder
	b.WriteString("<template>\n")
	writeHTMLNode(&b, m.Structure, 1)
	b.WriteString("</template>\n\n")

	b.WriteString("<script>\nexport default {\n")
	fmt.Fprintf(&b, "  name: '%s',\n", escapeJS(componentName(m.Metadata.Title)))
	b.WriteString("};\n</script>\n")

	if len(m.Styles) > 0 {
		b.WriteString("\n<style scoped>\n")
		b.WriteString(cssRules(m.Styles, ""))
		b.WriteString("</style>\n")
	}

	return File{Name: "output.vue", Content: b.String()}, nil
}
