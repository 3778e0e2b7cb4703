package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Parse decodes raw manifest text into the in-memory model. The text may
// be YAML or JSON (a YAML subset). Malformed documents surface as
// StructuralError.
func Parse(raw []byte) (*Manifest, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &StructuralError{Reason: fmt.Sprintf("invalid document: %v", err)}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &StructuralError{Reason: "empty document"}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &StructuralError{Reason: "manifest must be a mapping"}
	}

	m := &Manifest{}
	if err := root.Decode(m); err != nil {
		if structural, ok := err.(*StructuralError); ok {
			return nil, structural
		}
		return nil, &StructuralError{Reason: fmt.Sprintf("invalid manifest: %v", err)}
	}
	return m, nil
}

// MarshalText serializes a manifest back to YAML.
func MarshalText(m *Manifest) ([]byte, error) {
	out, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return out, nil
}
