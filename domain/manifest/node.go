package manifest

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Node is a single element of a structure tree: a tag name plus a
// property bag. The YAML wire form is a single-key mapping
// `tag: {props}` with the reserved keys text, children, and module;
// every other key lands in the open attribute map.
type Node struct {
	Tag   string
	Props PropertyBag
}

// PropertyBag holds a node's reserved fields and open attributes.
type PropertyBag struct {
	Text     string
	Module   string // alias of an imported module to expand in this position
	Children []*Node
	Attrs    map[string]string
}

// UnmarshalYAML decodes the single-key mapping wire form.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode || len(value.Content) != 2 {
		return &StructuralError{Reason: "node must be a single-key mapping"}
	}
	key, props := value.Content[0], value.Content[1]
	if key.Kind != yaml.ScalarNode || key.Value == "" {
		return &StructuralError{Reason: "node tag must be a non-empty scalar"}
	}
	n.Tag = key.Value

	if props.Tag == "!!null" {
		return nil
	}
	if props.Kind != yaml.MappingNode {
		return &StructuralError{Reason: fmt.Sprintf("node %q: properties must be a mapping", n.Tag)}
	}

	for i := 0; i < len(props.Content); i += 2 {
		k, v := props.Content[i].Value, props.Content[i+1]
		switch k {
		case "text":
			if v.Kind != yaml.ScalarNode {
				return &StructuralError{Reason: fmt.Sprintf("node %q: text must be a scalar", n.Tag)}
			}
			n.Props.Text = v.Value
		case "module":
			if v.Kind != yaml.ScalarNode {
				return &StructuralError{Reason: fmt.Sprintf("node %q: module must be a scalar", n.Tag)}
			}
			n.Props.Module = v.Value
		case "children":
			children, err := decodeChildren(n.Tag, v)
			if err != nil {
				return err
			}
			n.Props.Children = children
		default:
			if v.Kind != yaml.ScalarNode {
				return &StructuralError{Reason: fmt.Sprintf("node %q: attribute %q must be a scalar", n.Tag, k)}
			}
			if n.Props.Attrs == nil {
				n.Props.Attrs = make(map[string]string)
			}
			n.Props.Attrs[k] = v.Value
		}
	}
	return nil
}

// decodeChildren accepts a single child mapping or a sequence of them.
func decodeChildren(tag string, v *yaml.Node) ([]*Node, error) {
	switch v.Kind {
	case yaml.SequenceNode:
		children := make([]*Node, 0, len(v.Content))
		for _, item := range v.Content {
			child := &Node{}
			if err := item.Decode(child); err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return children, nil
	case yaml.MappingNode:
		child := &Node{}
		if err := v.Decode(child); err != nil {
			return nil, err
		}
		return []*Node{child}, nil
	default:
		return nil, &StructuralError{Reason: fmt.Sprintf("node %q: children must be a mapping or sequence", tag)}
	}
}

// MarshalYAML re-encodes the single-key mapping wire form.
func (n *Node) MarshalYAML() (interface{}, error) {
	return n.asMap(), nil
}

// MarshalJSON mirrors the YAML wire form.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.asMap())
}

func (n *Node) asMap() map[string]interface{} {
	props := make(map[string]interface{}, len(n.Props.Attrs)+3)
	for k, v := range n.Props.Attrs {
		props[k] = v
	}
	if n.Props.Text != "" {
		props["text"] = n.Props.Text
	}
	if n.Props.Module != "" {
		props["module"] = n.Props.Module
	}
	switch len(n.Props.Children) {
	case 0:
	case 1:
		props["children"] = n.Props.Children[0].asMap()
	default:
		children := make([]interface{}, len(n.Props.Children))
		for i, c := range n.Props.Children {
			children[i] = c.asMap()
		}
		props["children"] = children
	}
	return map[string]interface{}{n.Tag: props}
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Tag: n.Tag}
	out.Props.Text = n.Props.Text
	out.Props.Module = n.Props.Module
	if n.Props.Attrs != nil {
		out.Props.Attrs = make(map[string]string, len(n.Props.Attrs))
		for k, v := range n.Props.Attrs {
			out.Props.Attrs[k] = v
		}
	}
	if n.Props.Children != nil {
		out.Props.Children = make([]*Node, len(n.Props.Children))
		for i, c := range n.Props.Children {
			out.Props.Children[i] = c.Clone()
		}
	}
	return out
}

// Attr returns the named attribute, or "" if absent.
func (n *Node) Attr(name string) string {
	if n == nil || n.Props.Attrs == nil {
		return ""
	}
	return n.Props.Attrs[name]
}

// SetAttr sets an attribute, allocating the map on first use.
func (n *Node) SetAttr(name, value string) {
	if n.Props.Attrs == nil {
		n.Props.Attrs = make(map[string]string)
	}
	n.Props.Attrs[name] = value
}

// FindByID returns the first node (depth-first, document order) whose
// id attribute equals id, or nil.
func (n *Node) FindByID(id string) *Node {
	if n == nil {
		return nil
	}
	if n.Attr("id") == id {
		return n
	}
	for _, c := range n.Props.Children {
		if found := c.FindByID(id); found != nil {
			return found
		}
	}
	return nil
}

// Walk visits the node and its descendants depth-first. Returning false
// from fn stops the walk.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, c := range n.Props.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Depth returns the height of the tree rooted at n.
func (n *Node) Depth() int {
	if n == nil {
		return 0
	}
	max := 0
	for _, c := range n.Props.Children {
		if d := c.Depth(); d > max {
			max = d
		}
	}
	return max + 1
}
