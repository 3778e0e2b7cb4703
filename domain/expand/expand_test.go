package expand_test

import (
	"errors"
	"testing"

	"github.com/spindleworks/spindle/domain/expand"
	"github.com/spindleworks/spindle/domain/manifest"
)

func node(tag string, attrs map[string]string, children ...*manifest.Node) *manifest.Node {
	n := &manifest.Node{Tag: tag}
	for k, v := range attrs {
		n.SetAttr(k, v)
	}
	n.Props.Children = children
	return n
}

func textNode(tag, text string) *manifest.Node {
	n := &manifest.Node{Tag: tag}
	n.Props.Text = text
	return n
}

func moduleNode(tag, alias string) *manifest.Node {
	n := &manifest.Node{Tag: tag}
	n.Props.Module = alias
	return n
}

func TestApply_ModuleExportByTag(t *testing.T) {
	mods := expand.Modules{
		"nav": {
			Structure: textNode("div", "top-level"),
			Exports: map[string]*manifest.Node{
				"header": textNode("header", "exported header"),
			},
		},
	}
	root := node("div", nil, moduleNode("header", "nav"))

	out, _, err := expand.Apply(root, mods, nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := out.Props.Children[0]
	if got.Props.Text != "exported header" {
		t.Errorf("expanded = %+v", got)
	}
	if got.Props.Module != "" {
		t.Error("module reference survived expansion")
	}
}

func TestApply_ModuleFallbackToStructure(t *testing.T) {
	mods := expand.Modules{
		"nav": {Structure: textNode("div", "top-level")},
	}
	root := node("div", nil, moduleNode("aside", "nav"))

	out, _, err := expand.Apply(root, mods, nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Props.Children[0].Props.Text != "top-level" {
		t.Errorf("expanded = %+v", out.Props.Children[0])
	}
}

func TestApply_ModuleWithNothingKeepsContent(t *testing.T) {
	mods := expand.Modules{"empty": {}}
	ref := moduleNode("section", "empty")
	ref.Props.Text = "own content"
	ref.Props.Children = []*manifest.Node{textNode("p", "kept")}
	root := node("div", nil, ref)

	out, _, err := expand.Apply(root, mods, nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := out.Props.Children[0]
	if got.Props.Text != "own content" || len(got.Props.Children) != 1 {
		t.Errorf("node emptied: %+v", got)
	}
	if got.Props.Module != "" {
		t.Error("module reference survived")
	}
}

func TestApply_MissingAliasRequired(t *testing.T) {
	root := node("div", nil, moduleNode("section", "ghost"))

	_, _, err := expand.Apply(root, nil, nil, nil, nil)
	var missing *manifest.MissingReferenceError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingReferenceError, got %v", err)
	}
	if missing.Kind != manifest.RefModule || missing.Name != "ghost" {
		t.Errorf("error = %+v", missing)
	}
}

func TestApply_MissingAliasOptional(t *testing.T) {
	ref := moduleNode("section", "ghost")
	ref.Props.Text = "fallback"
	root := node("div", nil, ref)

	out, _, err := expand.Apply(root, nil, map[string]bool{"ghost": true}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := out.Props.Children[0]
	if got.Props.Text != "fallback" {
		t.Errorf("original content lost: %+v", got)
	}
	if got.Props.Module != "" {
		t.Error("module reference survived")
	}
}

func TestApply_SlotSpliceImportedContent(t *testing.T) {
	root := node("div", nil, node("main", map[string]string{"id": "content-slot"}))
	slots := map[string]manifest.SlotSpec{
		"content": {Placeholder: "content-slot", Required: true},
	}
	content := expand.SlotContent{
		"content": textNode("article", "supplied"),
	}

	out, filled, err := expand.Apply(root, nil, nil, slots, content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := out.Props.Children[0]
	if got.Tag != "article" || got.Props.Text != "supplied" {
		t.Errorf("spliced = %+v", got)
	}
	if !filled["content"] {
		t.Error("slot not reported as filled")
	}
}

func TestApply_SlotDefault(t *testing.T) {
	root := node("div", nil, node("main", map[string]string{"id": "content-slot"}))
	slots := map[string]manifest.SlotSpec{
		"content": {
			Placeholder: "content-slot",
			Default:     textNode("p", "default content"),
		},
	}

	out, filled, err := expand.Apply(root, nil, nil, slots, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Props.Children[0].Props.Text != "default content" {
		t.Errorf("default not spliced: %+v", out.Props.Children[0])
	}
	if !filled["content"] {
		t.Error("slot not reported as filled")
	}
}

func TestApply_OptionalSlotLeftAsIs(t *testing.T) {
	placeholder := node("main", map[string]string{"id": "content-slot"})
	root := node("div", nil, placeholder)
	slots := map[string]manifest.SlotSpec{
		"content": {Placeholder: "content-slot"},
	}

	out, filled, err := expand.Apply(root, nil, nil, slots, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := out.Props.Children[0]
	if got.Tag != "main" || got.Attr("id") != "content-slot" {
		t.Errorf("placeholder altered: %+v", got)
	}
	if filled["content"] {
		t.Error("absent optional slot reported as filled")
	}
}

func TestApply_RequiredSlotUnfilled(t *testing.T) {
	root := node("div", nil, node("main", map[string]string{"id": "content-slot"}))
	slots := map[string]manifest.SlotSpec{
		"content": {Placeholder: "content-slot", Required: true},
	}

	_, _, err := expand.Apply(root, nil, nil, slots, nil)
	var missing *manifest.MissingReferenceError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingReferenceError, got %v", err)
	}
	if missing.Kind != manifest.RefSlot || missing.Name != "content" {
		t.Errorf("error = %+v", missing)
	}
}

func TestApply_RequiredSlotPlaceholderAbsent(t *testing.T) {
	root := node("div", nil)
	slots := map[string]manifest.SlotSpec{
		"content": {Placeholder: "nowhere", Required: true, Default: textNode("p", "x")},
	}

	_, _, err := expand.Apply(root, nil, nil, slots, nil)
	var missing *manifest.MissingReferenceError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingReferenceError, got %v", err)
	}
}

func TestApply_SlotFirstMatchDepthFirst(t *testing.T) {
	first := node("section", map[string]string{"id": "slot"})
	second := node("aside", map[string]string{"id": "slot"})
	root := node("div", nil, node("wrap", nil, first), second)
	slots := map[string]manifest.SlotSpec{
		"s": {Placeholder: "slot"},
	}
	content := expand.SlotContent{"s": textNode("p", "filled")}

	out, _, err := expand.Apply(root, nil, nil, slots, content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The nested section comes first in document order.
	if out.Props.Children[0].Props.Children[0].Props.Text != "filled" {
		t.Errorf("first match not replaced: %+v", out.Props.Children[0].Props.Children[0])
	}
	if out.Props.Children[1].Tag != "aside" {
		t.Errorf("second match replaced: %+v", out.Props.Children[1])
	}
}

func TestApply_InputNotMutated(t *testing.T) {
	ref := moduleNode("header", "nav")
	root := node("div", map[string]string{"id": "app"}, ref)
	mods := expand.Modules{
		"nav": {Exports: map[string]*manifest.Node{"header": textNode("header", "x")}},
	}

	if _, _, err := expand.Apply(root, mods, nil, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.Props.Children[0].Props.Module != "nav" {
		t.Error("input tree mutated")
	}
}
