package manifest

import (
	"fmt"
	"strings"
)

// RefKind identifies which kind of reference an error is about.
type RefKind string

const (
	RefTemplate RefKind = "template"
	RefModule   RefKind = "module"
	RefStyle    RefKind = "style"
	RefSlot     RefKind = "slot"
)

// StructuralError indicates a manifest that is not a well-formed document
// or declares an unsupported version tag. Always fatal.
type StructuralError struct {
	Reason string
}

func (e *StructuralError) Error() string {
	return "structural error: " + e.Reason
}

// CircularReferenceError indicates a cycle in a template chain, module
// graph, or style extends chain. Chain lists the identifiers along the
// cycle, ending with the repeated one.
type CircularReferenceError struct {
	Kind  RefKind
	Chain []string
}

func (e *CircularReferenceError) Error() string {
	return fmt.Sprintf("circular %s reference: %s", e.Kind, strings.Join(e.Chain, " -> "))
}

// MissingReferenceError indicates a style, module, slot, or template
// ancestor that could not be found.
type MissingReferenceError struct {
	Kind RefKind
	Name string
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("missing %s reference: %q", e.Kind, e.Name)
}

// VersionMismatchError indicates a module whose version constraint the
// loaded manifest does not satisfy.
type VersionMismatchError struct {
	Alias      string
	Constraint string
	Actual     string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("module %q requires version %q, loaded manifest declares %q",
		e.Alias, e.Constraint, e.Actual)
}

// LoadError indicates a fetch/read failure from the reference loader.
type LoadError struct {
	Locator string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %q: %v", e.Locator, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
