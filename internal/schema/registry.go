// Package schema declares which sections exist and what shape each one has.
//
// A section is either a list of items or a single document, never both. The
// built-in declarations live in sections.cue and are checked against the
// #Section definition in schema.cue when the registry is built.
package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

//go:embed sections.cue
var sectionsCUE string

// Shape tags a section as a list or a document.
type Shape string

const (
	ShapeList     Shape = "list"
	ShapeDocument Shape = "document"
)

// ErrShapeConflict is returned when registering a name that is already
// declared with the other shape.
var ErrShapeConflict = errors.New("schema: section already declared with a different shape")

// Section is one declared section.
type Section struct {
	Name  string `json:"name"`
	Shape Shape  `json:"shape"`
	Label string `json:"label"`
}

// Registry maps section names to their declarations.
//
// Thread-safety: all methods are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sections map[string]Section
}

// Default returns a registry holding the built-in sections.
func Default() *Registry {
	r, err := Parse([]byte(sectionsCUE))
	if err != nil {
		panic(fmt.Sprintf("built-in sections.cue is invalid: %v", err))
	}
	return r
}

// Parse builds a registry from CUE source declaring a top-level sections
// struct.
func Parse(src []byte) (*Registry, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaCUE + "\n" + string(src))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	r := &Registry{sections: make(map[string]Section)}
	sv := v.LookupPath(cue.ParsePath("sections"))
	if !sv.Exists() {
		return r, nil
	}

	iter, err := sv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		shape, err := iter.Value().LookupPath(cue.ParsePath("shape")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		label, err := iter.Value().LookupPath(cue.ParsePath("label")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		r.sections[name] = Section{Name: name, Shape: Shape(shape), Label: label}
	}
	return r, nil
}

// Lookup returns the declaration for name.
func (r *Registry) Lookup(name string) (Section, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sections[name]
	return s, ok
}

// Register declares a section at runtime. Re-declaring a name with the same
// shape updates its label.
func (r *Registry) Register(s Section) error {
	if s.Name == "" {
		return fmt.Errorf("register section: name is required")
	}
	if s.Shape != ShapeList && s.Shape != ShapeDocument {
		return fmt.Errorf("register section %q: unknown shape %q", s.Name, s.Shape)
	}
	if s.Label == "" {
		s.Label = s.Name
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sections[s.Name]; ok && existing.Shape != s.Shape {
		return fmt.Errorf("%w: %q is a %s", ErrShapeConflict, s.Name, existing.Shape)
	}
	r.sections[s.Name] = s
	return nil
}

// Names returns every declared section name in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sections))
	for name := range r.sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sections returns every declaration sorted by name.
func (r *Registry) Sections() []Section {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Section, 0, len(names))
	for _, name := range names {
		out = append(out, r.sections[name])
	}
	return out
}

func formatCUEError(err error) error {
	return fmt.Errorf("section schema: %s", cueerrors.Details(err, nil))
}
