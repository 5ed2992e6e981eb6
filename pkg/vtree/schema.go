package vtree

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Multiplicity constrains how many children a kind accepts.
type Multiplicity int

const (
	// Optional accepts zero or one child.
	Optional Multiplicity = iota
	// One requires exactly one child.
	One
	// Many accepts any number of children.
	Many
)

// String returns the multiplicity name.
func (m Multiplicity) String() string {
	switch m {
	case Optional:
		return "optional"
	case One:
		return "one"
	case Many:
		return "many"
	}
	return fmt.Sprintf("multiplicity(%d)", int(m))
}

// ChildRule lists the child kinds a kind accepts. Entries are kind names or
// "@Group" references.
type ChildRule struct {
	Accepts      []string
	Multiplicity Multiplicity
}

// KindSpec declares one node kind.
type KindSpec struct {
	Kind Kind

	// Params is a zero value of the kind's parameter record, or nil for
	// kinds without parameters.
	Params any

	// Groups lists the named capability sets the kind belongs to.
	Groups []string

	// Children is nil for leaf kinds.
	Children *ChildRule
}

// Schema is a fixed declaration of node kinds. The diff engine never
// consults it; it serves the tree-construction layer.
type Schema struct {
	name   string
	root   Kind
	kinds  map[Kind]*KindSpec
	groups map[string]map[Kind]bool
}

// NewSchema builds a schema rooted at root.
func NewSchema(name string, root Kind, specs ...KindSpec) (*Schema, error) {
	s := &Schema{
		name:   name,
		root:   root,
		kinds:  make(map[Kind]*KindSpec, len(specs)),
		groups: make(map[string]map[Kind]bool),
	}
	for i := range specs {
		spec := specs[i]
		if err := ValidateKind(spec.Kind); err != nil {
			return nil, err
		}
		if _, dup := s.kinds[spec.Kind]; dup {
			return nil, NewInputError(fmt.Sprintf("kind %s declared twice", spec.Kind), nil).
				WithCode(ErrCodeSchemaViolation)
		}
		s.kinds[spec.Kind] = &spec
		for _, g := range spec.Groups {
			if s.groups[g] == nil {
				s.groups[g] = make(map[Kind]bool)
			}
			s.groups[g][spec.Kind] = true
		}
	}
	if _, ok := s.kinds[root]; !ok {
		return nil, NewInputError(fmt.Sprintf("root kind %s is not declared", root), nil).
			WithCode(ErrCodeSchemaViolation)
	}
	for _, spec := range s.kinds {
		if spec.Children == nil {
			continue
		}
		for _, ref := range spec.Children.Accepts {
			if g, ok := strings.CutPrefix(ref, "@"); ok {
				if _, known := s.groups[g]; !known {
					return nil, NewInputError(fmt.Sprintf("kind %s accepts unknown group %s", spec.Kind, g), nil).
						WithCode(ErrCodeSchemaViolation)
				}
				continue
			}
			if _, known := s.kinds[Kind(ref)]; !known {
				return nil, NewInputError(fmt.Sprintf("kind %s accepts unknown kind %s", spec.Kind, ref), nil).
					WithCode(ErrCodeSchemaViolation)
			}
		}
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error. It is meant for
// package-level schema declarations.
func MustSchema(name string, root Kind, specs ...KindSpec) *Schema {
	s, err := NewSchema(name, root, specs...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// Root returns the kind expected at the root of every snapshot.
func (s *Schema) Root() Kind { return s.root }

// Spec returns the declaration of kind.
func (s *Schema) Spec(kind Kind) (*KindSpec, bool) {
	spec, ok := s.kinds[kind]
	return spec, ok
}

// Kinds returns the declared kinds in sorted order.
func (s *Schema) Kinds() []Kind {
	out := make([]Kind, 0, len(s.kinds))
	for k := range s.kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// InGroup reports whether kind belongs to group.
func (s *Schema) InGroup(kind Kind, group string) bool {
	return s.groups[group][kind]
}

// Accepts reports whether parent may hold a child of kind child.
func (s *Schema) Accepts(parent, child Kind) bool {
	spec, ok := s.kinds[parent]
	if !ok || spec.Children == nil {
		return false
	}
	for _, ref := range spec.Children.Accepts {
		if g, isGroup := strings.CutPrefix(ref, "@"); isGroup {
			if s.InGroup(child, g) {
				return true
			}
			continue
		}
		if Kind(ref) == child {
			return true
		}
	}
	return false
}

// NewParams returns a pointer to a fresh zero parameter record for kind,
// or nil if the kind has no parameters.
func (s *Schema) NewParams(kind Kind) any {
	spec, ok := s.kinds[kind]
	if !ok || spec.Params == nil {
		return nil
	}
	return reflect.New(reflect.TypeOf(spec.Params)).Interface()
}

// Validate checks a snapshot against the schema: root kind, known kinds,
// parameter record types, legal child kinds, multiplicity and sibling
// identity. All violations are reported together.
func (s *Schema) Validate(root *Node) error {
	if root == nil {
		return NewInputError("nil snapshot", nil).WithCode(ErrCodeSchemaViolation)
	}
	var errs []error
	if root.Kind != s.root {
		errs = append(errs, fmt.Errorf("/: root kind is %s, expected %s", root.Kind, s.root))
	}
	s.validateNode(Root(), root, &errs)
	if len(errs) > 0 {
		return NewInputError(fmt.Sprintf("snapshot violates schema %s", s.name), errors.Join(errs...)).
			WithCode(ErrCodeSchemaViolation).
			WithDetail("violations", len(errs))
	}
	return nil
}

func (s *Schema) validateNode(p Path, n *Node, errs *[]error) {
	spec, ok := s.kinds[n.Kind]
	if !ok {
		*errs = append(*errs, fmt.Errorf("%s: unknown kind %s", p, n.Kind))
		return
	}

	switch {
	case spec.Params == nil && n.Params != nil:
		*errs = append(*errs, fmt.Errorf("%s: kind %s takes no params, got %T", p, n.Kind, n.Params))
	case spec.Params != nil && reflect.TypeOf(n.Params) != reflect.TypeOf(spec.Params):
		*errs = append(*errs, fmt.Errorf("%s: kind %s expects params %T, got %T", p, n.Kind, spec.Params, n.Params))
	}

	count := len(n.Children)
	switch {
	case spec.Children == nil && count > 0:
		*errs = append(*errs, fmt.Errorf("%s: kind %s takes no children", p, n.Kind))
		return
	case spec.Children == nil:
		return
	case spec.Children.Multiplicity == One && count != 1:
		*errs = append(*errs, fmt.Errorf("%s: kind %s requires exactly one child, got %d", p, n.Kind, count))
	case spec.Children.Multiplicity == Optional && count > 1:
		*errs = append(*errs, fmt.Errorf("%s: kind %s accepts at most one child, got %d", p, n.Kind, count))
	}

	keyed := n.Keyed()
	if err := checkSiblings(p, keyed); err != nil {
		*errs = append(*errs, err)
	}
	for _, c := range keyed {
		cp := p.Append(c.Step())
		if !s.Accepts(n.Kind, c.Node.Kind) {
			*errs = append(*errs, fmt.Errorf("%s: kind %s is not a legal child of %s", cp, c.Node.Kind, n.Kind))
		}
		s.validateNode(cp, c.Node, errs)
	}
}
