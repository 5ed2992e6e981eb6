package vtree

import (
	"fmt"
	"reflect"

	"github.com/google/go-cmp/cmp"
)

// Node is one element of a declarative snapshot.
//
// Params holds the kind's parameter record by value (nil for kinds without
// parameters). Key is the optional explicit key; an empty Key makes the node
// positional among its unkeyed siblings of the same kind.
type Node struct {
	Kind     Kind    `json:"kind" yaml:"kind"`
	Key      string  `json:"key,omitempty" yaml:"key,omitempty"`
	Params   any     `json:"params,omitempty" yaml:"params,omitempty"`
	Children []*Node `json:"children,omitempty" yaml:"children,omitempty"`
}

// New creates a node with the given children.
func New(kind Kind, params any, children ...*Node) *Node {
	return &Node{
		Kind:     kind,
		Params:   params,
		Children: children,
	}
}

// WithKey sets an explicit key and returns the node.
func (n *Node) WithKey(name string) *Node {
	n.Key = name
	return n
}

// Add appends children and returns the node.
func (n *Node) Add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// KeyedChild is a child paired with its sibling key.
type KeyedChild struct {
	Key  Key
	Node *Node
}

// Step returns the path step of the child.
func (c KeyedChild) Step() Step {
	return Step{Kind: c.Node.Kind, Key: c.Key}
}

// ChildKeys computes the key of every child, in order. Unkeyed children are
// numbered per kind, so a sibling of another kind never shifts them.
func (n *Node) ChildKeys() []Key {
	keys := make([]Key, len(n.Children))
	counters := make(map[Kind]int)
	for i, c := range n.Children {
		if c.Key != "" {
			keys[i] = Named(c.Key)
			continue
		}
		keys[i] = Positional(counters[c.Kind])
		counters[c.Kind]++
	}
	return keys
}

// Keyed returns the ordered keyed iteration over the children.
func (n *Node) Keyed() []KeyedChild {
	keys := n.ChildKeys()
	out := make([]KeyedChild, len(n.Children))
	for i, c := range n.Children {
		out[i] = KeyedChild{Key: keys[i], Node: c}
	}
	return out
}

// Clone deep-copies the tree structure. Params are shared.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Kind: n.Kind, Key: n.Key, Params: n.Params}
	if len(n.Children) > 0 {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// Count returns the number of nodes in the tree rooted at n.
func (n *Node) Count() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}

// String renders a compact one-line form, e.g. Window@w1[Button].
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	s := string(n.Kind)
	if n.Key != "" {
		s += "@" + n.Key
	}
	if len(n.Children) == 0 {
		return s
	}
	s += "["
	for i, c := range n.Children {
		if i > 0 {
			s += " "
		}
		s += c.String()
	}
	return s + "]"
}

// exportAll lets params records with unexported fields compare by value.
var exportAll = cmp.Exporter(func(reflect.Type) bool { return true })

// ParamsEqual reports whether two parameter records are equal by value,
// unexported fields included. Types with an Equal method are compared
// through it.
func ParamsEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return cmp.Equal(a, b, exportAll)
}

// checkSiblings fails when two children share a (kind, key) pair.
func checkSiblings(parent Path, children []KeyedChild) error {
	if len(children) < 2 {
		return nil
	}
	seen := make(map[Step]int, len(children))
	for i, c := range children {
		st := c.Step()
		if j, dup := seen[st]; dup {
			return NewFatalError(fmt.Sprintf("duplicate child %s at indices %d and %d", st, j, i), nil).
				WithCode(ErrCodeIdentityViolation).
				WithPath(parent)
		}
		seen[st] = i
	}
	return nil
}
