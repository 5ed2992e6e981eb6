package vtree

import (
	"context"
	"fmt"
)

// Normalizer rewrites a freshly authored snapshot into its comparable form
// before it is diffed. last is the previous normalized snapshot, or nil.
type Normalizer interface {
	Normalize(ctx context.Context, curr, last *Node) error
}

// NopNormalizer leaves snapshots untouched.
type NopNormalizer struct{}

// Normalize implements Normalizer.
func (NopNormalizer) Normalize(context.Context, *Node, *Node) error { return nil }

// Expander rewrites one node in place. last frames the node at the same
// path in the previous snapshot, or is nil. An expander may change params
// and children but never the node's kind or key.
type Expander func(curr, last *Frame) error

// Expansion is a Normalizer applying per-kind expanders top-down.
type Expansion struct {
	expanders map[Kind][]Expander
}

// NewExpansion creates an empty expansion.
func NewExpansion() *Expansion {
	return &Expansion{expanders: make(map[Kind][]Expander)}
}

// Register adds an expander for kind. Expanders of one kind run in
// registration order.
func (e *Expansion) Register(kind Kind, fn Expander) *Expansion {
	e.expanders[kind] = append(e.expanders[kind], fn)
	return e
}

// Normalize implements Normalizer.
func (e *Expansion) Normalize(ctx context.Context, curr, last *Node) error {
	if curr == nil {
		return nil
	}
	var lf *Frame
	if last != nil && last.Kind == curr.Kind {
		lf = RootFrame(last)
	}
	return e.expand(RootFrame(curr), lf)
}

func (e *Expansion) expand(curr, last *Frame) error {
	n := curr.Node()
	kind, key := n.Kind, n.Key
	for _, fn := range e.expanders[kind] {
		if err := fn(curr, last); err != nil {
			return fmt.Errorf("expand %s: %w", curr.Path(), err)
		}
		if n.Kind != kind || n.Key != key {
			return NewFatalError(fmt.Sprintf("expander changed identity of %s to %s", Step{Kind: kind, Key: curr.Key()}, n.Kind), nil).
				WithCode(ErrCodeNormalizationViolation).
				WithPath(curr.Path())
		}
	}

	children, err := curr.Children()
	if err != nil {
		return err
	}
	var previous map[Step]*Frame
	if last != nil {
		lastChildren, err := last.Children()
		if err != nil {
			return err
		}
		previous = make(map[Step]*Frame, len(lastChildren))
		for _, lc := range lastChildren {
			previous[lc.step()] = lc
		}
	}
	for _, c := range children {
		if err := e.expand(c, previous[c.step()]); err != nil {
			return err
		}
	}
	return nil
}
