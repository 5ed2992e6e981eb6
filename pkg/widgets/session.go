package widgets

import (
	"context"

	"github.com/openfroyo/vtree/pkg/vtree"
)

// Session is a vtree session over the widget binding.
type Session = vtree.Session[*State]

// NewSession creates a widget session over tk and builds root. The widget
// expansion is installed first so callers may replace it through opts.
func NewSession(ctx context.Context, tk Toolkit, root *vtree.Node, opts ...vtree.Option) (*Session, *vtree.Report, error) {
	return NewSessionWithState(ctx, NewState(tk), root, opts...)
}

// NewSessionWithState is NewSession over caller-owned state, so the
// registry can be inspected from observers of the create cycle.
func NewSessionWithState(ctx context.Context, st *State, root *vtree.Node, opts ...vtree.Option) (*Session, *vtree.Report, error) {
	opts = append([]vtree.Option{vtree.WithNormalizer(Expansion())}, opts...)
	return vtree.NewSession[*State](ctx, st, root, Differ{}, opts...)
}
