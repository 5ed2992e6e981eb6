package vtree

import (
	"github.com/rs/zerolog"
)

// Context is handed to every Differ callback of one cycle.
type Context[S any] struct {
	// State is the consumer's private state, typically holding its
	// resource registry.
	State S

	// Logger is the session logger tagged with the cycle id.
	Logger zerolog.Logger

	// CycleID identifies the update cycle.
	CycleID string
}

// Move is one entry of a reorder permutation: the child at index From in
// the previous snapshot sits at index To in the current one.
type Move struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Differ is implemented by bindings that materialize diff events into
// external resources.
type Differ[S any] interface {
	// DiffAdded is called once per node of an added subtree, parents first.
	// The frame accepts OnExit hooks.
	DiffAdded(ctx *Context[S], curr *Frame) error

	// DiffRemoved is called with cascade=false for the top node of a removed
	// subtree, then with cascade=true for every descendant in pre-order.
	DiffRemoved(ctx *Context[S], last *Frame, cascade bool) error

	// DiffParamsChanged is called for a matched node whose params differ.
	DiffParamsChanged(ctx *Context[S], curr, last *Frame) error

	// DiffReordered is called once per parent whose matched children changed
	// relative order. moves covers every matched child, in current order.
	DiffReordered(ctx *Context[S], parent *Frame, moves []Move) error
}

// NopDiffer ignores every event.
type NopDiffer[S any] struct{}

func (NopDiffer[S]) DiffAdded(*Context[S], *Frame) error { return nil }
func (NopDiffer[S]) DiffRemoved(*Context[S], *Frame, bool) error { return nil }
func (NopDiffer[S]) DiffParamsChanged(*Context[S], *Frame, *Frame) error { return nil }
func (NopDiffer[S]) DiffReordered(*Context[S], *Frame, []Move) error { return nil }
