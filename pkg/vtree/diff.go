package vtree

import (
	"fmt"
)

// Diff compares two normalized snapshots and drives differ with the
// classified changes. A nil last is the empty tree, so every node of curr is
// added; a nil curr removes every node of last.
//
// Per parent, events are delivered as: removals in last order, then the curr
// children in order (an added subtree, or params-changed followed by the
// comparison of the child's own children), then at most one reorder. The
// first differ error aborts the walk.
func Diff[S any](ctx *Context[S], curr, last *Node, differ Differ[S]) error {
	switch {
	case curr == nil && last == nil:
		return nil
	case last == nil:
		return addSubtree(ctx, RootFrame(curr), differ)
	case curr == nil:
		return removeSubtree(ctx, RootFrame(last), differ)
	case curr.Kind != last.Kind:
		if err := removeSubtree(ctx, RootFrame(last), differ); err != nil {
			return err
		}
		return addSubtree(ctx, RootFrame(curr), differ)
	}
	return diffMatched(ctx, RootFrame(curr), RootFrame(last), differ)
}

// diffMatched compares two frames that share a path.
func diffMatched[S any](ctx *Context[S], curr, last *Frame, differ Differ[S]) error {
	if !ParamsEqual(curr.Params(), last.Params()) {
		if err := differ.DiffParamsChanged(ctx, curr, last); err != nil {
			return wrapDifferError(err, "params_changed", curr.Path())
		}
	}
	return diffChildren(ctx, curr, last, differ)
}

func diffChildren[S any](ctx *Context[S], curr, last *Frame, differ Differ[S]) error {
	currChildren, err := curr.Children()
	if err != nil {
		return err
	}
	lastChildren, err := last.Children()
	if err != nil {
		return err
	}
	if len(currChildren) == 0 && len(lastChildren) == 0 {
		return nil
	}

	lastIndex := make(map[Step]int, len(lastChildren))
	for i, lf := range lastChildren {
		lastIndex[lf.step()] = i
	}
	currIndex := make(map[Step]int, len(currChildren))
	for i, cf := range currChildren {
		currIndex[cf.step()] = i
	}

	for _, lf := range lastChildren {
		if _, kept := currIndex[lf.step()]; kept {
			continue
		}
		if err := removeSubtree(ctx, lf, differ); err != nil {
			return err
		}
	}

	var moves []Move
	reordered := false
	prev := -1
	for to, cf := range currChildren {
		from, matched := lastIndex[cf.step()]
		if !matched {
			if err := addSubtree(ctx, cf, differ); err != nil {
				return err
			}
			continue
		}
		if from < prev {
			reordered = true
		}
		prev = from
		moves = append(moves, Move{From: from, To: to})
		if err := diffMatched(ctx, cf, lastChildren[from], differ); err != nil {
			return err
		}
	}

	if reordered {
		if err := differ.DiffReordered(ctx, curr, moves); err != nil {
			return wrapDifferError(err, "reordered", curr.Path())
		}
	}
	return nil
}

// addSubtree visits the subtree pre-order, then runs the exit hooks
// registered on each frame once its own subtree is complete.
func addSubtree[S any](ctx *Context[S], f *Frame, differ Differ[S]) error {
	var hooks []ExitHook
	f.exits = &hooks
	defer func() { f.exits = nil }()

	if err := differ.DiffAdded(ctx, f); err != nil {
		return wrapDifferError(err, "added", f.Path())
	}
	children, err := f.Children()
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := addSubtree(ctx, c, differ); err != nil {
			return err
		}
	}
	// Hooks may register further hooks on the same frame; they run too.
	for i := 0; i < len(hooks); i++ {
		if err := hooks[i](f); err != nil {
			return wrapDifferError(err, "on_exit", f.Path())
		}
	}
	return nil
}

// removeSubtree reports the top node, then walks every descendant once.
func removeSubtree[S any](ctx *Context[S], f *Frame, differ Differ[S]) error {
	if err := differ.DiffRemoved(ctx, f, false); err != nil {
		return wrapDifferError(err, "removed", f.Path())
	}
	return cascade(ctx, f, differ)
}

func cascade[S any](ctx *Context[S], f *Frame, differ Differ[S]) error {
	children, err := f.Children()
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := differ.DiffRemoved(ctx, c, true); err != nil {
			return wrapDifferError(err, "removed", c.Path())
		}
		if err := cascade(ctx, c, differ); err != nil {
			return err
		}
	}
	return nil
}

func (f *Frame) step() Step {
	return Step{Kind: f.node.Kind, Key: f.key}
}

func wrapDifferError(err error, op string, p Path) error {
	return fmt.Errorf("diff %s at %s: %w", op, p, err)
}
