package vtree

// ExitHook runs after every descendant of the frame it was registered on has
// been visited.
type ExitHook func(f *Frame) error

// Frame is a read-only cursor over a node in one snapshot. Frames are only
// valid for the duration of the callback that received them.
type Frame struct {
	node   *Node
	path   Path
	key    Key
	parent *Frame

	// exits is non-nil only while the frame is part of an added traversal.
	exits *[]ExitHook
}

// RootFrame returns a frame for the root of a snapshot.
func RootFrame(n *Node) *Frame {
	return &Frame{node: n}
}

// Node returns the framed node.
func (f *Frame) Node() *Node { return f.node }

// Path returns the identity of the framed node.
func (f *Frame) Path() Path { return f.path }

// Key returns the sibling key of the framed node.
func (f *Frame) Key() Key { return f.key }

// Kind returns the framed node's kind.
func (f *Frame) Kind() Kind { return f.node.Kind }

// Params returns the framed node's parameter record.
func (f *Frame) Params() any { return f.node.Params }

// Parent returns the parent frame, or nil at the root.
func (f *Frame) Parent() *Frame { return f.parent }

// Children returns frames for every child in order. It fails with an
// identity violation if two children share a (kind, key) pair.
func (f *Frame) Children() ([]*Frame, error) {
	keyed := f.node.Keyed()
	if err := checkSiblings(f.path, keyed); err != nil {
		return nil, err
	}
	out := make([]*Frame, len(keyed))
	for i, c := range keyed {
		out[i] = f.child(c)
	}
	return out, nil
}

func (f *Frame) child(c KeyedChild) *Frame {
	return &Frame{
		node:   c.Node,
		path:   f.path.Append(c.Step()),
		key:    c.Key,
		parent: f,
	}
}

// OnExit registers fn to run once the frame's subtree has been fully added.
// Hooks of one frame run in registration order; a child's hooks run before
// its parent's. Only frames passed to Differ.DiffAdded accept hooks.
func (f *Frame) OnExit(fn ExitHook) error {
	if f.exits == nil {
		return NewFatalError("on-exit hooks are only accepted during an added traversal", nil).
			WithCode(ErrCodeInvalidOperation).
			WithOperation("on_exit").
			WithPath(f.path)
	}
	*f.exits = append(*f.exits, fn)
	return nil
}
