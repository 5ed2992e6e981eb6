// Package vtree reconciles successive snapshots of a declarative node tree
// against a collection of live, externally owned resources.
//
// # Overview
//
// A caller rebuilds the whole tree every cycle and hands it to a Session.
// The session runs one cycle in three steps:
//
//  1. Normalize - expand the new snapshot, optionally consulting the last one (Normalizer)
//  2. Diff - walk new and last in lock-step by path identity (Diff)
//  3. Retain - keep the normalized snapshot as "last" for the next cycle
//
// # Identity
//
// A node's identity is its Path: the (kind, key) steps from the root. A key
// is either explicit (Node.Key) or positional, counted among unkeyed
// siblings of the same kind. Two nodes in different snapshots are the same
// logical node iff their paths are equal. Duplicate (kind, key) pairs among
// siblings fail the cycle with IDENTITY_VIOLATION.
//
// # Differ Protocol
//
// The engine never touches resources. Bindings implement Differ:
//
//	type Differ[S any] interface {
//	    DiffAdded(ctx *Context[S], curr *Frame) error
//	    DiffRemoved(ctx *Context[S], last *Frame, cascade bool) error
//	    DiffParamsChanged(ctx *Context[S], curr, last *Frame) error
//	    DiffReordered(ctx *Context[S], parent *Frame, moves []Move) error
//	}
//
// Added subtrees are visited pre-order; hooks registered with Frame.OnExit
// run post-order once a frame's subtree is complete. Removed subtrees report
// the top node with cascade=false, then every descendant with cascade=true.
// Bindings keep their resources in a path-keyed side table (see package
// registry), never in the tree.
//
// # Error Classification
//
//   - Fatal: broken invariant; the cycle aborts and the session is broken
//   - Input: malformed snapshot or schema violation
//   - Transient: I/O failure that may succeed on retry
package vtree
