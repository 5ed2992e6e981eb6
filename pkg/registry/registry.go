// Package registry provides the path-keyed side table a Differ binding uses
// to own its live resources.
package registry

import (
	"fmt"
	"sort"

	"github.com/openfroyo/vtree/pkg/vtree"
)

// Registry maps tree paths to resources. A path is present iff its node was
// added and not yet removed. Not safe for concurrent use.
type Registry[R any] struct {
	entries map[vtree.Path]R
}

// New creates an empty registry.
func New[R any]() *Registry[R] {
	return &Registry[R]{entries: make(map[vtree.Path]R)}
}

// Insert stores r at p. A second insert at the same path fails with
// DUPLICATE_ADD.
func (r *Registry[R]) Insert(p vtree.Path, res R) error {
	if _, exists := r.entries[p]; exists {
		return vtree.NewFatalError("resource already registered", nil).
			WithCode(vtree.ErrCodeDuplicateAdd).
			WithOperation("insert").
			WithPath(p)
	}
	r.entries[p] = res
	return nil
}

// Get returns the resource at p. A missing entry fails with
// REGISTRY_INCONSISTENCY.
func (r *Registry[R]) Get(p vtree.Path) (R, error) {
	res, ok := r.entries[p]
	if !ok {
		return res, vtree.NewFatalError("no resource registered", nil).
			WithCode(vtree.ErrCodeRegistryInconsistency).
			WithOperation("get").
			WithPath(p)
	}
	return res, nil
}

// Lookup returns the resource at p and whether it exists.
func (r *Registry[R]) Lookup(p vtree.Path) (R, bool) {
	res, ok := r.entries[p]
	return res, ok
}

// Parent returns the resource registered at p's parent path.
func (r *Registry[R]) Parent(p vtree.Path) (R, vtree.Path, error) {
	var zero R
	parent, err := p.Parent()
	if err != nil {
		return zero, vtree.Path{}, err
	}
	res, ok := r.entries[parent]
	if !ok {
		return zero, parent, vtree.NewFatalError(fmt.Sprintf("parent of %s has no resource", p), nil).
			WithCode(vtree.ErrCodeRegistryInconsistency).
			WithOperation("parent").
			WithPath(parent)
	}
	return res, parent, nil
}

// Remove deletes and returns the entry at p.
func (r *Registry[R]) Remove(p vtree.Path) (R, bool) {
	res, ok := r.entries[p]
	if ok {
		delete(r.entries, p)
	}
	return res, ok
}

// Len returns the number of entries.
func (r *Registry[R]) Len() int {
	return len(r.entries)
}

// Paths returns every registered path in path order.
func (r *Registry[R]) Paths() []vtree.Path {
	paths := make([]vtree.Path, 0, len(r.entries))
	for p := range r.entries {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i].Less(paths[j]) })
	return paths
}

// Range calls fn for every entry in path order until fn returns false.
func (r *Registry[R]) Range(fn func(p vtree.Path, res R) bool) {
	for _, p := range r.Paths() {
		if !fn(p, r.entries[p]) {
			return
		}
	}
}

// Under returns the registered paths at or below prefix, in path order.
func (r *Registry[R]) Under(prefix vtree.Path) []vtree.Path {
	var out []vtree.Path
	for _, p := range r.Paths() {
		if p.HasPrefix(prefix) {
			out = append(out, p)
		}
	}
	return out
}
