package registry

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/openfroyo/vtree/pkg/vtree"
)

var (
	w1     = vtree.Root().Child("Window", vtree.Named("w1"))
	button = w1.Child("Button", vtree.Positional(0))
	w2     = vtree.Root().Child("Window", vtree.Named("w2"))
)

func TestInsertGet(t *testing.T) {
	r := New[string]()
	if err := r.Insert(w1, "R1"); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	got, err := r.Get(w1)
	if err != nil || got != "R1" {
		t.Errorf("Get() = %q, %v", got, err)
	}

	err = r.Insert(w1, "again")
	if !vtree.HasCode(err, vtree.ErrCodeDuplicateAdd) || !vtree.IsFatal(err) {
		t.Errorf("second Insert() error = %v, want fatal %s", err, vtree.ErrCodeDuplicateAdd)
	}
	if got, _ := r.Get(w1); got != "R1" {
		t.Errorf("duplicate insert overwrote entry: %q", got)
	}

	_, err = r.Get(w2)
	if !vtree.HasCode(err, vtree.ErrCodeRegistryInconsistency) {
		t.Errorf("Get(missing) error = %v, want %s", err, vtree.ErrCodeRegistryInconsistency)
	}
}

func TestParent(t *testing.T) {
	r := New[string]()
	if err := r.Insert(w1, "R1"); err != nil {
		t.Fatal(err)
	}

	res, parent, err := r.Parent(button)
	if err != nil {
		t.Fatalf("Parent() error = %v", err)
	}
	if res != "R1" || parent != w1 {
		t.Errorf("Parent() = %q at %s", res, parent)
	}

	_, _, err = r.Parent(w1)
	if !vtree.HasCode(err, vtree.ErrCodeRegistryInconsistency) {
		t.Errorf("Parent() of top-level path error = %v, want %s", err, vtree.ErrCodeRegistryInconsistency)
	}

	_, _, err = r.Parent(vtree.Root())
	if !vtree.HasCode(err, vtree.ErrCodeInvalidOperation) {
		t.Errorf("Parent() of root error = %v, want %s", err, vtree.ErrCodeInvalidOperation)
	}
}

func TestPathsAndRemove(t *testing.T) {
	r := New[int]()
	for i, p := range []vtree.Path{w2, button, w1} {
		if err := r.Insert(p, i); err != nil {
			t.Fatal(err)
		}
	}

	if diff := cmp.Diff([]vtree.Path{w1, button, w2}, r.Paths(), cmp.Comparer(func(a, b vtree.Path) bool { return a == b })); diff != "" {
		t.Errorf("Paths() mismatch (-want +got):\n%s", diff)
	}
	if got := r.Under(w1); len(got) != 2 {
		t.Errorf("Under(w1) = %v, want 2 paths", got)
	}

	if _, ok := r.Remove(button); !ok {
		t.Error("Remove() should report the entry")
	}
	if _, ok := r.Remove(button); ok {
		t.Error("second Remove() should report no entry")
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}

	var visited []vtree.Path
	r.Range(func(p vtree.Path, _ int) bool {
		visited = append(visited, p)
		return false
	})
	if len(visited) != 1 || visited[0] != w1 {
		t.Errorf("Range() should stop after the first entry, visited %v", visited)
	}
}
