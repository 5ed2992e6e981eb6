package vtree

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

type titleParams struct {
	Title string
}

// runDiff diffs curr against last and returns the events as strings.
func runDiff(t *testing.T, curr, last *Node) []string {
	t.Helper()
	rec := NewRecorder[struct{}](NopDiffer[struct{}]{})
	ctx := &Context[struct{}]{Logger: zerolog.Nop()}
	if err := Diff(ctx, curr, last, rec); err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	return formatEvents(rec.Events())
}

func formatEvents(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		s := fmt.Sprintf("%s %s", e.Op, e.Path)
		if e.Cascade {
			s += " cascade"
		}
		if len(e.Moves) > 0 {
			s += fmt.Sprintf(" %v", e.Moves)
		}
		out = append(out, s)
	}
	return out
}

func sampleTree(title string) *Node {
	return New("Root", nil,
		New("Window", titleParams{Title: title},
			New("Box", nil,
				New("Button", nil),
				New("Label", nil, New("Text", nil)),
			),
		).WithKey("w1"),
	)
}

func TestDiffIdenticalTreesEmitNothing(t *testing.T) {
	trees := []*Node{
		New("Root", nil),
		sampleTree("A"),
		New("Root", nil, New("Window", titleParams{"x"}).WithKey("a"), New("Window", titleParams{"y"}).WithKey("b")),
	}
	for _, tree := range trees {
		t.Run(tree.String(), func(t *testing.T) {
			if events := runDiff(t, tree, tree.Clone()); len(events) != 0 {
				t.Errorf("Diff(T, T) events = %v, want none", events)
			}
		})
	}
}

func TestDiffAgainstEmptyAddsPreOrder(t *testing.T) {
	got := runDiff(t, sampleTree("A"), nil)
	want := []string{
		"added /",
		"added /Window@w1",
		"added /Window@w1/Box#0",
		"added /Window@w1/Box#0/Button#0",
		"added /Window@w1/Box#0/Label#0",
		"added /Window@w1/Box#0/Label#0/Text#0",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffToNilRemovesAll(t *testing.T) {
	got := runDiff(t, nil, sampleTree("A"))
	want := []string{
		"removed /",
		"removed /Window@w1 cascade",
		"removed /Window@w1/Box#0 cascade",
		"removed /Window@w1/Box#0/Button#0 cascade",
		"removed /Window@w1/Box#0/Label#0 cascade",
		"removed /Window@w1/Box#0/Label#0/Text#0 cascade",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffParamsChangeOnly(t *testing.T) {
	got := runDiff(t, sampleTree("B"), sampleTree("A"))
	want := []string{"params_changed /Window@w1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffRootKindChange(t *testing.T) {
	last := New("Root", nil, New("Window", titleParams{}).WithKey("w"))
	curr := New("Other", nil)
	got := runDiff(t, curr, last)
	want := []string{
		"removed /",
		"removed /Window@w cascade",
		"added /",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffChildren(t *testing.T) {
	win := func(key string) *Node { return New("Window", titleParams{Title: key}).WithKey(key) }

	tests := []struct {
		name string
		last *Node
		curr *Node
		want []string
	}{
		{
			name: "append",
			last: New("Root", nil, win("a")),
			curr: New("Root", nil, win("a"), win("b")),
			want: []string{"added /Window@b"},
		},
		{
			name: "remove middle",
			last: New("Root", nil, win("a"), win("b"), win("c")),
			curr: New("Root", nil, win("a"), win("c")),
			want: []string{"removed /Window@b"},
		},
		{
			name: "swap",
			last: New("Root", nil, win("a"), win("b")),
			curr: New("Root", nil, win("b"), win("a")),
			want: []string{"reordered / [{1 0} {0 1}]"},
		},
		{
			name: "removal does not imply reorder",
			last: New("Root", nil, win("a"), win("b"), win("c")),
			curr: New("Root", nil, win("c")),
			want: []string{"removed /Window@a", "removed /Window@b"},
		},
		{
			name: "insertion does not imply reorder",
			last: New("Root", nil, win("a"), win("c")),
			curr: New("Root", nil, win("b"), win("a"), win("x"), win("c")),
			want: []string{"added /Window@b", "added /Window@x"},
		},
		{
			name: "removals precede additions and reorder",
			last: New("Root", nil, win("a"), win("b"), win("c")),
			curr: New("Root", nil, win("c"), win("d"), win("a")),
			want: []string{
				"removed /Window@b",
				"added /Window@d",
				"reordered / [{2 0} {0 2}]",
			},
		},
		{
			name: "positional keys are per kind",
			last: New("Root", nil, New("Box", nil), New("Box", nil)),
			curr: New("Root", nil, New("Box", nil), New("Label", nil), New("Box", nil)),
			want: []string{"added /Label#0"},
		},
		{
			name: "unkeyed removal at front shifts identities",
			last: New("Root", nil, New("Window", titleParams{"1"}), New("Window", titleParams{"2"})),
			curr: New("Root", nil, New("Window", titleParams{"2"})),
			want: []string{"removed /Window#1", "params_changed /Window#0"},
		},
		{
			name: "node event precedes children",
			last: New("Root", nil, New("Window", titleParams{"a"}, New("Button", nil)).WithKey("w")),
			curr: New("Root", nil, New("Window", titleParams{"b"}, New("Label", nil)).WithKey("w")),
			want: []string{
				"params_changed /Window@w",
				"removed /Window@w/Button#0",
				"added /Window@w/Label#0",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runDiff(t, tt.curr, tt.last)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDiffReorderEmitsOncePerParent(t *testing.T) {
	last := New("Root", nil,
		New("Window", titleParams{}, New("Box", nil,
			New("Button", nil).WithKey("x"),
			New("Button", nil).WithKey("y"),
			New("Button", nil).WithKey("z"),
		)).WithKey("w"),
	)
	curr := New("Root", nil,
		New("Window", titleParams{}, New("Box", nil,
			New("Button", nil).WithKey("z"),
			New("Button", nil).WithKey("x"),
			New("Button", nil).WithKey("y"),
		)).WithKey("w"),
	)

	got := runDiff(t, curr, last)
	want := []string{"reordered /Window@w/Box#0 [{2 0} {0 1} {1 2}]"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffIdentityViolation(t *testing.T) {
	dup := New("Root", nil,
		New("Window", titleParams{}).WithKey("w"),
		New("Window", titleParams{}).WithKey("w"),
	)

	t.Run("in curr", func(t *testing.T) {
		rec := NewRecorder[struct{}](NopDiffer[struct{}]{})
		err := Diff(&Context[struct{}]{}, dup, New("Root", nil), rec)
		if !HasCode(err, ErrCodeIdentityViolation) {
			t.Fatalf("Diff() error = %v, want %s", err, ErrCodeIdentityViolation)
		}
		if !IsFatal(err) {
			t.Errorf("identity violation should be fatal")
		}
		if len(rec.Events()) != 0 {
			t.Errorf("no events expected before failure, got %v", formatEvents(rec.Events()))
		}
	})

	t.Run("in added subtree", func(t *testing.T) {
		rec := NewRecorder[struct{}](NopDiffer[struct{}]{})
		err := Diff(&Context[struct{}]{}, dup, nil, rec)
		if !HasCode(err, ErrCodeIdentityViolation) {
			t.Fatalf("Diff() error = %v, want %s", err, ErrCodeIdentityViolation)
		}
		if diff := cmp.Diff([]string{"added /"}, formatEvents(rec.Events())); diff != "" {
			t.Errorf("events mismatch (-want +got):\n%s", diff)
		}
	})
}

// failingDiffer fails the first callback touching path.
type failingDiffer struct {
	NopDiffer[struct{}]
	path string
}

var errToolkit = errors.New("toolkit refused")

func (d failingDiffer) DiffAdded(_ *Context[struct{}], f *Frame) error {
	if f.Path().String() == d.path {
		return errToolkit
	}
	return nil
}

func TestDiffAbortsOnDifferError(t *testing.T) {
	rec := NewRecorder[struct{}](failingDiffer{path: "/Window@w1/Box#0"})
	err := Diff(&Context[struct{}]{}, sampleTree("A"), nil, rec)
	if !errors.Is(err, errToolkit) {
		t.Fatalf("Diff() error = %v, want wrapped %v", err, errToolkit)
	}
	want := []string{"added /", "added /Window@w1", "added /Window@w1/Box#0"}
	if diff := cmp.Diff(want, formatEvents(rec.Events())); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

// hookDiffer registers an exit hook on every added frame.
type hookDiffer struct {
	NopDiffer[struct{}]
	log *[]string
}

func (d hookDiffer) DiffAdded(_ *Context[struct{}], f *Frame) error {
	*d.log = append(*d.log, "enter "+f.Path().String())
	return f.OnExit(func(f *Frame) error {
		*d.log = append(*d.log, "exit "+f.Path().String())
		return nil
	})
}

func (d hookDiffer) DiffParamsChanged(_ *Context[struct{}], curr, _ *Frame) error {
	err := curr.OnExit(func(*Frame) error { return nil })
	*d.log = append(*d.log, "hook outside add: "+CodeOf(err))
	return nil
}

func TestDiffExitHooksRunPostOrder(t *testing.T) {
	var log []string
	tree := New("Root", nil,
		New("Window", nil,
			New("Button", nil),
			New("Label", nil),
		).WithKey("w"),
	)
	if err := Diff(&Context[struct{}]{}, tree, nil, hookDiffer{log: &log}); err != nil {
		t.Fatalf("Diff() error = %v", err)
	}

	want := []string{
		"enter /",
		"enter /Window@w",
		"enter /Window@w/Button#0",
		"exit /Window@w/Button#0",
		"enter /Window@w/Label#0",
		"exit /Window@w/Label#0",
		"exit /Window@w",
		"exit /",
	}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Errorf("hook order mismatch (-want +got):\n%s", diff)
	}
}

type chainedHookDiffer struct {
	NopDiffer[struct{}]
	log *[]string
}

func (d chainedHookDiffer) DiffAdded(_ *Context[struct{}], f *Frame) error {
	return f.OnExit(func(f *Frame) error {
		*d.log = append(*d.log, "first "+f.Path().String())
		return f.OnExit(func(f *Frame) error {
			*d.log = append(*d.log, "second "+f.Path().String())
			return nil
		})
	})
}

func TestDiffExitHookRegisteredFromHookRuns(t *testing.T) {
	var log []string
	tree := New("Root", nil, New("Window", nil).WithKey("w"))
	if err := Diff(&Context[struct{}]{}, tree, nil, chainedHookDiffer{log: &log}); err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	want := []string{
		"first /Window@w",
		"second /Window@w",
		"first /",
		"second /",
	}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Errorf("hook order mismatch (-want +got):\n%s", diff)
	}
}

func TestFrameOnExitOutsideAddFails(t *testing.T) {
	var log []string
	last := New("Root", nil, New("Window", titleParams{"a"}).WithKey("w"))
	curr := New("Root", nil, New("Window", titleParams{"b"}).WithKey("w"))
	if err := Diff(&Context[struct{}]{}, curr, last, hookDiffer{log: &log}); err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if diff := cmp.Diff([]string{"hook outside add: " + ErrCodeInvalidOperation}, log); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
