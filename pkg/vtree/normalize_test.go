package vtree

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type sizeParams struct {
	Title  string
	Width  int
	Height int
}

// sizeCarryOver fills zero sizes from the previous snapshot, or a default.
func sizeCarryOver(curr, last *Frame) error {
	p := curr.Params().(sizeParams)
	prev := sizeParams{Width: 100, Height: 50}
	if last != nil {
		prev = last.Params().(sizeParams)
	}
	if p.Width == 0 {
		p.Width = prev.Width
	}
	if p.Height == 0 {
		p.Height = prev.Height
	}
	curr.Node().Params = p
	return nil
}

func TestExpansionCarriesStateFromLast(t *testing.T) {
	exp := NewExpansion().Register("Window", sizeCarryOver)

	first := New("Root", nil, New("Window", sizeParams{Title: "a"}).WithKey("w"))
	if err := exp.Normalize(context.Background(), first, nil); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got, want := first.Children[0].Params, (sizeParams{"a", 100, 50}); got != want {
		t.Errorf("first params = %+v, want %+v", got, want)
	}

	first.Children[0].Params = sizeParams{"a", 300, 200}
	second := New("Root", nil, New("Window", sizeParams{Title: "b", Height: 10}).WithKey("w"))
	if err := exp.Normalize(context.Background(), second, first); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got, want := second.Children[0].Params, (sizeParams{"b", 300, 10}); got != want {
		t.Errorf("second params = %+v, want %+v", got, want)
	}
}

func TestExpansionMatchesLastByPath(t *testing.T) {
	var seen []string
	exp := NewExpansion().Register("Window", func(curr, last *Frame) error {
		if last == nil {
			seen = append(seen, curr.Path().String()+" <none>")
			return nil
		}
		seen = append(seen, curr.Path().String()+" <- "+last.Path().String())
		return nil
	})

	last := New("Root", nil, New("Window", nil).WithKey("a"), New("Window", nil).WithKey("b"))
	curr := New("Root", nil, New("Window", nil).WithKey("b"), New("Window", nil).WithKey("c"))
	if err := exp.Normalize(context.Background(), curr, last); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	want := []string{"/Window@b <- /Window@b", "/Window@c <none>"}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestExpansionMayExpandChildren(t *testing.T) {
	exp := NewExpansion().
		Register("Panel", func(curr, _ *Frame) error {
			curr.Node().Add(New("Header", nil))
			return nil
		}).
		Register("Header", func(curr, _ *Frame) error {
			curr.Node().Params = "expanded"
			return nil
		})

	tree := New("Root", nil, New("Panel", nil))
	if err := exp.Normalize(context.Background(), tree, nil); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got := tree.String(); got != "Root[Panel[Header]]" {
		t.Errorf("tree = %s", got)
	}
	if got := tree.Children[0].Children[0].Params; got != "expanded" {
		t.Errorf("expanded child params = %v", got)
	}
}

func TestExpansionRejectsIdentityChange(t *testing.T) {
	tests := []struct {
		name string
		fn   Expander
	}{
		{"kind", func(curr, _ *Frame) error { curr.Node().Kind = "Other"; return nil }},
		{"key", func(curr, _ *Frame) error { curr.Node().Key = "renamed"; return nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := NewExpansion().Register("Window", tt.fn)
			tree := New("Root", nil, New("Window", nil).WithKey("w"))
			err := exp.Normalize(context.Background(), tree, nil)
			if !HasCode(err, ErrCodeNormalizationViolation) {
				t.Fatalf("Normalize() error = %v, want %s", err, ErrCodeNormalizationViolation)
			}
		})
	}
}
