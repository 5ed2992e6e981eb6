package headless

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/openfroyo/vtree/pkg/widgets"
)

func newLabels(t *testing.T, tk *Toolkit, texts ...string) []widgets.Handle {
	t.Helper()
	hs := make([]widgets.Handle, len(texts))
	for i, text := range texts {
		h, err := tk.NewLabel(text)
		if err != nil {
			t.Fatalf("NewLabel(%q) error = %v", text, err)
		}
		hs[i] = h
	}
	return hs
}

func texts(w *Widget) []string {
	var out []string
	for _, c := range w.Children() {
		out = append(out, c.Text)
	}
	return out
}

func TestInsert(t *testing.T) {
	tk := New()
	box, err := tk.NewBox(widgets.BoxParams{})
	if err != nil {
		t.Fatalf("NewBox() error = %v", err)
	}
	ls := newLabels(t, tk, "a", "c", "b", "front")

	steps := []struct {
		child int
		index int
	}{
		{0, 0}, // a
		{1, 1}, // a c
		{2, 1}, // a b c
		{3, 0}, // front a b c
	}
	for _, s := range steps {
		if err := tk.Insert(box, ls[s.child], s.index); err != nil {
			t.Fatalf("Insert(%d) error = %v", s.index, err)
		}
	}

	w, _ := tk.Get(box)
	if diff := cmp.Diff([]string{"front", "a", "b", "c"}, texts(w)); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}
}

func TestInsertRejects(t *testing.T) {
	tk := New()
	box, _ := tk.NewBox(widgets.BoxParams{})
	win, _ := tk.NewWindow(widgets.WindowParams{Title: "w"})
	ls := newLabels(t, tk, "a", "b")
	if err := tk.Insert(box, ls[0], 0); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	tests := []struct {
		name  string
		child widgets.Handle
		index int
	}{
		{"index past end", ls[1], 2},
		{"negative index", ls[1], -1},
		{"already attached", ls[0], 0},
		{"window child", win, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tk.Insert(box, tt.child, tt.index); err == nil {
				t.Error("Insert() succeeded, want error")
			}
		})
	}
}
