package script

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/openfroyo/vtree/pkg/treefile"
	"github.com/openfroyo/vtree/pkg/vtree"
	"github.com/openfroyo/vtree/pkg/widgets"
)

const counterScript = `
def view(tick):
    labels = [node("Label", node("Text", value = "row %d" % i), key = "row%d" % i) for i in range(tick % 3)]
    return node("Root",
        node("Window",
            node("Box", labels, node("Button") if tick > 0 else None, vertical = True),
            key = "main", title = title))
`

func loadCounter(t *testing.T) *Script {
	t.Helper()
	s, err := Load("counter.star", []byte(counterScript), treefile.NewLoader(widgets.Schema),
		WithVars(map[string]any{"title": "Counter"}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s
}

func TestView(t *testing.T) {
	s := loadCounter(t)

	tests := []struct {
		tick int
		want *vtree.Node
	}{
		{
			tick: 0,
			want: widgets.Root(widgets.Window("main", widgets.WindowParams{Title: "Counter"},
				widgets.Box(widgets.BoxParams{Vertical: true}))),
		},
		{
			tick: 2,
			want: widgets.Root(widgets.Window("main", widgets.WindowParams{Title: "Counter"},
				widgets.Box(widgets.BoxParams{Vertical: true},
					widgets.Label("row 0").WithKey("row0"),
					widgets.Label("row 1").WithKey("row1"),
					widgets.Button(nil),
				))),
		},
	}
	for _, tt := range tests {
		got, err := s.View(context.Background(), tt.tick)
		if err != nil {
			t.Fatalf("View(%d) error = %v", tt.tick, err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("View(%d) mismatch (-want +got):\n%s", tt.tick, diff)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{"syntax", "def view(:", "starlark execution failed"},
		{"no view", "x = 1", "does not define view"},
		{"wrong arity", "def view(a, b):\n    return None", "exactly one parameter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("bad.star", []byte(tt.src), treefile.NewLoader(widgets.Schema))
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantMsg)
			}
		})
	}
}

func TestViewErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{"not a node", "def view(tick):\n    return 3", "must return a node"},
		{"bad child", "def view(tick):\n    return node('Root', 'oops')", "child must be a node"},
		{"schema", "def view(tick):\n    return node('Root', node('Button'))", "not a legal child"},
		{"runtime", "def view(tick):\n    return 1 // 0", "view evaluation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Load("bad.star", []byte(tt.src), treefile.NewLoader(widgets.Schema))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			_, err = s.View(context.Background(), 1)
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("View() error = %v, want containing %q", err, tt.wantMsg)
			}
			if !vtree.IsInput(err) {
				t.Errorf("View() error class, want input: %v", err)
			}
		})
	}
}

func TestViewTimeout(t *testing.T) {
	src := "def view(tick):\n    n = 0\n    for i in range(100000000):\n        n += i\n    return None\n"
	s, err := Load("slow.star", []byte(src), treefile.NewLoader(widgets.Schema), WithTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := s.View(context.Background(), 0); err == nil || !strings.Contains(err.Error(), "deadline") {
		t.Errorf("View() error = %v, want deadline cancellation", err)
	}
}
