package treefile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/openfroyo/vtree/pkg/vtree"
	"github.com/openfroyo/vtree/pkg/widgets"
)

const yamlTree = `
kind: Root
children:
  - kind: Window
    key: main
    params:
      title: Hello
      width: 320
    children:
      - kind: Box
        params: {vertical: true, spacing: 2}
        children:
          - kind: Label
            children:
              - kind: Text
                params: {value: "count: "}
              - kind: Text
                params: {value: "3"}
          - kind: Button
`

const jsonTree = `{
  "kind": "Root",
  "children": [{
    "kind": "Window", "key": "main",
    "params": {"title": "Hello", "width": 320},
    "children": [{
      "kind": "Box", "params": {"vertical": true, "spacing": 2},
      "children": [
        {"kind": "Label", "children": [
          {"kind": "Text", "params": {"value": "count: "}},
          {"kind": "Text", "params": {"value": "3"}}
        ]},
        {"kind": "Button"}
      ]
    }]
  }]
}`

const cueTree = `
_texts: ["count: ", "3"]

tree: {
	kind: "Root"
	children: [{
		kind: "Window"
		key:  "main"
		params: {title: "Hello", width: 320}
		children: [{
			kind: "Box"
			params: {vertical: true, spacing: 2}
			children: [
				{kind: "Label", children: [for t in _texts {kind: "Text", params: value: t}]},
				{kind: "Button"},
			]
		}]
	}]
}
`

func expectedTree() *vtree.Node {
	return widgets.Root(
		widgets.Window("main", widgets.WindowParams{Title: "Hello", Width: 320},
			widgets.Box(widgets.BoxParams{Vertical: true, Spacing: 2},
				widgets.Label("count: ", "3"),
				widgets.Button(nil),
			),
		),
	)
}

func TestDecodeFormats(t *testing.T) {
	tests := []struct {
		format Format
		data   string
	}{
		{FormatYAML, yamlTree},
		{FormatJSON, jsonTree},
		{FormatCUE, cueTree},
	}
	loader := NewLoader(widgets.Schema)
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			got, err := loader.Decode(tt.format, "tree."+string(tt.format), []byte(tt.data))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if diff := cmp.Diff(expectedTree(), got); diff != "" {
				t.Errorf("tree mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name     string
		format   Format
		data     string
		wantCode string
		wantMsg  string
	}{
		{
			name:     "unknown document field",
			format:   FormatYAML,
			data:     "kind: Root\nchildern: []\n",
			wantCode: vtree.ErrCodeDecodeFailed,
			wantMsg:  "childern",
		},
		{
			name:     "missing kind",
			format:   FormatJSON,
			data:     `{"children": []}`,
			wantCode: vtree.ErrCodeDecodeFailed,
			wantMsg:  "Kind",
		},
		{
			name:     "unknown param",
			format:   FormatYAML,
			data:     "kind: Root\nchildren:\n  - kind: Window\n    params: {colour: red}\n    children: [{kind: Button}]\n",
			wantCode: vtree.ErrCodeSchemaViolation,
			wantMsg:  "colour",
		},
		{
			name:     "param out of range",
			format:   FormatJSON,
			data:     `{"kind":"Root","children":[{"kind":"Window","params":{"width":-4},"children":[{"kind":"Button"}]}]}`,
			wantCode: vtree.ErrCodeSchemaViolation,
			wantMsg:  "Width",
		},
		{
			name:     "params on paramless kind",
			format:   FormatYAML,
			data:     "kind: Root\nparams: {x: 1}\n",
			wantCode: vtree.ErrCodeSchemaViolation,
			wantMsg:  "takes no params",
		},
		{
			name:     "schema violation",
			format:   FormatYAML,
			data:     "kind: Root\nchildren:\n  - kind: Button\n",
			wantCode: vtree.ErrCodeSchemaViolation,
			wantMsg:  "not a legal child",
		},
		{
			name:     "cue constraint",
			format:   FormatCUE,
			data:     `kind: "Ro/ot"`,
			wantCode: vtree.ErrCodeDecodeFailed,
			wantMsg:  "kind",
		},
		{
			name:     "empty yaml",
			format:   FormatYAML,
			data:     "",
			wantCode: vtree.ErrCodeDecodeFailed,
			wantMsg:  "empty document",
		},
	}

	loader := NewLoader(widgets.Schema)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.Decode(tt.format, "input", []byte(tt.data))
			if err == nil {
				t.Fatal("Decode() should fail")
			}
			if !vtree.IsInput(err) || !vtree.HasCode(err, tt.wantCode) {
				t.Errorf("Decode() error = %v, want input %s", err, tt.wantCode)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Decode() error = %v, want containing %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ui.yml")
	if err := os.WriteFile(path, []byte(yamlTree), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(widgets.Schema)
	got, err := loader.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if diff := cmp.Diff(expectedTree(), got); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}

	if _, err := loader.LoadFile(filepath.Join(dir, "missing.yaml")); !vtree.IsInput(err) {
		t.Errorf("LoadFile(missing) error = %v, want input error", err)
	}
	if _, err := loader.LoadFile(filepath.Join(dir, "ui.toml")); !vtree.HasCode(err, vtree.ErrCodeDecodeFailed) {
		t.Errorf("LoadFile(.toml) error = %v, want %s", err, vtree.ErrCodeDecodeFailed)
	}
}

func TestFromNodeRoundTrip(t *testing.T) {
	doc, err := FromNode(expectedTree())
	if err != nil {
		t.Fatalf("FromNode() error = %v", err)
	}
	got, err := NewLoader(widgets.Schema).Build(doc)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if diff := cmp.Diff(expectedTree(), got); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestFromMap(t *testing.T) {
	got, err := NewLoader(widgets.Schema).FromMap(map[string]any{
		"kind": "Root",
		"children": []any{
			map[string]any{"kind": "Window", "key": "w", "children": []any{
				map[string]any{"kind": "Button"},
			}},
		},
	})
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}
	want := widgets.Root(widgets.Window("w", widgets.WindowParams{}, widgets.Button(nil)))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}
