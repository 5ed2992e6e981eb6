// Package widgets binds the vtree engine to a GUI widget toolkit.
//
// The schema is a small widget vocabulary:
//
//	Root     many Window
//	Window   {title, width, height} one @Widget
//	Box      {vertical, spacing} many @Widget
//	Button   optional Label
//	Label    {text} many Text
//	Text     {value}
//
// Box, Button and Label form the Widget group. Root and Text produce no
// widget; a Label shows the concatenation of its Text children.
package widgets

import (
	"github.com/openfroyo/vtree/pkg/vtree"
)

// Node kinds.
const (
	KindRoot   vtree.Kind = "Root"
	KindWindow vtree.Kind = "Window"
	KindBox    vtree.Kind = "Box"
	KindButton vtree.Kind = "Button"
	KindLabel  vtree.Kind = "Label"
	KindText   vtree.Kind = "Text"
)

// GroupWidget is the capability set accepted by windows and boxes.
const GroupWidget = "Widget"

// WindowParams configures a top-level window. Zero sizes are filled in
// during normalization.
type WindowParams struct {
	Title  string `json:"title" yaml:"title" validate:"max=256"`
	Width  int    `json:"width,omitempty" yaml:"width,omitempty" validate:"gte=0,lte=16384"`
	Height int    `json:"height,omitempty" yaml:"height,omitempty" validate:"gte=0,lte=16384"`
}

// BoxParams configures a linear container.
type BoxParams struct {
	Vertical bool `json:"vertical,omitempty" yaml:"vertical,omitempty"`
	Spacing  int  `json:"spacing,omitempty" yaml:"spacing,omitempty" validate:"gte=0,lte=1024"`
}

// LabelParams holds the label text. It is derived from the Text children
// when the label has any.
type LabelParams struct {
	Text string `json:"text,omitempty" yaml:"text,omitempty"`
}

// TextParams is one run of label text.
type TextParams struct {
	Value string `json:"value" yaml:"value"`
}

// Schema declares the widget vocabulary.
var Schema = vtree.MustSchema("widgets", KindRoot,
	vtree.KindSpec{
		Kind:     KindRoot,
		Children: &vtree.ChildRule{Accepts: []string{string(KindWindow)}, Multiplicity: vtree.Many},
	},
	vtree.KindSpec{
		Kind:     KindWindow,
		Params:   WindowParams{},
		Children: &vtree.ChildRule{Accepts: []string{"@" + GroupWidget}, Multiplicity: vtree.One},
	},
	vtree.KindSpec{
		Kind:     KindBox,
		Params:   BoxParams{},
		Groups:   []string{GroupWidget},
		Children: &vtree.ChildRule{Accepts: []string{"@" + GroupWidget}, Multiplicity: vtree.Many},
	},
	vtree.KindSpec{
		Kind:     KindButton,
		Groups:   []string{GroupWidget},
		Children: &vtree.ChildRule{Accepts: []string{string(KindLabel)}, Multiplicity: vtree.Optional},
	},
	vtree.KindSpec{
		Kind:     KindLabel,
		Params:   LabelParams{},
		Groups:   []string{GroupWidget},
		Children: &vtree.ChildRule{Accepts: []string{string(KindText)}, Multiplicity: vtree.Many},
	},
	vtree.KindSpec{
		Kind:   KindText,
		Params: TextParams{},
	},
)

// Root builds a root node.
func Root(windows ...*vtree.Node) *vtree.Node {
	return vtree.New(KindRoot, nil, windows...)
}

// Window builds a keyed window node.
func Window(key string, p WindowParams, child *vtree.Node) *vtree.Node {
	n := vtree.New(KindWindow, p).WithKey(key)
	if child != nil {
		n.Add(child)
	}
	return n
}

// Box builds a box node.
func Box(p BoxParams, children ...*vtree.Node) *vtree.Node {
	return vtree.New(KindBox, p, children...)
}

// Button builds a button node, optionally holding a label.
func Button(label *vtree.Node) *vtree.Node {
	n := vtree.New(KindButton, nil)
	if label != nil {
		n.Add(label)
	}
	return n
}

// Label builds a label from text runs.
func Label(runs ...string) *vtree.Node {
	n := vtree.New(KindLabel, LabelParams{})
	for _, r := range runs {
		n.Add(vtree.New(KindText, TextParams{Value: r}))
	}
	return n
}

// producesWidget reports whether kind is backed by a toolkit widget.
func producesWidget(kind vtree.Kind) bool {
	switch kind {
	case KindWindow, KindBox, KindButton, KindLabel:
		return true
	}
	return false
}
