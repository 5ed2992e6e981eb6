package widgets

import (
	"strings"

	"github.com/openfroyo/vtree/pkg/vtree"
)

// Default window geometry for windows first seen without a size.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// Expansion returns the normalization pass of the widget schema.
func Expansion() *vtree.Expansion {
	return vtree.NewExpansion().
		Register(KindWindow, expandWindow).
		Register(KindLabel, expandLabel)
}

// expandWindow keeps the geometry of a window across cycles when the
// author leaves it unset.
func expandWindow(curr, last *vtree.Frame) error {
	p, err := paramsOf[WindowParams](curr)
	if err != nil {
		return err
	}
	width, height := DefaultWidth, DefaultHeight
	if last != nil {
		if prev, ok := last.Params().(WindowParams); ok {
			width, height = prev.Width, prev.Height
		}
	}
	if p.Width == 0 {
		p.Width = width
	}
	if p.Height == 0 {
		p.Height = height
	}
	curr.Node().Params = p
	return nil
}

// expandLabel derives the label text from its Text children.
func expandLabel(curr, _ *vtree.Frame) error {
	n := curr.Node()
	if len(n.Children) == 0 {
		return nil
	}
	p, err := paramsOf[LabelParams](curr)
	if err != nil {
		return err
	}
	var b strings.Builder
	for _, c := range n.Children {
		if t, ok := c.Params.(TextParams); ok {
			b.WriteString(t.Value)
		}
	}
	p.Text = b.String()
	n.Params = p
	return nil
}
