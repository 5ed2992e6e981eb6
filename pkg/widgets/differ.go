package widgets

import (
	"fmt"

	"github.com/openfroyo/vtree/pkg/registry"
	"github.com/openfroyo/vtree/pkg/vtree"
)

// Entry is a registered widget.
type Entry struct {
	Handle    Handle
	Kind      vtree.Kind
	Container bool
}

// State is the private session state of the widget binding.
type State struct {
	Toolkit Toolkit
	Widgets *registry.Registry[Entry]
}

// NewState creates binding state over tk with an empty registry.
func NewState(tk Toolkit) *State {
	return &State{
		Toolkit: tk,
		Widgets: registry.New[Entry](),
	}
}

// Differ materializes diff events as toolkit widgets.
type Differ struct{}

var _ vtree.Differ[*State] = Differ{}

// DiffAdded constructs the widget for curr. Windows are registered as
// top-level widgets and shown once their subtree is built; every other
// widget is inserted into its parent's widget after the siblings that
// precede it in the snapshot.
func (Differ) DiffAdded(ctx *vtree.Context[*State], curr *vtree.Frame) error {
	st := ctx.State
	tk := st.Toolkit

	var (
		h         Handle
		container bool
		err       error
	)
	switch curr.Kind() {
	case KindRoot, KindText:
		return nil
	case KindWindow:
		p, err := paramsOf[WindowParams](curr)
		if err != nil {
			return err
		}
		if h, err = tk.NewWindow(p); err != nil {
			return toolkitError("new window", curr.Path(), err)
		}
		if err := st.Widgets.Insert(curr.Path(), Entry{Handle: h, Kind: KindWindow, Container: true}); err != nil {
			return err
		}
		ctx.Logger.Debug().Str("path", curr.Path().String()).Str("widget", h.WidgetID()).Msg("Window created")
		return curr.OnExit(func(f *vtree.Frame) error {
			if err := tk.Show(h); err != nil {
				return toolkitError("show", f.Path(), err)
			}
			return nil
		})
	case KindBox:
		p, perr := paramsOf[BoxParams](curr)
		if perr != nil {
			return perr
		}
		h, err = tk.NewBox(p)
		container = true
	case KindButton:
		h, err = tk.NewButton()
		container = true
	case KindLabel:
		p, perr := paramsOf[LabelParams](curr)
		if perr != nil {
			return perr
		}
		h, err = tk.NewLabel(p.Text)
	default:
		return unsupported(curr)
	}
	if err != nil {
		return toolkitError("new "+string(curr.Kind()), curr.Path(), err)
	}

	parent, parentPath, err := st.Widgets.Parent(curr.Path())
	if err != nil {
		return err
	}
	index, err := widgetIndex(st, curr)
	if err != nil {
		return err
	}
	if err := tk.Insert(parent.Handle, h, index); err != nil {
		return toolkitError("attach to "+parentPath.String(), curr.Path(), err)
	}
	if err := st.Widgets.Insert(curr.Path(), Entry{Handle: h, Kind: curr.Kind(), Container: container}); err != nil {
		return err
	}
	ctx.Logger.Debug().Str("path", curr.Path().String()).Str("widget", h.WidgetID()).Msg("Widget attached")
	return nil
}

// DiffRemoved destroys the widget of the top removed node. Descendants were
// destroyed with it and only lose their registry entry, except windows,
// which are never attached and must be destroyed one by one.
func (Differ) DiffRemoved(ctx *vtree.Context[*State], last *vtree.Frame, cascade bool) error {
	if !producesWidget(last.Kind()) {
		return nil
	}
	st := ctx.State
	entry, err := st.Widgets.Get(last.Path())
	if err != nil {
		return err
	}
	st.Widgets.Remove(last.Path())
	if cascade && entry.Kind != KindWindow {
		return nil
	}
	if err := st.Toolkit.Destroy(entry.Handle); err != nil {
		return toolkitError("destroy", last.Path(), err)
	}
	ctx.Logger.Debug().Str("path", last.Path().String()).Str("widget", entry.Handle.WidgetID()).Msg("Widget destroyed")
	return nil
}

// DiffParamsChanged pushes new params to the existing widget.
func (Differ) DiffParamsChanged(ctx *vtree.Context[*State], curr, last *vtree.Frame) error {
	switch curr.Kind() {
	case KindRoot, KindButton, KindText:
		return nil
	case KindWindow, KindBox, KindLabel:
	default:
		return unsupported(curr)
	}

	st := ctx.State
	entry, err := st.Widgets.Get(curr.Path())
	if err != nil {
		return err
	}
	tk := st.Toolkit

	switch curr.Kind() {
	case KindWindow:
		p, err := paramsOf[WindowParams](curr)
		if err != nil {
			return err
		}
		prev, err := paramsOf[WindowParams](last)
		if err != nil {
			return err
		}
		if p.Title != prev.Title {
			if err := tk.SetTitle(entry.Handle, p.Title); err != nil {
				return toolkitError("set title", curr.Path(), err)
			}
		}
		if p.Width != prev.Width || p.Height != prev.Height {
			if err := tk.Resize(entry.Handle, p.Width, p.Height); err != nil {
				return toolkitError("resize", curr.Path(), err)
			}
		}
	case KindBox:
		p, err := paramsOf[BoxParams](curr)
		if err != nil {
			return err
		}
		if err := tk.ConfigureBox(entry.Handle, p); err != nil {
			return toolkitError("configure box", curr.Path(), err)
		}
	case KindLabel:
		p, err := paramsOf[LabelParams](curr)
		if err != nil {
			return err
		}
		if err := tk.SetText(entry.Handle, p.Text); err != nil {
			return toolkitError("set text", curr.Path(), err)
		}
	}
	return nil
}

// DiffReordered re-sequences the children of a container widget. Windows
// under the root and text runs under a label have no attachment order.
func (Differ) DiffReordered(ctx *vtree.Context[*State], parent *vtree.Frame, _ []vtree.Move) error {
	st := ctx.State
	entry, ok := st.Widgets.Lookup(parent.Path())
	if !ok || !entry.Container {
		return nil
	}
	children, err := parent.Children()
	if err != nil {
		return err
	}
	order := make([]Handle, 0, len(children))
	for _, c := range children {
		child, err := st.Widgets.Get(c.Path())
		if err != nil {
			return err
		}
		order = append(order, child.Handle)
	}
	if err := st.Toolkit.Reorder(entry.Handle, order); err != nil {
		return toolkitError("reorder", parent.Path(), err)
	}
	return nil
}

// widgetIndex counts the siblings before curr that already have a widget.
// Siblings are visited in snapshot order, so every earlier added sibling is
// registered and matched siblings keep their relative order until a
// reorder event re-sequences them.
func widgetIndex(st *State, curr *vtree.Frame) (int, error) {
	parent := curr.Parent()
	if parent == nil {
		return 0, nil
	}
	siblings, err := parent.Children()
	if err != nil {
		return 0, err
	}
	index := 0
	for _, s := range siblings {
		if s.Path() == curr.Path() {
			break
		}
		if _, ok := st.Widgets.Lookup(s.Path()); ok {
			index++
		}
	}
	return index, nil
}

func paramsOf[T any](f *vtree.Frame) (T, error) {
	p, ok := f.Params().(T)
	if !ok {
		var zero T
		return zero, vtree.NewInputError(fmt.Sprintf("%s expects params %T, got %T", f.Kind(), zero, f.Params()), nil).
			WithCode(vtree.ErrCodeSchemaViolation).
			WithPath(f.Path())
	}
	return p, nil
}

func unsupported(f *vtree.Frame) error {
	return vtree.NewFatalError(fmt.Sprintf("kind %s has no widget binding", f.Kind()), nil).
		WithCode(vtree.ErrCodeUnsupportedKind).
		WithPath(f.Path())
}

func toolkitError(op string, p vtree.Path, err error) error {
	return vtree.NewFatalError("toolkit "+op+" failed", err).
		WithCode(vtree.ErrCodeToolkitFailed).
		WithOperation(op).
		WithPath(p)
}
