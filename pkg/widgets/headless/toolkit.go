// Package headless is an in-memory widget toolkit. It keeps a widget
// forest with the same attach/destroy semantics as a real toolkit and can
// render it as text.
package headless

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/openfroyo/vtree/pkg/widgets"
)

// Widget is one live in-memory widget.
type Widget struct {
	ID       string
	Kind     string
	Title    string
	Text     string
	Width    int
	Height   int
	Vertical bool
	Spacing  int
	Visible  bool

	parent   *Widget
	children []*Widget
	seq      int
}

// WidgetID implements widgets.Handle.
func (w *Widget) WidgetID() string { return w.ID }

// Children returns the attached widgets in order.
func (w *Widget) Children() []*Widget {
	return append([]*Widget(nil), w.children...)
}

// Parent returns the container the widget is attached to, or nil.
func (w *Widget) Parent() *Widget { return w.parent }

// Toolkit is a concurrency-safe in-memory widgets.Toolkit.
type Toolkit struct {
	mu      sync.Mutex
	live    map[string]*Widget
	seq     int
	created int
}

var _ widgets.Toolkit = (*Toolkit)(nil)

// New creates an empty toolkit.
func New() *Toolkit {
	return &Toolkit{live: make(map[string]*Widget)}
}

func (t *Toolkit) create(kind string) *Widget {
	t.seq++
	t.created++
	w := &Widget{ID: uuid.NewString(), Kind: kind, seq: t.seq}
	t.live[w.ID] = w
	return w
}

func (t *Toolkit) lookup(h widgets.Handle) (*Widget, error) {
	if h == nil {
		return nil, fmt.Errorf("nil widget handle")
	}
	w, ok := t.live[h.WidgetID()]
	if !ok {
		return nil, fmt.Errorf("widget %s is not alive", h.WidgetID())
	}
	return w, nil
}

// NewWindow implements widgets.Toolkit.
func (t *Toolkit) NewWindow(p widgets.WindowParams) (widgets.Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := t.create("window")
	w.Title, w.Width, w.Height = p.Title, p.Width, p.Height
	return w, nil
}

// NewBox implements widgets.Toolkit.
func (t *Toolkit) NewBox(p widgets.BoxParams) (widgets.Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := t.create("box")
	w.Vertical, w.Spacing = p.Vertical, p.Spacing
	return w, nil
}

// NewButton implements widgets.Toolkit.
func (t *Toolkit) NewButton() (widgets.Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.create("button"), nil
}

// NewLabel implements widgets.Toolkit.
func (t *Toolkit) NewLabel(text string) (widgets.Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := t.create("label")
	w.Text = text
	return w, nil
}

// Insert implements widgets.Toolkit.
func (t *Toolkit) Insert(container, child widgets.Handle, index int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, err := t.lookup(container)
	if err != nil {
		return err
	}
	w, err := t.lookup(child)
	if err != nil {
		return err
	}
	if w.parent != nil {
		return fmt.Errorf("widget %s is already attached", w.ID)
	}
	if w.Kind == "window" {
		return fmt.Errorf("windows cannot be attached")
	}
	if index < 0 || index > len(c.children) {
		return fmt.Errorf("insert into %s at %d, %d attached", c.ID, index, len(c.children))
	}
	w.parent = c
	c.children = append(c.children, nil)
	copy(c.children[index+1:], c.children[index:])
	c.children[index] = w
	if c.Visible {
		setVisible(w, true)
	}
	return nil
}

// Reorder implements widgets.Toolkit.
func (t *Toolkit) Reorder(container widgets.Handle, order []widgets.Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, err := t.lookup(container)
	if err != nil {
		return err
	}
	if len(order) != len(c.children) {
		return fmt.Errorf("reorder of %s lists %d widgets, %d attached", c.ID, len(order), len(c.children))
	}
	next := make([]*Widget, len(order))
	seen := make(map[string]bool, len(order))
	for i, h := range order {
		w, err := t.lookup(h)
		if err != nil {
			return err
		}
		if w.parent != c || seen[w.ID] {
			return fmt.Errorf("reorder of %s: widget %s is not an attached child", c.ID, w.ID)
		}
		seen[w.ID] = true
		next[i] = w
	}
	c.children = next
	return nil
}

// SetTitle implements widgets.Toolkit.
func (t *Toolkit) SetTitle(window widgets.Handle, title string) error {
	return t.update(window, func(w *Widget) { w.Title = title })
}

// Resize implements widgets.Toolkit.
func (t *Toolkit) Resize(window widgets.Handle, width, height int) error {
	return t.update(window, func(w *Widget) { w.Width, w.Height = width, height })
}

// ConfigureBox implements widgets.Toolkit.
func (t *Toolkit) ConfigureBox(box widgets.Handle, p widgets.BoxParams) error {
	return t.update(box, func(w *Widget) { w.Vertical, w.Spacing = p.Vertical, p.Spacing })
}

// SetText implements widgets.Toolkit.
func (t *Toolkit) SetText(label widgets.Handle, text string) error {
	return t.update(label, func(w *Widget) { w.Text = text })
}

// Show implements widgets.Toolkit.
func (t *Toolkit) Show(window widgets.Handle) error {
	return t.update(window, func(w *Widget) { setVisible(w, true) })
}

// Destroy implements widgets.Toolkit. Attached widgets are destroyed too.
func (t *Toolkit) Destroy(h widgets.Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, err := t.lookup(h)
	if err != nil {
		return err
	}
	if p := w.parent; p != nil {
		for i, c := range p.children {
			if c == w {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
		w.parent = nil
	}
	t.destroy(w)
	return nil
}

func (t *Toolkit) destroy(w *Widget) {
	for _, c := range w.children {
		t.destroy(c)
	}
	w.children = nil
	w.Visible = false
	delete(t.live, w.ID)
}

func (t *Toolkit) update(h widgets.Handle, fn func(w *Widget)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, err := t.lookup(h)
	if err != nil {
		return err
	}
	fn(w)
	return nil
}

func setVisible(w *Widget, v bool) {
	w.Visible = v
	for _, c := range w.children {
		setVisible(c, v)
	}
}

// Live returns the number of alive widgets.
func (t *Toolkit) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}

// Created returns the number of widgets ever constructed.
func (t *Toolkit) Created() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.created
}

// Windows returns the alive top-level windows in creation order.
func (t *Toolkit) Windows() []*Widget {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*Widget
	for _, w := range t.live {
		if w.Kind == "window" {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Get returns the alive widget behind h.
func (t *Toolkit) Get(h widgets.Handle) (*Widget, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, err := t.lookup(h)
	return w, err == nil
}

// Render writes an indented outline of every window.
func (t *Toolkit) Render(out io.Writer) error {
	for _, w := range t.Windows() {
		t.mu.Lock()
		err := render(out, w, 0)
		t.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

func render(out io.Writer, w *Widget, depth int) error {
	var attrs []string
	switch w.Kind {
	case "window":
		attrs = append(attrs, fmt.Sprintf("title=%q", w.Title), fmt.Sprintf("size=%dx%d", w.Width, w.Height))
	case "box":
		orientation := "horizontal"
		if w.Vertical {
			orientation = "vertical"
		}
		attrs = append(attrs, orientation, fmt.Sprintf("spacing=%d", w.Spacing))
	case "label":
		attrs = append(attrs, fmt.Sprintf("text=%q", w.Text))
	}
	if !w.Visible {
		attrs = append(attrs, "hidden")
	}
	line := strings.Repeat("  ", depth) + w.Kind
	if len(attrs) > 0 {
		line += " " + strings.Join(attrs, " ")
	}
	if _, err := fmt.Fprintln(out, line); err != nil {
		return err
	}
	for _, c := range w.children {
		if err := render(out, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}
