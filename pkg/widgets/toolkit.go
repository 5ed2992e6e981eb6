package widgets

// Handle is an opaque toolkit widget.
type Handle interface {
	WidgetID() string
}

// Toolkit is the widget system the binding drives. Destroying a widget
// also destroys the widgets attached to it.
type Toolkit interface {
	NewWindow(p WindowParams) (Handle, error)
	NewBox(p BoxParams) (Handle, error)
	NewButton() (Handle, error)
	NewLabel(text string) (Handle, error)

	// Insert attaches child to container at index among its attached
	// children. index equal to the child count appends.
	Insert(container, child Handle, index int) error

	// Reorder re-sequences the attached children of container. order lists
	// every attached child exactly once.
	Reorder(container Handle, order []Handle) error

	SetTitle(window Handle, title string) error
	Resize(window Handle, width, height int) error
	ConfigureBox(box Handle, p BoxParams) error
	SetText(label Handle, text string) error

	// Show reveals a window and everything attached to it.
	Show(window Handle) error
	Destroy(h Handle) error
}
