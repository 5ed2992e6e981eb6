package vtree

// Op names a diff classification.
type Op string

const (
	OpAdded         Op = "added"
	OpRemoved       Op = "removed"
	OpParamsChanged Op = "params_changed"
	OpReordered     Op = "reordered"
)

// Event is one recorded Differ callback.
type Event struct {
	Op      Op     `json:"op"`
	Kind    Kind   `json:"kind"`
	Path    Path   `json:"path"`
	Cascade bool   `json:"cascade,omitempty"`
	Moves   []Move `json:"moves,omitempty"`
}

// Summary counts the events of one cycle.
type Summary struct {
	Added         int `json:"added"`
	Removed       int `json:"removed"`
	Cascaded      int `json:"cascaded"`
	ParamsChanged int `json:"params_changed"`
	Reordered     int `json:"reordered"`
}

// Total returns the number of events, cascade entries included.
func (s Summary) Total() int {
	return s.Added + s.Removed + s.Cascaded + s.ParamsChanged + s.Reordered
}

// Changed reports whether the cycle produced any event.
func (s Summary) Changed() bool {
	return s.Total() > 0
}

// Recorder is Differ middleware that records every event before
// delegating to the wrapped Differ. An event is recorded even when the
// wrapped callback fails.
type Recorder[S any] struct {
	next    Differ[S]
	events  []Event
	summary Summary
}

// NewRecorder wraps next.
func NewRecorder[S any](next Differ[S]) *Recorder[S] {
	return &Recorder[S]{next: next}
}

// Events returns the recorded events in delivery order.
func (r *Recorder[S]) Events() []Event {
	return r.events
}

// Summary returns per-op counts.
func (r *Recorder[S]) Summary() Summary {
	return r.summary
}

// Reset clears the recording.
func (r *Recorder[S]) Reset() {
	r.events = nil
	r.summary = Summary{}
}

func (r *Recorder[S]) DiffAdded(ctx *Context[S], curr *Frame) error {
	r.events = append(r.events, Event{Op: OpAdded, Kind: curr.Kind(), Path: curr.Path()})
	r.summary.Added++
	return r.next.DiffAdded(ctx, curr)
}

func (r *Recorder[S]) DiffRemoved(ctx *Context[S], last *Frame, cascade bool) error {
	r.events = append(r.events, Event{Op: OpRemoved, Kind: last.Kind(), Path: last.Path(), Cascade: cascade})
	if cascade {
		r.summary.Cascaded++
	} else {
		r.summary.Removed++
	}
	return r.next.DiffRemoved(ctx, last, cascade)
}

func (r *Recorder[S]) DiffParamsChanged(ctx *Context[S], curr, last *Frame) error {
	r.events = append(r.events, Event{Op: OpParamsChanged, Kind: curr.Kind(), Path: curr.Path()})
	r.summary.ParamsChanged++
	return r.next.DiffParamsChanged(ctx, curr, last)
}

func (r *Recorder[S]) DiffReordered(ctx *Context[S], parent *Frame, moves []Move) error {
	r.events = append(r.events, Event{Op: OpReordered, Kind: parent.Kind(), Path: parent.Path(), Moves: moves})
	r.summary.Reordered++
	return r.next.DiffReordered(ctx, parent, moves)
}
