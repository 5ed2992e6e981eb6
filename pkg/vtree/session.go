package vtree

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// CycleKind distinguishes the initial create cycle from later updates.
type CycleKind string

const (
	CycleCreate CycleKind = "create"
	CycleUpdate CycleKind = "update"
)

// Report describes one completed (or aborted) cycle.
type Report struct {
	CycleID   string        `json:"cycle_id"`
	Session   string        `json:"session"`
	Kind      CycleKind     `json:"kind"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Nodes     int           `json:"nodes"`
	Events    []Event       `json:"events"`
	Summary   Summary       `json:"summary"`
}

// Observer is notified after every cycle. err is nil on success.
type Observer interface {
	ObserveCycle(r *Report, err error)
}

// Option configures a Session.
type Option func(*options)

type options struct {
	name       string
	normalizer Normalizer
	logger     zerolog.Logger
	observers  []Observer
	tracer     trace.Tracer
}

// WithName names the session in logs, reports and spans.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithNormalizer sets the normalization pass run before every diff.
func WithNormalizer(n Normalizer) Option {
	return func(o *options) { o.normalizer = n }
}

// WithLogger sets the session logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithObserver adds a cycle observer.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// WithTracer records one span per cycle.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// Session ties normalization, diffing and a Differ together across update
// cycles. It retains exactly one snapshot, the last one applied.
//
// A Session is not safe for concurrent use; callers serialize Update calls.
type Session[S any] struct {
	opts   options
	state  S
	differ *Recorder[S]
	last   *Node
	broken error
	cycles int
}

// NewSession creates a session and applies root as its first snapshot:
// every node of root is reported as added.
func NewSession[S any](ctx context.Context, state S, root *Node, differ Differ[S], opts ...Option) (*Session[S], *Report, error) {
	o := options{
		name:       "default",
		normalizer: NopNormalizer{},
		logger:     zerolog.Nop(),
		tracer:     noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With().Str("component", "session").Str("session", o.name).Logger()

	s := &Session[S]{
		opts:   o,
		state:  state,
		differ: NewRecorder(differ),
	}
	report, err := s.cycle(ctx, CycleCreate, root)
	if err != nil {
		return nil, report, err
	}
	return s, report, nil
}

// Update normalizes tree against the last snapshot, diffs it and makes it
// the new last snapshot. A nil tree removes everything.
//
// After any failed cycle the session is broken and every later call fails
// with SESSION_BROKEN; recovery means creating a new session.
func (s *Session[S]) Update(ctx context.Context, tree *Node) (*Report, error) {
	return s.cycle(ctx, CycleUpdate, tree)
}

// Last returns the retained normalized snapshot.
func (s *Session[S]) Last() *Node {
	return s.last
}

// State returns the consumer state.
func (s *Session[S]) State() S {
	return s.state
}

// Name returns the session name.
func (s *Session[S]) Name() string {
	return s.opts.name
}

// Cycles returns the number of successful cycles, create included.
func (s *Session[S]) Cycles() int {
	return s.cycles
}

// Err returns the error that broke the session, or nil.
func (s *Session[S]) Err() error {
	return s.broken
}

func (s *Session[S]) cycle(ctx context.Context, kind CycleKind, tree *Node) (*Report, error) {
	if s.broken != nil {
		return nil, NewFatalError("session is broken by an earlier failed cycle", s.broken).
			WithCode(ErrCodeSessionBroken).
			WithOperation(string(kind))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{
		CycleID:   uuid.NewString(),
		Session:   s.opts.name,
		Kind:      kind,
		StartedAt: time.Now(),
	}
	ctx, span := s.opts.tracer.Start(ctx, "session."+string(kind), trace.WithAttributes(
		attribute.String("session.name", s.opts.name),
		attribute.String("cycle.id", report.CycleID),
	))
	defer span.End()

	logger := s.opts.logger.With().
		Str("cycle_id", report.CycleID).
		Str("cycle", string(kind)).
		Logger()

	err := s.apply(ctx, logger, tree, report)
	report.Duration = time.Since(report.StartedAt)
	report.Events = append([]Event(nil), s.differ.Events()...)
	report.Summary = s.differ.Summary()

	span.SetAttributes(
		attribute.Int("cycle.nodes", report.Nodes),
		attribute.Int("cycle.events", report.Summary.Total()),
		attribute.Int("cycle.added", report.Summary.Added),
		attribute.Int("cycle.removed", report.Summary.Removed),
		attribute.Int("cycle.params_changed", report.Summary.ParamsChanged),
		attribute.Int("cycle.reordered", report.Summary.Reordered),
	)
	for _, obs := range s.opts.observers {
		obs.ObserveCycle(report, err)
	}

	if err != nil {
		s.broken = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).
			Int("events", report.Summary.Total()).
			Msg("Cycle aborted, session is broken")
		return report, err
	}

	span.SetStatus(codes.Ok, "")
	s.cycles++
	event := logger.Debug()
	if report.Summary.Changed() {
		event = logger.Info()
	}
	event.
		Int("added", report.Summary.Added).
		Int("removed", report.Summary.Removed).
		Int("cascaded", report.Summary.Cascaded).
		Int("params_changed", report.Summary.ParamsChanged).
		Int("reordered", report.Summary.Reordered).
		Dur("duration", report.Duration).
		Msg("Cycle applied")
	return report, nil
}

func (s *Session[S]) apply(ctx context.Context, logger zerolog.Logger, tree *Node, report *Report) error {
	s.differ.Reset()
	curr := tree.Clone()

	var last *Node
	if report.Kind == CycleUpdate {
		last = s.last
	}
	if err := s.opts.normalizer.Normalize(ctx, curr, last); err != nil {
		return err
	}
	report.Nodes = curr.Count()

	dctx := &Context[S]{
		State:   s.state,
		Logger:  logger,
		CycleID: report.CycleID,
	}
	err := Diff(dctx, curr, s.last, s.differ)
	s.state = dctx.State
	if err != nil {
		return err
	}
	s.last = curr
	return nil
}
