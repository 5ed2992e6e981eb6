// Package host keeps a widget session alive across snapshot sources.
//
// A Host owns one headless toolkit and the widget session built on it.
// Snapshots are applied with Apply; the first one creates the session and
// later ones update it. When a cycle fails the session is broken, so the
// host discards it together with its toolkit and the next snapshot builds
// a fresh one.
package host

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/openfroyo/vtree/pkg/stores"
	"github.com/openfroyo/vtree/pkg/vtree"
	"github.com/openfroyo/vtree/pkg/widgets"
	"github.com/openfroyo/vtree/pkg/widgets/headless"
)

// Host serializes snapshot application for one session name.
type Host struct {
	mu      sync.Mutex
	logger  zerolog.Logger
	opts    []vtree.Option
	tk      *headless.Toolkit
	state   *widgets.State
	session *widgets.Session
	builds  int
}

// New creates a host. opts are passed to every session it builds.
func New(logger zerolog.Logger, opts ...vtree.Option) *Host {
	return &Host{
		logger: logger.With().Str("component", "host").Logger(),
		opts:   opts,
	}
}

// Apply makes tree the live snapshot.
func (h *Host) Apply(ctx context.Context, tree *vtree.Node) (*vtree.Report, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.session == nil {
		h.tk = headless.New()
		h.state = widgets.NewState(h.tk)
		s, report, err := widgets.NewSessionWithState(ctx, h.state, tree, h.opts...)
		if err != nil {
			h.reset()
			return report, err
		}
		h.session = s
		h.builds++
		return report, nil
	}

	report, err := h.session.Update(ctx, tree)
	if err != nil && h.session.Err() != nil {
		h.logger.Warn().Err(err).Msg("Session broken, next snapshot rebuilds it")
		h.reset()
	}
	return report, err
}

func (h *Host) reset() {
	h.session = nil
	h.state = nil
	h.tk = nil
}

// Builds returns how many sessions were created successfully.
func (h *Host) Builds() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.builds
}

// Live reports whether a session is currently held.
func (h *Host) Live() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session != nil
}

// Last returns the last applied normalized snapshot, or nil.
func (h *Host) Last() *vtree.Node {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return nil
	}
	return h.session.Last()
}

// Render writes the live widget forest.
func (h *Host) Render(w io.Writer) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tk == nil {
		return nil
	}
	return h.tk.Render(w)
}

// Registry returns the registry entries in path order.
func (h *Host) Registry() []stores.RegistryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries()
}

// Snapshot is a stores.RegistrySnapshot. It is called by observers from
// inside Apply and must not take the lock.
func (h *Host) Snapshot() []stores.RegistryEntry {
	return h.entries()
}

func (h *Host) entries() []stores.RegistryEntry {
	if h.state == nil {
		return nil
	}
	reg := h.state.Widgets
	entries := make([]stores.RegistryEntry, 0, reg.Len())
	for _, p := range reg.Paths() {
		e, _ := reg.Lookup(p)
		entries = append(entries, stores.RegistryEntry{
			Path:     p,
			Kind:     e.Kind,
			Resource: e.Handle.WidgetID(),
		})
	}
	return entries
}
