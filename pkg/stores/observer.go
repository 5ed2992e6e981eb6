package stores

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/openfroyo/vtree/pkg/vtree"
)

// RegistrySnapshot returns the live registry entries of a session. It is
// called after every successful cycle.
type RegistrySnapshot func() []RegistryEntry

// Observer persists session cycles. It implements vtree.Observer.
type Observer struct {
	store    Store
	logger   zerolog.Logger
	snapshot RegistrySnapshot
	timeout  time.Duration
}

// NewObserver creates an observer writing to store. snapshot may be nil,
// in which case the registry table is left alone.
func NewObserver(store Store, logger zerolog.Logger, snapshot RegistrySnapshot) *Observer {
	return &Observer{
		store:    store,
		logger:   logger.With().Str("component", "store").Logger(),
		snapshot: snapshot,
		timeout:  5 * time.Second,
	}
}

// ObserveCycle records the cycle and, on success, the registry. Store
// failures are logged and never fail the cycle.
func (o *Observer) ObserveCycle(r *vtree.Report, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	logger := o.logger.With().Str("cycle_id", r.CycleID).Logger()
	if rerr := o.store.RecordCycle(ctx, r, err); rerr != nil {
		logger.Error().Err(rerr).Msg("Failed to record cycle")
		return
	}
	if err != nil || o.snapshot == nil {
		return
	}
	entries := o.snapshot()
	if rerr := o.store.ReplaceRegistry(ctx, r.Session, r.CycleID, entries); rerr != nil {
		logger.Error().Err(rerr).Msg("Failed to store registry")
		return
	}
	logger.Debug().Int("entries", len(entries)).Msg("Recorded cycle")
}

func sortEntries(entries []*RegistryEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path.Less(entries[j].Path)
	})
}
