package stores

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/openfroyo/vtree/pkg/vtree"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// CycleStatus represents the outcome of a recorded cycle
type CycleStatus string

const (
	CycleStatusSucceeded CycleStatus = "succeeded"
	CycleStatusFailed    CycleStatus = "failed"
)

// Cycle represents one persisted session cycle
type Cycle struct {
	ID        string          `json:"id"`
	Session   string          `json:"session"`
	Kind      vtree.CycleKind `json:"kind"`
	Status    CycleStatus     `json:"status"`
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`
	Nodes     int             `json:"nodes"`
	Summary   vtree.Summary   `json:"summary"`
	Error     *string         `json:"error,omitempty"`
	ErrorCode *string         `json:"error_code,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// EventRecord represents one persisted diff event
type EventRecord struct {
	ID      int64        `json:"id"`
	CycleID string       `json:"cycle_id"`
	Seq     int          `json:"seq"`
	Op      vtree.Op     `json:"op"`
	Kind    vtree.Kind   `json:"kind"`
	Path    vtree.Path   `json:"path"`
	Cascade bool         `json:"cascade,omitempty"`
	Moves   []vtree.Move `json:"moves,omitempty"`
}

// Event converts the record back to the in-memory event form.
func (e *EventRecord) Event() vtree.Event {
	return vtree.Event{Op: e.Op, Kind: e.Kind, Path: e.Path, Cascade: e.Cascade, Moves: e.Moves}
}

// RegistryEntry represents one live resource of a session registry.
// Resource is the consumer's identifier for the resource (for widgets,
// the widget ID).
type RegistryEntry struct {
	Session   string     `json:"session"`
	Path      vtree.Path `json:"path"`
	Kind      vtree.Kind `json:"kind"`
	Resource  string     `json:"resource"`
	CycleID   string     `json:"cycle_id"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Store defines the interface for the persistence layer
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(tx *sql.Tx) error
	RollbackTx(tx *sql.Tx) error

	// Cycle operations
	RecordCycle(ctx context.Context, report *vtree.Report, cycleErr error) error
	GetCycle(ctx context.Context, id string) (*Cycle, error)
	ListCycles(ctx context.Context, session string, limit, offset int) ([]*Cycle, error)
	DeleteCycle(ctx context.Context, id string) error
	PruneCycles(ctx context.Context, session string, keep int) (int64, error)

	// Event operations
	ListEvents(ctx context.Context, cycleID string) ([]*EventRecord, error)

	// Registry operations
	ReplaceRegistry(ctx context.Context, session, cycleID string, entries []RegistryEntry) error
	ListRegistry(ctx context.Context, session string) ([]*RegistryEntry, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
