package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/openfroyo/vtree/pkg/vtree"
)

// setupTestStore creates an in-memory SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: MemoryPath,
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })
	return store
}

var (
	windowPath = vtree.Root().Child("Window", vtree.Named("main"))
	boxPath    = windowPath.Child("Box", vtree.Positional(0))
)

func sampleReport(session string, startedAt time.Time) *vtree.Report {
	return &vtree.Report{
		CycleID:   session + "-" + startedAt.Format("150405"),
		Session:   session,
		Kind:      vtree.CycleUpdate,
		StartedAt: startedAt,
		Duration:  12 * time.Millisecond,
		Nodes:     4,
		Events: []vtree.Event{
			{Op: vtree.OpParamsChanged, Kind: "Window", Path: windowPath},
			{Op: vtree.OpRemoved, Kind: "Box", Path: boxPath},
			{Op: vtree.OpRemoved, Kind: "Label", Path: boxPath.Child("Label", vtree.Named("a")), Cascade: true},
			{Op: vtree.OpReordered, Kind: "Window", Path: windowPath, Moves: []vtree.Move{{From: 1, To: 0}, {From: 0, To: 1}}},
		},
		Summary: vtree.Summary{ParamsChanged: 1, Removed: 1, Cascaded: 1, Reordered: 1},
	}
}

var pathComparer = cmp.Comparer(func(a, b vtree.Path) bool { return a.String() == b.String() })

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path: MemoryPath,
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.HealthCheck(ctx); err == nil {
		t.Error("health check should fail before Init")
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Error("NewSQLiteStore should require a path")
	}
}

// TestStoreMigrations tests database migrations
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tables := []string{"cycles", "events", "registry_entries"}
	for _, table := range tables {
		query := "SELECT COUNT(*) FROM " + table
		var count int
		err := store.db.QueryRowContext(ctx, query).Scan(&count)
		if err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}

	// Running migrations twice is a no-op.
	if err := store.Migrate(ctx); err != nil {
		t.Errorf("second migrate failed: %v", err)
	}
}

func TestFileStoreMigrates(t *testing.T) {
	store, err := NewSQLiteStore(Config{Path: t.TempDir() + "/history.db"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}
	if err := store.RecordCycle(ctx, sampleReport("file", time.Now()), nil); err != nil {
		t.Fatalf("RecordCycle() error = %v", err)
	}
}

func TestRecordCycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	report := sampleReport("ui", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	if err := store.RecordCycle(ctx, report, nil); err != nil {
		t.Fatalf("RecordCycle() error = %v", err)
	}

	got, err := store.GetCycle(ctx, report.CycleID)
	if err != nil {
		t.Fatalf("GetCycle() error = %v", err)
	}
	if got.Status != CycleStatusSucceeded {
		t.Errorf("status = %s, want %s", got.Status, CycleStatusSucceeded)
	}
	if got.Kind != vtree.CycleUpdate || got.Session != "ui" || got.Nodes != 4 {
		t.Errorf("cycle = %+v", got)
	}
	if got.Duration != 12*time.Millisecond {
		t.Errorf("duration = %v, want 12ms", got.Duration)
	}
	if !got.StartedAt.Equal(report.StartedAt) {
		t.Errorf("started_at = %v, want %v", got.StartedAt, report.StartedAt)
	}
	if diff := cmp.Diff(report.Summary, got.Summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
	if got.Error != nil {
		t.Errorf("error = %q, want nil", *got.Error)
	}

	records, err := store.ListEvents(ctx, report.CycleID)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	events := make([]vtree.Event, len(records))
	for i, r := range records {
		if r.Seq != i {
			t.Errorf("event %d has seq %d", i, r.Seq)
		}
		events[i] = r.Event()
	}
	if diff := cmp.Diff(report.Events, events, pathComparer); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordFailedCycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	report := sampleReport("ui", time.Now())
	cycleErr := vtree.NewFatalError("duplicate child", nil).WithCode(vtree.ErrCodeIdentityViolation)
	if err := store.RecordCycle(ctx, report, cycleErr); err != nil {
		t.Fatalf("RecordCycle() error = %v", err)
	}

	got, err := store.GetCycle(ctx, report.CycleID)
	if err != nil {
		t.Fatalf("GetCycle() error = %v", err)
	}
	if got.Status != CycleStatusFailed {
		t.Errorf("status = %s, want %s", got.Status, CycleStatusFailed)
	}
	if got.ErrorCode == nil || *got.ErrorCode != vtree.ErrCodeIdentityViolation {
		t.Errorf("error code = %v, want %s", got.ErrorCode, vtree.ErrCodeIdentityViolation)
	}

	// The same cycle cannot be recorded twice.
	err = store.RecordCycle(ctx, report, nil)
	if !vtree.IsTransient(err) || !vtree.HasCode(err, vtree.ErrCodeStoreFailed) {
		t.Errorf("duplicate RecordCycle() error = %v, want transient %s", err, vtree.ErrCodeStoreFailed)
	}
	events, err := store.ListEvents(ctx, report.CycleID)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != len(report.Events) {
		t.Errorf("rolled back insert left %d events, want %d", len(events), len(report.Events))
	}
}

func TestListAndPruneCycles(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := store.RecordCycle(ctx, sampleReport("ui", base.Add(time.Duration(i)*time.Second)), nil); err != nil {
			t.Fatalf("RecordCycle() error = %v", err)
		}
	}
	if err := store.RecordCycle(ctx, sampleReport("other", base), nil); err != nil {
		t.Fatalf("RecordCycle() error = %v", err)
	}

	cycles, err := store.ListCycles(ctx, "ui", 2, 0)
	if err != nil {
		t.Fatalf("ListCycles() error = %v", err)
	}
	if len(cycles) != 2 {
		t.Fatalf("len(cycles) = %d, want 2", len(cycles))
	}
	if !cycles[0].StartedAt.After(cycles[1].StartedAt) {
		t.Errorf("cycles not newest first: %v, %v", cycles[0].StartedAt, cycles[1].StartedAt)
	}

	all, err := store.ListCycles(ctx, "", 100, 0)
	if err != nil {
		t.Fatalf("ListCycles() error = %v", err)
	}
	if len(all) != 6 {
		t.Errorf("len(all) = %d, want 6", len(all))
	}

	deleted, err := store.PruneCycles(ctx, "ui", 3)
	if err != nil {
		t.Fatalf("PruneCycles() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	remaining, _ := store.ListCycles(ctx, "ui", 100, 0)
	if len(remaining) != 3 {
		t.Errorf("len(remaining) = %d, want 3", len(remaining))
	}
	oldest := sampleReport("ui", base)
	events, err := store.ListEvents(ctx, oldest.CycleID)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("pruned cycle kept %d events", len(events))
	}
}

func TestDeleteCycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	report := sampleReport("ui", time.Now())
	if err := store.RecordCycle(ctx, report, nil); err != nil {
		t.Fatalf("RecordCycle() error = %v", err)
	}
	if err := store.DeleteCycle(ctx, report.CycleID); err != nil {
		t.Fatalf("DeleteCycle() error = %v", err)
	}
	if _, err := store.GetCycle(ctx, report.CycleID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCycle() error = %v, want ErrNotFound", err)
	}
	if err := store.DeleteCycle(ctx, report.CycleID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteCycle() error = %v, want ErrNotFound", err)
	}
}

func TestReplaceRegistry(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first := []RegistryEntry{
		{Path: boxPath, Kind: "Box", Resource: "w2"},
		{Path: windowPath, Kind: "Window", Resource: "w1"},
	}
	if err := store.ReplaceRegistry(ctx, "ui", "c1", first); err != nil {
		t.Fatalf("ReplaceRegistry() error = %v", err)
	}
	if err := store.ReplaceRegistry(ctx, "other", "c9", first[:1]); err != nil {
		t.Fatalf("ReplaceRegistry() error = %v", err)
	}

	got, err := store.ListRegistry(ctx, "ui")
	if err != nil {
		t.Fatalf("ListRegistry() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(registry) = %d, want 2", len(got))
	}
	// Parents sort before their descendants.
	if got[0].Resource != "w1" || got[1].Resource != "w2" {
		t.Errorf("registry order = %s, %s", got[0].Path, got[1].Path)
	}

	if err := store.ReplaceRegistry(ctx, "ui", "c2", first[1:]); err != nil {
		t.Fatalf("ReplaceRegistry() error = %v", err)
	}
	got, _ = store.ListRegistry(ctx, "ui")
	if len(got) != 1 || got[0].CycleID != "c2" {
		t.Errorf("registry after replace = %+v", got)
	}
	other, _ := store.ListRegistry(ctx, "other")
	if len(other) != 1 {
		t.Errorf("other session registry = %+v", other)
	}
}

type nopState struct{}

func TestObserverRecordsSessionCycles(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	snapshot := func() []RegistryEntry {
		return []RegistryEntry{{Path: windowPath, Kind: "Window", Resource: "w1"}}
	}
	obs := NewObserver(store, zerolog.Nop(), snapshot)

	root := vtree.New("Root", nil, vtree.New("Window", nil).WithKey("main"))
	session, created, err := vtree.NewSession[nopState](ctx, nopState{}, root, vtree.NopDiffer[nopState]{},
		vtree.WithName("ui"), vtree.WithObserver(obs))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	updated, err := session.Update(ctx, nil)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	cycles, err := store.ListCycles(ctx, "ui", 10, 0)
	if err != nil {
		t.Fatalf("ListCycles() error = %v", err)
	}
	if len(cycles) != 2 {
		t.Fatalf("len(cycles) = %d, want 2", len(cycles))
	}
	for _, want := range []*vtree.Report{created, updated} {
		got, err := store.GetCycle(ctx, want.CycleID)
		if err != nil {
			t.Fatalf("GetCycle() error = %v", err)
		}
		if diff := cmp.Diff(want.Summary, got.Summary); diff != "" {
			t.Errorf("%s summary mismatch (-want +got):\n%s", want.Kind, diff)
		}
	}

	entries, err := store.ListRegistry(ctx, "ui")
	if err != nil {
		t.Fatalf("ListRegistry() error = %v", err)
	}
	if len(entries) != 1 || entries[0].CycleID != updated.CycleID {
		t.Errorf("registry = %+v, want one entry from cycle %s", entries, updated.CycleID)
	}
}
