package stores_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/openfroyo/vtree/pkg/stores"
	"github.com/openfroyo/vtree/pkg/vtree"
)

// ExampleNewSQLiteStore demonstrates creating and initializing a new SQLite store.
func ExampleNewSQLiteStore() {
	store, err := stores.NewSQLiteStore(stores.Config{
		Path: stores.MemoryPath, // Use in-memory database for example
	})
	if err != nil {
		log.Fatal(err)
	}

	// Initialize the database connection
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		log.Fatal(err)
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		log.Fatal(err)
	}

	defer store.Close()

	fmt.Println("Store initialized successfully")
	// Output: Store initialized successfully
}

// ExampleSQLiteStore_RecordCycle demonstrates persisting a cycle report.
func ExampleSQLiteStore_RecordCycle() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: stores.MemoryPath})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	window := vtree.Root().Child("Window", vtree.Named("main"))
	report := &vtree.Report{
		CycleID:   "cycle-001",
		Session:   "ui",
		Kind:      vtree.CycleCreate,
		StartedAt: time.Now(),
		Nodes:     2,
		Events: []vtree.Event{
			{Op: vtree.OpAdded, Kind: "Root", Path: vtree.Root()},
			{Op: vtree.OpAdded, Kind: "Window", Path: window},
		},
		Summary: vtree.Summary{Added: 2},
	}
	if err := store.RecordCycle(ctx, report, nil); err != nil {
		log.Fatal(err)
	}

	events, err := store.ListEvents(ctx, "cycle-001")
	if err != nil {
		log.Fatal(err)
	}
	for _, ev := range events {
		fmt.Println(ev.Op, ev.Path)
	}
	// Output:
	// added /
	// added /Window@main
}
