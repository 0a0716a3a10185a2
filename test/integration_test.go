package test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"syncpad/domain/event"
	"syncpad/repositories"
	"syncpad/runtime"
	"syncpad/runtime/workers"

	"github.com/benbjohnson/clock"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type sink struct{}

func (sink) Consume(_ context.Context, _ event.DomainEvent) error { return nil }

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// startEngine wires a registry, its store worker, and the lifecycle
// supervisor against a shared badger handle, the way main does.
func startEngine(t *testing.T, db *badger.DB) (*runtime.Registry, runtime.Lifecycle, context.CancelFunc) {
	t.Helper()
	log := slog.Default()
	store := repositories.NewRoomRepository(db, log)
	flush := make(chan runtime.FlushRequest, 64)
	registry := runtime.NewRegistry(log, clock.New(), flush, 10, 1000, 5*time.Second, 64)
	lifecycle := runtime.NewLifecycle(log, registry, store)
	require.NoError(t, lifecycle.Reconcile())

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = registry.Run(ctx) }()
	worker := workers.NewStoreWorker(log, store, flush)
	go func() { _ = worker.Run(ctx) }()
	t.Cleanup(cancel)
	return registry, lifecycle, cancel
}

func TestEngine_Restart_Preserves_Documents_But_Not_Members(t *testing.T) {
	req := require.New(t)
	db := openDB(t)

	// Given a first process writing a document
	registry, lifecycle, stop := startEngine(t, db)
	ctx := context.Background()
	_, _, err := registry.Admit(ctx, "room1", "alice", uuid.NewString(), sink{})
	req.NoError(err)
	req.NoError(registry.ApplyTextChange(ctx, "room1", "alice", "important document"))

	// When the process shuts down cleanly
	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	req.NoError(lifecycle.Shutdown(shutdownCtx))
	stop()

	// And a second process starts over the same database
	restarted, _, _ := startEngine(t, db)

	// Then the document survives and the stale membership does not
	text, err := restarted.FetchText(ctx, "room1")
	req.NoError(err)
	req.Equal("important document", text)

	summaries, err := restarted.ListRooms(ctx)
	req.NoError(err)
	req.Len(summaries, 1)
	req.Equal(0, summaries[0].TotalMembers)
	req.Equal(0, summaries[0].ActiveMembers)
}

func TestEngine_Room_Destruction_Reaches_The_Store(t *testing.T) {
	req := require.New(t)
	db := openDB(t)
	registry, _, _ := startEngine(t, db)
	ctx := context.Background()
	connID := uuid.NewString()

	_, _, err := registry.Admit(ctx, "room1", "alice", connID, sink{})
	req.NoError(err)
	req.NoError(registry.ApplyTextChange(ctx, "room1", "alice", "short lived"))
	req.NoError(registry.Disconnect(ctx, "room1", "alice", connID))

	// Purge instead of waiting out a real grace period
	purged, err := registry.PurgeAll(ctx)
	req.NoError(err)
	req.Equal(1, purged)

	store := repositories.NewRoomRepository(db, slog.Default())
	req.Eventually(func() bool {
		records, err := store.LoadAll()
		return err == nil && len(records) == 0
	}, 2*time.Second, 20*time.Millisecond)
}
