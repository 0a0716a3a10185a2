package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"syncpad/contract"
	"syncpad/domain"
)

// Lifecycle reconciles the durable store with the registry around process
// boundaries: rooms are rehydrated at startup and flushed at shutdown.
type Lifecycle struct {
	log      *slog.Logger
	registry *Registry
	store    contract.IRoomStore
}

func NewLifecycle(log *slog.Logger, registry *Registry, store contract.IRoomStore) Lifecycle {
	return Lifecycle{log: log, registry: registry, store: store}
}

// Reconcile loads every persisted room, clears its membership, and persists
// the cleared record back. No connection can survive a restart, so stale
// membership snapshots are never trusted: documents come back, members don't.
// Must run before the registry's command loop starts.
func (l Lifecycle) Reconcile() error {
	records, err := l.store.LoadAll()
	if err != nil {
		return fmt.Errorf("loading persisted rooms: %w", err)
	}
	for roomID, record := range records {
		record.Members = make(map[domain.UserID]domain.DurableMember)
		l.registry.Preload(roomID, record)
		if err := l.store.Save(roomID, record); err != nil {
			l.log.Error("Failed to re-persist reconciled room",
				"room_id", string(roomID), "error", err)
		}
	}
	l.log.Info("Reconciled persisted rooms", "count", len(records))
	return nil
}

// Shutdown synchronously flushes every in-memory room. The caller bounds it
// with a deadline so a hanging disk cannot stall process exit.
func (l Lifecycle) Shutdown(ctx context.Context) error {
	records, err := l.registry.SnapshotAll(ctx)
	if err != nil {
		return fmt.Errorf("snapshotting rooms for shutdown: %w", err)
	}
	for roomID, record := range records {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := l.store.Save(roomID, record); err != nil {
			l.log.Error("Failed to flush room at shutdown",
				"room_id", string(roomID), "error", err)
		}
	}
	l.log.Info("Flushed rooms at shutdown", "count", len(records))
	return nil
}
