package workers

import (
	"context"
	"log/slog"

	"syncpad/contract"
	"syncpad/runtime"
)

// StoreWorker drains flush requests from the registry and mirrors them to the
// durable store. Failures are logged and absorbed: the in-memory registry
// stays authoritative, and the next mutation of the same room flushes again.
type StoreWorker struct {
	log      *slog.Logger
	store    contract.IRoomStore
	requests <-chan runtime.FlushRequest
}

func NewStoreWorker(log *slog.Logger, store contract.IRoomStore,
	requests <-chan runtime.FlushRequest) StoreWorker {
	return StoreWorker{log: log, store: store, requests: requests}
}

func (w StoreWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping store worker")
			return ctx.Err()
		case req := <-w.requests:
			w.handle(req)
		}
	}
}

func (w StoreWorker) handle(req runtime.FlushRequest) {
	if req.Record == nil {
		if err := w.store.Delete(req.RoomID); err != nil {
			w.log.Error("Failed to delete room record",
				"room_id", string(req.RoomID), "error", err)
		}
		return
	}
	if err := w.store.Save(req.RoomID, *req.Record); err != nil {
		w.log.Error("Failed to persist room record",
			"room_id", string(req.RoomID), "error", err)
	}
}
