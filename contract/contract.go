//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"syncpad/domain"
	"syncpad/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry is the serialized room registry: the single owner of every Room
// and Member. Identifiers given to Admit are raw wire input; the registry
// sanitizes them and returns the canonical pair the connection is bound to.
type IRegistry interface {
	Admit(ctx context.Context, rawRoomID, rawUserID, connID string, sink EventSink) (domain.RoomID, domain.UserID, error)
	ApplyTextChange(ctx context.Context, roomID domain.RoomID, userID domain.UserID, rawText string) error
	FetchText(ctx context.Context, roomID domain.RoomID) (string, error)
	ListRooms(ctx context.Context) ([]domain.RoomSummary, error)
	PurgeAll(ctx context.Context) (int, error)
	Disconnect(ctx context.Context, roomID domain.RoomID, userID domain.UserID, connID string) error
}

// IRoomStore is the durable store: one record per room id, best-effort
// relative to in-memory correctness.
type IRoomStore interface {
	Save(roomID domain.RoomID, record domain.DurableRecord) error
	LoadAll() (map[domain.RoomID]domain.DurableRecord, error)
	Delete(roomID domain.RoomID) error
}
