package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"syncpad/domain"
	"syncpad/runtime"

	"github.com/stretchr/testify/require"
)

type spyStore struct {
	mu      sync.Mutex
	saved   []domain.RoomID
	deleted []domain.RoomID
	failing bool
}

func (s *spyStore) Save(roomID domain.RoomID, _ domain.DurableRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return fmt.Errorf("disk on fire")
	}
	s.saved = append(s.saved, roomID)
	return nil
}

func (s *spyStore) LoadAll() (map[domain.RoomID]domain.DurableRecord, error) {
	return nil, nil
}

func (s *spyStore) Delete(roomID domain.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, roomID)
	return nil
}

func (s *spyStore) snapshot() ([]domain.RoomID, []domain.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.RoomID(nil), s.saved...), append([]domain.RoomID(nil), s.deleted...)
}

func TestStoreWorker_Dispatches_Saves_And_Deletes(t *testing.T) {
	req := require.New(t)
	store := &spyStore{}
	requests := make(chan runtime.FlushRequest, 8)
	worker := NewStoreWorker(slog.Default(), store, requests)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = worker.Run(ctx)
		close(done)
	}()

	record := domain.DurableRecord{Text: "hello"}
	requests <- runtime.FlushRequest{RoomID: "room1", Record: &record}
	requests <- runtime.FlushRequest{RoomID: "room2"}

	req.Eventually(func() bool {
		saved, deleted := store.snapshot()
		return len(saved) == 1 && len(deleted) == 1
	}, time.Second, 10*time.Millisecond)

	saved, deleted := store.snapshot()
	req.Equal([]domain.RoomID{"room1"}, saved)
	req.Equal([]domain.RoomID{"room2"}, deleted)

	cancel()
	<-done
}

func TestStoreWorker_Absorbs_Persistence_Failures(t *testing.T) {
	req := require.New(t)
	store := &spyStore{failing: true}
	requests := make(chan runtime.FlushRequest, 8)
	worker := NewStoreWorker(slog.Default(), store, requests)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = worker.Run(ctx)
		close(done)
	}()

	record := domain.DurableRecord{Text: "hello"}
	requests <- runtime.FlushRequest{RoomID: "room1", Record: &record}
	// A second request after the failure proves the worker is still alive
	requests <- runtime.FlushRequest{RoomID: "room1"}

	req.Eventually(func() bool {
		_, deleted := store.snapshot()
		return len(deleted) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
