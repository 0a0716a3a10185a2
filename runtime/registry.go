// Package runtime owns the authoritative room state. Every mutation, whether
// triggered by a connection or by an eviction timer, is funneled through one
// serialized command loop, so Room and Member objects need no locking.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"syncpad/contract"
	"syncpad/domain"
	"syncpad/domain/event"
	"syncpad/errors"

	"github.com/benbjohnson/clock"
	"github.com/samber/lo"
)

// FlushRequest asks the store worker to mirror one room to disk.
// A nil Record means the room's durable record must be deleted.
type FlushRequest struct {
	RoomID domain.RoomID
	Record *domain.DurableRecord
}

type memberKey struct {
	room domain.RoomID
	user domain.UserID
}

// deleteRetryInterval bounds how long a destroyed room's stale record can
// outlive the room when the flush queue is saturated.
const deleteRetryInterval = 100 * time.Millisecond

// Registry is the single owner of all rooms and members. It runs as a
// supervised worker: Run drains the command channel until the context is
// canceled. Public methods post closures into that channel and wait for
// completion, so callers never observe a half-applied mutation.
type Registry struct {
	log           *slog.Logger
	clk           clock.Clock
	maxRoomSize   int
	maxTextLength int
	gracePeriod   time.Duration

	requests chan func()
	stopped  chan struct{}
	stopOnce sync.Once

	rooms  map[domain.RoomID]*domain.Room
	sinks  map[string]contract.EventSink
	timers map[memberKey]*clock.Timer
	flush  chan<- FlushRequest
}

func NewRegistry(log *slog.Logger, clk clock.Clock, flush chan<- FlushRequest,
	maxRoomSize, maxTextLength int, gracePeriod time.Duration, bufferSize int) *Registry {
	return &Registry{
		log:           log,
		clk:           clk,
		maxRoomSize:   maxRoomSize,
		maxTextLength: maxTextLength,
		gracePeriod:   gracePeriod,
		requests:      make(chan func(), bufferSize),
		stopped:       make(chan struct{}),
		rooms:         make(map[domain.RoomID]*domain.Room),
		sinks:         make(map[string]contract.EventSink),
		timers:        make(map[memberKey]*clock.Timer),
		flush:         flush,
	}
}

// Run executes queued commands until ctx is canceled. The supervisor may
// restart it after a panic; the stopped channel only closes on a clean
// context-driven exit, so pending callers unblock exactly once.
func (r *Registry) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.stopOnce.Do(func() { close(r.stopped) })
			return ctx.Err()
		case fn := <-r.requests:
			fn()
		}
	}
}

// do runs fn on the command loop and waits for it to finish. The outcome is
// exact: nil means fn ran, an error means it did not and never will. Caller
// and command race to claim the outcome, so a cancellation arriving after the
// command was queued can never leave a mutation the caller was told failed.
func (r *Registry) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	var claimed atomic.Bool
	select {
	case r.requests <- func() {
		defer close(done)
		if claimed.CompareAndSwap(false, true) {
			fn()
		}
	}:
	case <-r.stopped:
		return fmt.Errorf("registry stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-r.stopped:
		if claimed.CompareAndSwap(false, true) {
			return fmt.Errorf("registry stopped")
		}
		<-done
		return nil
	case <-ctx.Done():
		if claimed.CompareAndSwap(false, true) {
			return ctx.Err()
		}
		<-done
		return nil
	}
}

// post queues a command without waiting. Used by timer callbacks so an
// eviction never mutates state outside the command loop.
func (r *Registry) post(fn func()) {
	select {
	case r.requests <- fn:
	case <-r.stopped:
	}
}

// Preload installs rooms rehydrated from the durable store. Startup only,
// before Run; the lifecycle supervisor is the sole caller.
func (r *Registry) Preload(roomID domain.RoomID, record domain.DurableRecord) {
	r.rooms[roomID] = domain.FromRecord(roomID, record)
}

// Admit binds a connection to a (room, user) pair, subject to sanitization
// and capacity. Returning members always bypass the capacity check: capacity
// limits new occupancy, not returning occupancy.
func (r *Registry) Admit(ctx context.Context, rawRoomID, rawUserID, connID string,
	sink contract.EventSink) (domain.RoomID, domain.UserID, error) {
	roomID, okRoom := domain.SanitizeRoomID(rawRoomID)
	userID, okUser := domain.SanitizeUserID(rawUserID)
	if !okRoom || !okUser {
		return "", "", errors.ErrInvalidIdentifier
	}

	var admitErr error
	err := r.do(ctx, func() {
		admitErr = r.admit(roomID, userID, connID, sink)
	})
	if err != nil {
		return "", "", err
	}
	if admitErr != nil {
		return "", "", admitErr
	}
	return roomID, userID, nil
}

func (r *Registry) admit(roomID domain.RoomID, userID domain.UserID, connID string,
	sink contract.EventSink) error {
	now := r.clk.Now()
	room, exists := r.rooms[roomID]
	if exists {
		if _, isMember := room.Members[userID]; !isMember && len(room.Members) >= r.maxRoomSize {
			return errors.ErrRoomFull
		}
	} else {
		room = domain.NewRoom(roomID, now)
		r.rooms[roomID] = room
	}

	if member, isMember := room.Members[userID]; isMember {
		// Reconnection (or replacement of a still-live connection): cancel
		// the pending grace timer and reattach. Idempotent by design.
		r.cancelTimer(memberKey{room: roomID, user: userID})
		member.GraceSeq++
		if member.ConnID != "" {
			delete(r.sinks, member.ConnID)
		}
		member.ConnID = connID
		member.LastSeenAt = now
	} else {
		room.Members[userID] = &domain.Member{
			ConnID:     connID,
			JoinedAt:   now,
			LastSeenAt: now,
		}
	}
	r.sinks[connID] = sink
	room.LastUpdatedAt = now
	r.requestFlush(room)
	r.log.Info("Member admitted", "room_id", string(roomID), "user_id", string(userID),
		"members", len(room.Members))
	return nil
}

// ApplyTextChange replaces the document under the last-writer-wins rule and
// broadcasts the new text to every other member holding a live connection.
// Members in their grace period receive nothing; they catch up through
// FetchText on reconnection.
func (r *Registry) ApplyTextChange(ctx context.Context, roomID domain.RoomID,
	userID domain.UserID, rawText string) error {
	var applyErr error
	err := r.do(ctx, func() {
		applyErr = r.applyTextChange(roomID, userID, rawText)
	})
	if err != nil {
		return err
	}
	return applyErr
}

func (r *Registry) applyTextChange(roomID domain.RoomID, userID domain.UserID, rawText string) error {
	room, exists := r.rooms[roomID]
	if !exists {
		return errors.ErrUnknownRoom
	}
	member, isMember := room.Members[userID]
	if !isMember {
		return errors.ErrNotAMember
	}

	now := r.clk.Now()
	room.Text = domain.SanitizeText(rawText, r.maxTextLength)
	room.LastUpdatedAt = now
	member.LastSeenAt = now
	r.requestFlush(room)

	evt := event.TextChanged{
		RoomID: string(roomID),
		Author: string(userID),
		Text:   room.Text,
		At:     now,
	}
	for id, m := range room.Members {
		if id == userID || !m.Connected() {
			continue
		}
		if sink, ok := r.sinks[m.ConnID]; ok {
			// Sinks are non-blocking: a full connection buffer drops the
			// event instead of stalling the command loop.
			if err := sink.Consume(context.Background(), evt); err != nil {
				r.log.Warn("Dropping broadcast for slow connection",
					"room_id", string(roomID), "user_id", string(id), "error", err)
			}
		}
	}
	return nil
}

// Disconnect moves a member from ACTIVE to GRACE. The connection reference is
// cleared immediately; the member survives until the grace timer fires. A
// stale close (the member already reconnected elsewhere) is a no-op.
func (r *Registry) Disconnect(ctx context.Context, roomID domain.RoomID,
	userID domain.UserID, connID string) error {
	return r.do(ctx, func() {
		r.disconnect(roomID, userID, connID)
	})
}

func (r *Registry) disconnect(roomID domain.RoomID, userID domain.UserID, connID string) {
	room, exists := r.rooms[roomID]
	if !exists {
		return
	}
	member, isMember := room.Members[userID]
	if !isMember || member.ConnID != connID {
		return
	}

	delete(r.sinks, connID)
	member.ConnID = ""
	member.GraceSeq++
	seq := member.GraceSeq

	key := memberKey{room: roomID, user: userID}
	// Each transition into GRACE replaces any prior pending timer.
	r.cancelTimer(key)
	r.timers[key] = r.clk.AfterFunc(r.gracePeriod, func() {
		r.post(func() { r.evict(key, seq) })
	})
	r.log.Info("Member disconnected, grace period started",
		"room_id", string(roomID), "user_id", string(userID))
}

// evict fires at the end of a grace period. The sequence guard discards
// evictions that lost a race with a reconnection.
func (r *Registry) evict(key memberKey, seq uint64) {
	delete(r.timers, key)
	room, exists := r.rooms[key.room]
	if !exists {
		return
	}
	member, isMember := room.Members[key.user]
	if !isMember || member.Connected() || member.GraceSeq != seq {
		return
	}

	delete(room.Members, key.user)
	room.LastUpdatedAt = r.clk.Now()
	r.log.Info("Member evicted", "room_id", string(key.room), "user_id", string(key.user))

	if len(room.Members) == 0 {
		// Never leave an empty-but-persisted room behind: registry entry and
		// durable record go together.
		delete(r.rooms, key.room)
		r.requestDelete(key.room)
		r.log.Info("Room destroyed", "room_id", string(key.room))
		return
	}
	r.requestFlush(room)
}

// FetchText returns the current document, or the empty string for a room
// that does not exist yet. Authorization against the connection's binding is
// the gateway's concern.
func (r *Registry) FetchText(ctx context.Context, roomID domain.RoomID) (string, error) {
	var text string
	err := r.do(ctx, func() {
		if room, exists := r.rooms[roomID]; exists {
			text = room.Text
		}
	})
	return text, err
}

// ListRooms snapshots every room for operational introspection.
func (r *Registry) ListRooms(ctx context.Context) ([]domain.RoomSummary, error) {
	var summaries []domain.RoomSummary
	err := r.do(ctx, func() {
		summaries = lo.MapToSlice(r.rooms, func(_ domain.RoomID, room *domain.Room) domain.RoomSummary {
			return room.Summary()
		})
	})
	return summaries, err
}

// PurgeAll deletes every room from memory and the durable store. It is gated
// on global quiescence: one live connection anywhere blocks it.
func (r *Registry) PurgeAll(ctx context.Context) (int, error) {
	var purged int
	var purgeErr error
	err := r.do(ctx, func() {
		for _, room := range r.rooms {
			if room.ActiveMembers() > 0 {
				purgeErr = errors.ErrActiveUsersPresent
				return
			}
		}
		for key := range r.timers {
			r.cancelTimer(key)
		}
		for roomID := range r.rooms {
			delete(r.rooms, roomID)
			r.requestDelete(roomID)
			purged++
		}
	})
	if err != nil {
		return 0, err
	}
	if purgeErr != nil {
		return 0, purgeErr
	}
	r.log.Info("All rooms purged", "count", purged)
	return purged, nil
}

// SnapshotAll returns a durable record per room, for the shutdown flush.
func (r *Registry) SnapshotAll(ctx context.Context) (map[domain.RoomID]domain.DurableRecord, error) {
	var records map[domain.RoomID]domain.DurableRecord
	err := r.do(ctx, func() {
		records = make(map[domain.RoomID]domain.DurableRecord, len(r.rooms))
		for roomID, room := range r.rooms {
			records[roomID] = room.ToRecord()
		}
	})
	return records, err
}

func (r *Registry) cancelTimer(key memberKey) {
	if timer, ok := r.timers[key]; ok {
		timer.Stop()
		delete(r.timers, key)
	}
}

// requestFlush snapshots the room inside the mutation that changed it, so the
// persisted state always reflects that operation and never a later one.
// Persistence is best-effort: a full queue is logged and the next mutation
// will flush again.
func (r *Registry) requestFlush(room *domain.Room) {
	record := room.ToRecord()
	select {
	case r.flush <- FlushRequest{RoomID: room.ID, Record: &record}:
	default:
		r.log.Warn("Flush queue full, dropping room snapshot", "room_id", string(room.ID))
	}
}

// requestDelete schedules removal of a room's durable record. Unlike a
// dropped save, a dropped deletion has no later mutation to re-trigger it
// (the room is gone), so it is retried until it reaches the queue. The retry
// stands down if the room was recreated in the meantime: admission already
// re-persisted it.
func (r *Registry) requestDelete(roomID domain.RoomID) {
	select {
	case r.flush <- FlushRequest{RoomID: roomID}:
	default:
		r.log.Warn("Flush queue full, deferring room deletion", "room_id", string(roomID))
		r.clk.AfterFunc(deleteRetryInterval, func() {
			r.post(func() {
				if _, exists := r.rooms[roomID]; exists {
					return
				}
				r.requestDelete(roomID)
			})
		})
	}
}
