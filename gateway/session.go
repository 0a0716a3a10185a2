package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"syncpad/contract"
	"syncpad/domain"
	"syncpad/domain/event"
	"syncpad/errors"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
)

// Session is the connection-local state: one websocket, one sink, and after
// a successful admission one immutable (room, user) binding. It holds no
// handle into registry internals, only the identifiers.
type Session struct {
	id             string
	conn           *websocket.Conn
	registry       contract.IRegistry
	sink           *Sink
	replies        chan Envelope
	log            *slog.Logger
	clk            clock.Clock
	throttleWindow time.Duration
	lastAdmit      time.Time

	bound  bool
	roomID domain.RoomID
	userID domain.UserID
}

func newSession(id string, conn *websocket.Conn, registry contract.IRegistry,
	log *slog.Logger, clk clock.Clock, throttleWindow time.Duration, bufferSize int) *Session {
	return &Session{
		id:             id,
		conn:           conn,
		registry:       registry,
		sink:           NewSink(bufferSize),
		replies:        make(chan Envelope, bufferSize),
		log:            log,
		clk:            clk,
		throttleWindow: throttleWindow,
	}
}

// run pumps the connection until it closes, then triggers the grace-period
// transition for the bound member. Blocks for the lifetime of the connection.
func (s *Session) run(ctx context.Context) {
	pumpCtx, cancel := context.WithCancel(ctx)
	go s.writePump(pumpCtx)

	s.readLoop(pumpCtx)

	cancel()
	_ = s.conn.Close()
	if s.bound {
		// The serving context may already be gone; the disconnect must still
		// reach the registry so the grace timer starts.
		if err := s.registry.Disconnect(context.Background(), s.roomID, s.userID, s.id); err != nil {
			s.log.Warn("Failed to register disconnect",
				"room_id", string(s.roomID), "user_id", string(s.userID), "error", err)
		}
	}
}

func (s *Session) readLoop(ctx context.Context) {
	for {
		var env Envelope
		if err := s.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("Connection closed unexpectedly", "conn_id", s.id, "error", err)
			}
			return
		}
		s.dispatch(ctx, env)
	}
}

func (s *Session) dispatch(ctx context.Context, env Envelope) {
	switch env.Event {
	case eventAdmit:
		s.handleAdmit(ctx, env.Data)
	case eventTextChange:
		s.handleTextChange(ctx, env.Data)
	case eventFetchText:
		s.handleFetchText(ctx, env.Data)
	case eventListRooms:
		s.handleListRooms(ctx)
	case eventPurgeAll:
		s.handlePurgeAll(ctx)
	default:
		s.log.Debug("Ignoring unknown event", "conn_id", s.id, "event", env.Event)
	}
}

// handleAdmit runs the throttled admission handshake. At most one attempt per
// throttle window is processed; the rest are dropped silently, a debug line
// being the only trace. This bounds the cost of reconnection storms.
func (s *Session) handleAdmit(ctx context.Context, data json.RawMessage) {
	now := s.clk.Now()
	if !s.lastAdmit.IsZero() && now.Sub(s.lastAdmit) < s.throttleWindow {
		s.log.Debug("Admission attempt throttled", "conn_id", s.id)
		return
	}
	s.lastAdmit = now

	var payload AdmitPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.reject(ctx, errors.ErrInvalidIdentifier.Error())
		return
	}

	if s.bound {
		roomID, okRoom := domain.SanitizeRoomID(payload.RoomID)
		userID, okUser := domain.SanitizeUserID(payload.UserID)
		if okRoom && okUser && roomID == s.roomID && userID == s.userID {
			// Idempotent re-entry: the binding already holds, re-ack it.
			s.reply(ctx, mustEnvelope(eventAdmitted, AdmittedPayload{
				RoomID: string(s.roomID), UserID: string(s.userID),
			}))
			return
		}
		s.reject(ctx, errors.ErrUnauthorized.Error())
		return
	}

	roomID, userID, err := s.registry.Admit(ctx, payload.RoomID, payload.UserID, s.id, s.sink)
	if err != nil {
		s.reject(ctx, err.Error())
		return
	}
	s.bound = true
	s.roomID = roomID
	s.userID = userID
	s.reply(ctx, mustEnvelope(eventAdmitted, AdmittedPayload{
		RoomID: string(roomID), UserID: string(userID),
	}))
}

func (s *Session) handleTextChange(ctx context.Context, data json.RawMessage) {
	var payload TextChangePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.reject(ctx, errors.ErrUnknownRoom.Error())
		return
	}
	roomID, okRoom := domain.SanitizeRoomID(payload.RoomID)
	userID, okUser := domain.SanitizeUserID(payload.UserID)
	if !okRoom || !okUser {
		s.reject(ctx, errors.ErrUnknownRoom.Error())
		return
	}
	if err := s.registry.ApplyTextChange(ctx, roomID, userID, payload.Text); err != nil {
		s.log.Info("Rejected text change", "conn_id", s.id,
			"room_id", string(roomID), "user_id", string(userID), "error", err)
		s.reject(ctx, err.Error())
	}
}

// handleFetchText only answers the connection's own binding: a mismatched or
// unbound request is rejected without leaking text or room existence.
func (s *Session) handleFetchText(ctx context.Context, data json.RawMessage) {
	var payload FetchTextPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.reject(ctx, errors.ErrUnauthorized.Error())
		return
	}
	roomID, okRoom := domain.SanitizeRoomID(payload.RoomID)
	userID, okUser := domain.SanitizeUserID(payload.UserID)
	if !okRoom || !okUser || !s.bound || roomID != s.roomID || userID != s.userID {
		s.log.Info("Rejected unauthorized text fetch", "conn_id", s.id)
		s.reject(ctx, errors.ErrUnauthorized.Error())
		return
	}
	text, err := s.registry.FetchText(ctx, roomID)
	if err != nil {
		s.reject(ctx, err.Error())
		return
	}
	s.reply(ctx, mustEnvelope(eventTextSnapshot, TextSnapshotPayload{
		Text: text, RoomID: string(roomID),
	}))
}

func (s *Session) handleListRooms(ctx context.Context) {
	summaries, err := s.registry.ListRooms(ctx)
	if err != nil {
		s.reject(ctx, err.Error())
		return
	}
	s.reply(ctx, mustEnvelope(eventRoomsSnapshot, RoomsSnapshotPayload{Rooms: summaries}))
}

func (s *Session) handlePurgeAll(ctx context.Context) {
	purged, err := s.registry.PurgeAll(ctx)
	if err != nil {
		s.reject(ctx, err.Error())
		return
	}
	s.reply(ctx, mustEnvelope(eventPurged, PurgedPayload{
		Message: fmt.Sprintf("Purged %d rooms", purged),
	}))
}

func (s *Session) reject(ctx context.Context, reason string) {
	s.reply(ctx, mustEnvelope(eventRejected, RejectedPayload{Reason: reason}))
}

func (s *Session) reply(ctx context.Context, env Envelope) {
	select {
	case s.replies <- env:
	case <-ctx.Done():
	}
}

// writePump serializes all outbound traffic: direct replies and broadcasts
// funneled through the sink by the registry.
func (s *Session) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case env := <-s.replies:
			if err := s.conn.WriteJSON(env); err != nil {
				_ = s.conn.Close()
				return
			}
		case evt := <-s.sink.Events:
			if changed, ok := evt.(event.TextChanged); ok {
				env := mustEnvelope(eventTextChange, TextBroadcastPayload{Text: changed.Text})
				if err := s.conn.WriteJSON(env); err != nil {
					_ = s.conn.Close()
					return
				}
			}
		}
	}
}
