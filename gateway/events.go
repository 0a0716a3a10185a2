// Package gateway binds WebSocket connections to the room registry. Each
// connection carries JSON event envelopes in both directions and is bound to
// at most one (room, user) pair after a successful admission.
package gateway

import (
	"encoding/json"

	"syncpad/domain"
)

const (
	// inbound
	eventAdmit      = "admit"
	eventTextChange = "textChange"
	eventFetchText  = "fetchTextRequest"
	eventListRooms  = "listRoomsRequest"
	eventPurgeAll   = "purgeAllRequest"
	// outbound
	eventAdmitted      = "admitted"
	eventRejected      = "rejected"
	eventTextSnapshot  = "textSnapshot"
	eventRoomsSnapshot = "roomsSnapshot"
	eventPurged        = "purged"
)

type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type AdmitPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

type TextChangePayload struct {
	Text   string `json:"text"`
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

type FetchTextPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

type AdmittedPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

type RejectedPayload struct {
	Reason string `json:"reason"`
}

type TextBroadcastPayload struct {
	Text string `json:"text"`
}

type TextSnapshotPayload struct {
	Text   string `json:"text"`
	RoomID string `json:"roomId"`
}

type RoomsSnapshotPayload struct {
	Rooms []domain.RoomSummary `json:"rooms"`
}

type PurgedPayload struct {
	Message string `json:"message"`
}

// mustEnvelope builds an outbound envelope. Payload types above are all
// marshalable by construction, so an encoding error is a programming bug.
func mustEnvelope(event string, payload any) Envelope {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return Envelope{Event: event, Data: data}
}
