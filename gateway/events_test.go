package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvelope_Decodes_Wire_Format(t *testing.T) {
	req := require.New(t)
	raw := `{"event":"admit","data":{"roomId":"room1","userId":"alice"}}`

	var env Envelope
	req.NoError(json.Unmarshal([]byte(raw), &env))
	req.Equal("admit", env.Event)

	var payload AdmitPayload
	req.NoError(json.Unmarshal(env.Data, &payload))
	req.Equal("room1", payload.RoomID)
	req.Equal("alice", payload.UserID)
}

func TestEnvelope_Without_Data_Is_Valid(t *testing.T) {
	req := require.New(t)

	var env Envelope
	req.NoError(json.Unmarshal([]byte(`{"event":"listRoomsRequest"}`), &env))
	req.Equal("listRoomsRequest", env.Event)
	req.Nil(env.Data)
}

func TestMustEnvelope_Encodes_Outbound_Payloads(t *testing.T) {
	req := require.New(t)

	env := mustEnvelope(eventRejected, RejectedPayload{Reason: "room is full"})
	encoded, err := json.Marshal(env)
	req.NoError(err)
	req.JSONEq(`{"event":"rejected","data":{"reason":"room is full"}}`, string(encoded))
}
