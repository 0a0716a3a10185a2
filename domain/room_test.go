package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoom_ToRecord_Strips_Ephemeral_State(t *testing.T) {
	req := require.New(t)
	now := time.Now().UTC()
	room := NewRoom("room1", now)
	room.Text = "hello"
	room.Members["alice"] = &Member{
		ConnID:     "conn-1",
		JoinedAt:   now,
		LastSeenAt: now,
		GraceSeq:   3,
	}

	record := room.ToRecord()

	req.Equal("hello", record.Text)
	req.Len(record.Members, 1)
	req.Equal(DurableMember{JoinedAt: now, LastSeenAt: now}, record.Members["alice"])
}

func TestFromRecord_Rehydrates_Members_Without_Connections(t *testing.T) {
	req := require.New(t)
	now := time.Now().UTC()
	record := DurableRecord{
		Text: "hello",
		Members: map[UserID]DurableMember{
			"alice": {JoinedAt: now, LastSeenAt: now},
			"bob":   {JoinedAt: now, LastSeenAt: now},
		},
		CreatedAt:     now,
		LastUpdatedAt: now,
	}

	room := FromRecord("room1", record)

	req.Equal("hello", room.Text)
	req.Len(room.Members, 2)
	for _, member := range room.Members {
		req.False(member.Connected())
	}
	req.Equal(0, room.ActiveMembers())
}

func TestRoom_Summary_Counts_Active_Members(t *testing.T) {
	req := require.New(t)
	now := time.Now().UTC()
	room := NewRoom("room1", now)
	room.Text = "hello"
	room.Members["alice"] = &Member{ConnID: "conn-1", JoinedAt: now, LastSeenAt: now}
	room.Members["bob"] = &Member{JoinedAt: now, LastSeenAt: now}

	summary := room.Summary()

	req.Equal(RoomID("room1"), summary.RoomID)
	req.Equal(2, summary.TotalMembers)
	req.Equal(1, summary.ActiveMembers)
	req.Equal(len("hello"), summary.TextLength)
}
