package domain

import "time"

type RoomID string

type UserID string

// Member is a room-scoped identity. A member may outlive its connection:
// when ConnID is empty the member is disconnected and an eviction timer
// is pending in the registry (GraceSeq identifies the pending grace cycle,
// so a timer that lost a race with a reconnection can detect it).
type Member struct {
	ConnID     string
	JoinedAt   time.Time
	LastSeenAt time.Time
	GraceSeq   uint64
}

// Connected reports whether the member currently holds a live connection.
func (m *Member) Connected() bool {
	return m.ConnID != ""
}

// Room holds one shared text document and its member set.
// All mutation goes through the registry's serialized command loop;
// Room itself carries no locking.
type Room struct {
	ID            RoomID
	Text          string
	Members       map[UserID]*Member
	CreatedAt     time.Time
	LastUpdatedAt time.Time
}

func NewRoom(id RoomID, now time.Time) *Room {
	return &Room{
		ID:            id,
		Members:       make(map[UserID]*Member),
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}

// ActiveMembers counts members holding a live connection.
func (r *Room) ActiveMembers() int {
	n := 0
	for _, m := range r.Members {
		if m.Connected() {
			n++
		}
	}
	return n
}

// RoomSummary is the read-only projection served to introspection requests.
type RoomSummary struct {
	RoomID        RoomID    `json:"roomId"`
	TotalMembers  int       `json:"totalMembers"`
	ActiveMembers int       `json:"activeMembers"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	TextLength    int       `json:"textLength"`
}

// Summary snapshots the room for introspection.
func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		RoomID:        r.ID,
		TotalMembers:  len(r.Members),
		ActiveMembers: r.ActiveMembers(),
		LastUpdatedAt: r.LastUpdatedAt,
		TextLength:    len(r.Text),
	}
}
