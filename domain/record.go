package domain

import "time"

// DurableMember is the persisted projection of a Member.
// Connection and timer state never reach disk.
type DurableMember struct {
	JoinedAt   time.Time `json:"joinedAt"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// DurableRecord is the persisted projection of a Room, one record per room id.
type DurableRecord struct {
	Text          string                   `json:"text"`
	Members       map[UserID]DurableMember `json:"members"`
	CreatedAt     time.Time                `json:"createdAt"`
	LastUpdatedAt time.Time                `json:"lastUpdatedAt"`
}

// ToRecord strips ephemeral connection state and snapshots the room for disk.
func (r *Room) ToRecord() DurableRecord {
	members := make(map[UserID]DurableMember, len(r.Members))
	for id, m := range r.Members {
		members[id] = DurableMember{JoinedAt: m.JoinedAt, LastSeenAt: m.LastSeenAt}
	}
	return DurableRecord{
		Text:          r.Text,
		Members:       members,
		CreatedAt:     r.CreatedAt,
		LastUpdatedAt: r.LastUpdatedAt,
	}
}

// FromRecord rehydrates a room from its durable record. Every member comes
// back without a connection: a reload can never resurrect a live ConnID or
// a stale eviction timer.
func FromRecord(id RoomID, record DurableRecord) *Room {
	members := make(map[UserID]*Member, len(record.Members))
	for userID, m := range record.Members {
		members[userID] = &Member{JoinedAt: m.JoinedAt, LastSeenAt: m.LastSeenAt}
	}
	return &Room{
		ID:            id,
		Text:          record.Text,
		Members:       members,
		CreatedAt:     record.CreatedAt,
		LastUpdatedAt: record.LastUpdatedAt,
	}
}
