package event

import (
	"time"
)

type DomainEvent interface {
	Name() string
	OccurredAt() time.Time
}

// TextChanged is broadcast to the other live members of a room after a
// successful last-writer-wins update. RoomID/Author are string forms of the
// domain identifiers; the event package stays free of domain imports so
// sinks can consume it from any layer.
type TextChanged struct {
	RoomID string
	Author string
	Text   string
	At     time.Time
}

func (e TextChanged) Name() string          { return "TextChanged" }
func (e TextChanged) OccurredAt() time.Time { return e.At }
