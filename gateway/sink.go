package gateway

import (
	"context"
	"fmt"

	"syncpad/domain/event"
)

// Sink buffers broadcast events for one connection. The registry's command
// loop must never block on a slow socket, so a full buffer drops the event
// and reports backpressure to the caller.
type Sink struct {
	Events chan event.DomainEvent
}

func NewSink(bufferSize int) *Sink {
	return &Sink{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by the registry while broadcasting.
// The write pump drains the channel from the connection side.
func (s *Sink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("connection buffer full, event %s dropped", e.Name())
	}
}
