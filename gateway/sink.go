package gateway

import (
	"context"
	"roomchat/domain/event"
	"roomchat/errors"
	"sync"
)

// ConnectionSink queues events for one WebSocket connection.
// The broadcaster calls Consume, the connection's writer drains Events.
type ConnectionSink struct {
	events chan event.DomainEvent
	done   chan struct{}
	once   sync.Once
}

func NewConnectionSink(bufferSize int) *ConnectionSink {
	return &ConnectionSink{
		events: make(chan event.DomainEvent, bufferSize),
		done:   make(chan struct{}),
	}
}

// Consume never waits for the network. A full buffer drops the event.
func (s *ConnectionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case <-s.done:
		return errors.ErrConnectionClosed
	default:
	}

	select {
	case s.events <- e:
		return nil
	case <-s.done:
		return errors.ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrConnectionSaturated
	}
}

func (s *ConnectionSink) Events() <-chan event.DomainEvent {
	return s.events
}

func (s *ConnectionSink) Done() <-chan struct{} {
	return s.done
}

// Close is safe to call more than once.
func (s *ConnectionSink) Close() {
	s.once.Do(func() { close(s.done) })
}
