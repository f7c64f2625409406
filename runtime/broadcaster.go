package runtime

import (
	"context"
	"log/slog"
	"roomchat/contract"
	"roomchat/domain"
	"roomchat/domain/event"
	"time"

	"github.com/samber/lo"
)

// Broadcaster delivers events to the connections of a scope: one room, one
// connection, or every connection.
//
// It provides best-effort delivery with no retries or replay. A connection
// that went away between the snapshot and the delivery is skipped.
// Delivery to a given room is sequential, so two events published one after
// the other reach every subscriber in that order.
//
// Broadcaster is safe for concurrent use by multiple goroutines.
type Broadcaster struct {
	log         *slog.Logger
	registry    contract.IRegistry
	sinkTimeout time.Duration
}

func NewBroadcaster(log *slog.Logger, registry contract.IRegistry, sinkTimeout time.Duration) *Broadcaster {
	return &Broadcaster{log: log, registry: registry, sinkTimeout: sinkTimeout}
}

// PublishToRoom delivers e to every connection joined to the room at call
// time, except the excluded ones.
func (b *Broadcaster) PublishToRoom(ctx context.Context, roomID domain.RoomID, e event.DomainEvent, exclude ...domain.ConnectionID) int {
	subscribers := lo.Filter(b.registry.SubscribersOf(roomID), func(s contract.Subscriber, _ int) bool {
		return !lo.Contains(exclude, s.ConnectionID)
	})
	return b.deliverAll(ctx, subscribers, e)
}

func (b *Broadcaster) PublishToOne(ctx context.Context, connID domain.ConnectionID, e event.DomainEvent) bool {
	subscriber, ok := b.registry.Subscriber(connID)
	if !ok {
		b.log.Debug("Connection gone, event skipped", "conn_id", connID, "event", e.Name())
		return false
	}
	return b.deliver(ctx, subscriber, e)
}

// PublishGlobal delivers e to every registered connection regardless of
// the rooms it joined.
func (b *Broadcaster) PublishGlobal(ctx context.Context, e event.DomainEvent) int {
	return b.deliverAll(ctx, b.registry.All(), e)
}

func (b *Broadcaster) deliverAll(ctx context.Context, subscribers []contract.Subscriber, e event.DomainEvent) int {
	delivered := 0
	for _, subscriber := range subscribers {
		if b.deliver(ctx, subscriber, e) {
			delivered++
		}
	}
	return delivered
}

// deliver bounds each sink with sinkTimeout so one stuck connection cannot
// hold the others back.
func (b *Broadcaster) deliver(ctx context.Context, subscriber contract.Subscriber, e event.DomainEvent) bool {
	sinkCtx, cancel := context.WithTimeout(ctx, b.sinkTimeout)
	defer cancel()

	if err := subscriber.Sink.Consume(sinkCtx, e); err != nil {
		b.log.Debug("Event not delivered",
			"conn_id", subscriber.ConnectionID,
			"event", e.Name(),
			"error", err)
		return false
	}
	return true
}
