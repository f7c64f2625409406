package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"roomchat/domain"
	"roomchat/domain/event"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newMessageEvent(id int64, roomID domain.RoomID) event.MessagePosted {
	return event.MessagePosted{Message: domain.Message{
		ID:        domain.MessageID(id),
		Content:   fmt.Sprintf("message %d", id),
		RoomID:    roomID,
		CreatedAt: time.Now().UTC(),
	}}
}

func newBroadcaster(registry *Registry) *Broadcaster {
	return NewBroadcaster(logs.GetLoggerFromLevel(slog.LevelDebug), registry, time.Second)
}

func TestBroadcaster_PublishToRoom_Reaches_Joined_Connections_Only(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	registry := NewRegistry()
	broadcaster := newBroadcaster(registry)

	// Given alice and bob in room 1, carol in room 2
	aliceSink, bobSink, carolSink := &recordingSink{}, &recordingSink{}, &recordingSink{}
	alice := registry.Register(1, "alice", aliceSink)
	bob := registry.Register(2, "bob", bobSink)
	carol := registry.Register(3, "carol", carolSink)
	req.NoError(registry.Join(alice, 1))
	req.NoError(registry.Join(bob, 1))
	req.NoError(registry.Join(carol, 2))

	// When a message is published to room 1
	delivered := broadcaster.PublishToRoom(ctx, 1, newMessageEvent(1, 1))

	// Then only room 1 members receive it
	req.Equal(2, delivered)
	req.Len(aliceSink.received(), 1)
	req.Len(bobSink.received(), 1)
	req.Empty(carolSink.received())
}

func TestBroadcaster_PublishToRoom_Excludes(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	broadcaster := newBroadcaster(registry)

	aliceSink, bobSink := &recordingSink{}, &recordingSink{}
	alice := registry.Register(1, "alice", aliceSink)
	bob := registry.Register(2, "bob", bobSink)
	req.NoError(registry.Join(alice, 1))
	req.NoError(registry.Join(bob, 1))

	delivered := broadcaster.PublishToRoom(context.Background(), 1, event.UserTyping{Room: 1, UserID: 1}, alice)

	req.Equal(1, delivered)
	req.Empty(aliceSink.received())
	req.Len(bobSink.received(), 1)
}

func TestBroadcaster_Keeps_Publish_Order(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	broadcaster := newBroadcaster(registry)

	sink := &recordingSink{}
	connID := registry.Register(1, "alice", sink)
	req.NoError(registry.Join(connID, 1))

	// When messages are published one after the other
	for i := int64(1); i <= 20; i++ {
		broadcaster.PublishToRoom(context.Background(), 1, newMessageEvent(i, 1))
	}

	// Then they are received in the same order
	received := sink.received()
	req.Len(received, 20)
	for i, e := range received {
		req.Equal(domain.MessageID(i+1), e.(event.MessagePosted).Message.ID)
	}
}

func TestBroadcaster_Failing_Sink_Does_Not_Stop_Others(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	broadcaster := newBroadcaster(registry)

	broken := &recordingSink{err: fmt.Errorf("connection closed")}
	healthy := &recordingSink{}
	req.NoError(registry.Join(registry.Register(1, "alice", broken), 1))
	req.NoError(registry.Join(registry.Register(2, "bob", healthy), 1))

	delivered := broadcaster.PublishToRoom(context.Background(), 1, newMessageEvent(1, 1))

	req.Equal(1, delivered)
	req.Len(healthy.received(), 1)
}

func TestBroadcaster_PublishToOne(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	broadcaster := newBroadcaster(registry)

	sink := &recordingSink{}
	connID := registry.Register(1, "alice", sink)

	req.True(broadcaster.PublishToOne(context.Background(), connID, event.HistoryLoaded{Room: 1}))
	req.Len(sink.received(), 1)

	// A disconnected connection is skipped
	registry.Unregister(connID)
	req.False(broadcaster.PublishToOne(context.Background(), connID, event.HistoryLoaded{Room: 1}))
	req.Len(sink.received(), 1)
}

func TestBroadcaster_PublishGlobal_Ignores_Rooms(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	broadcaster := newBroadcaster(registry)

	inRoom, lobby := &recordingSink{}, &recordingSink{}
	req.NoError(registry.Join(registry.Register(1, "alice", inRoom), 1))
	registry.Register(2, "bob", lobby)

	delivered := broadcaster.PublishGlobal(context.Background(), event.ColorChanged{UserID: 1, Color: "#ff0000"})

	req.Equal(2, delivered)
	req.Len(inRoom.received(), 1)
	req.Len(lobby.received(), 1)
}
