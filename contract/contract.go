//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"roomchat/domain"
	"roomchat/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// for logging and supervision.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the outbound side of one connection.
// Consume must not block on network I/O: it either queues the event or
// fails fast.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Subscriber is a connection as seen by the broadcaster.
type Subscriber struct {
	ConnectionID domain.ConnectionID
	Sink         EventSink
}

// Session is a read-only snapshot of a registered connection.
type Session struct {
	ConnectionID domain.ConnectionID
	UserID       domain.UserID
	Username     string
	Rooms        []domain.RoomID
}

type RegistryStats struct {
	Connections int
	ActiveRooms int
}

// IRegistry tracks live connections and the rooms they joined.
type IRegistry interface {
	Register(userID domain.UserID, username string, sink EventSink) domain.ConnectionID
	Unregister(connID domain.ConnectionID) bool
	Join(connID domain.ConnectionID, roomID domain.RoomID) error
	Leave(connID domain.ConnectionID, roomID domain.RoomID) error
	Session(connID domain.ConnectionID) (Session, bool)
	IsJoined(connID domain.ConnectionID, roomID domain.RoomID) bool
	SubscribersOf(roomID domain.RoomID) []Subscriber
	Subscriber(connID domain.ConnectionID) (Subscriber, bool)
	All() []Subscriber
}

// IBroadcaster fans events out to connections. Delivery is best effort:
// the returned count is the number of connections that accepted the event.
type IBroadcaster interface {
	PublishToRoom(ctx context.Context, roomID domain.RoomID, e event.DomainEvent, exclude ...domain.ConnectionID) int
	PublishToOne(ctx context.Context, connID domain.ConnectionID, e event.DomainEvent) bool
	PublishGlobal(ctx context.Context, e event.DomainEvent) int
}
