package runtime

import (
	"fmt"
	"roomchat/contract"
	"roomchat/domain"
	"roomchat/errors"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type Set[K comparable] map[K]struct{}

type session struct {
	userID   domain.UserID
	username string
	sink     contract.EventSink
	rooms    Set[domain.RoomID]
}

// Registry is the session registry. It is keyed by connection so that a
// disconnect removes every subscription in one step, and keeps a reverse
// room index for fan-out.
//
// Both maps are guarded by the same lock: a reader never observes a
// connection in a room index it has already left.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[domain.ConnectionID]*session
	roomMembers map[domain.RoomID]Set[domain.ConnectionID]
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[domain.ConnectionID]*session),
		roomMembers: make(map[domain.RoomID]Set[domain.ConnectionID]),
	}
}

// Register creates a session with no joined room and returns its id.
func (r *Registry) Register(userID domain.UserID, username string, sink contract.EventSink) domain.ConnectionID {
	connID := domain.ConnectionID(uuid.NewString())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[connID] = &session{
		userID:   userID,
		username: username,
		sink:     sink,
		rooms:    make(Set[domain.RoomID]),
	}
	return connID
}

// Unregister removes the session and all its room subscriptions.
// It is the only cleanup path and reports whether the session existed.
func (r *Registry) Unregister(connID domain.ConnectionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok {
		return false
	}
	for roomID := range s.rooms {
		r.removeFromRoom(connID, roomID)
	}
	delete(r.sessions, connID)
	return true
}

// Join subscribes the connection to a room. Joining twice is a no-op.
func (r *Registry) Join(connID domain.ConnectionID, roomID domain.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrUnauthenticated, connID)
	}
	s.rooms[roomID] = struct{}{}
	if _, ok := r.roomMembers[roomID]; !ok {
		r.roomMembers[roomID] = make(Set[domain.ConnectionID])
	}
	r.roomMembers[roomID][connID] = struct{}{}
	return nil
}

// Leave unsubscribes the connection from a room. Leaving twice is a no-op.
func (r *Registry) Leave(connID domain.ConnectionID, roomID domain.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connID]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrUnauthenticated, connID)
	}
	delete(s.rooms, roomID)
	r.removeFromRoom(connID, roomID)
	return nil
}

// removeFromRoom drops empty room entries so the index does not grow with
// every room ever visited. Caller holds the write lock.
func (r *Registry) removeFromRoom(connID domain.ConnectionID, roomID domain.RoomID) {
	members, ok := r.roomMembers[roomID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(r.roomMembers, roomID)
	}
}

func (r *Registry) Session(connID domain.ConnectionID) (contract.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[connID]
	if !ok {
		return contract.Session{}, false
	}
	rooms := lo.Keys(s.rooms)
	slices.Sort(rooms)
	return contract.Session{
		ConnectionID: connID,
		UserID:       s.userID,
		Username:     s.username,
		Rooms:        rooms,
	}, true
}

func (r *Registry) IsJoined(connID domain.ConnectionID, roomID domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.roomMembers[roomID][connID]
	return ok
}

// SubscribersOf returns a snapshot of the connections joined to a room.
// Returns nil if nobody joined the room.
func (r *Registry) SubscribersOf(roomID domain.RoomID) []contract.Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomID]
	if !ok {
		return nil
	}
	subscribers := make([]contract.Subscriber, 0, len(members))
	for connID := range members {
		if s, exists := r.sessions[connID]; exists {
			subscribers = append(subscribers, contract.Subscriber{ConnectionID: connID, Sink: s.sink})
		}
	}
	return subscribers
}

func (r *Registry) Subscriber(connID domain.ConnectionID) (contract.Subscriber, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[connID]
	if !ok {
		return contract.Subscriber{}, false
	}
	return contract.Subscriber{ConnectionID: connID, Sink: s.sink}, true
}

// All returns a snapshot of every registered connection.
func (r *Registry) All() []contract.Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subscribers := make([]contract.Subscriber, 0, len(r.sessions))
	for connID, s := range r.sessions {
		subscribers = append(subscribers, contract.Subscriber{ConnectionID: connID, Sink: s.sink})
	}
	return subscribers
}

// Stats counts live connections and rooms with at least one listener.
func (r *Registry) Stats() contract.RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return contract.RegistryStats{Connections: len(r.sessions), ActiveRooms: len(r.roomMembers)}
}
