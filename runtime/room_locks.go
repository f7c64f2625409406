package runtime

import (
	"roomchat/domain"
	"sync"
)

// KeyedLocks hands out one mutex per key. Operations on different keys
// never wait on each other.
type KeyedLocks[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*keyedLock
}

// RoomLocks serializes the work touching one room.
type RoomLocks = KeyedLocks[domain.RoomID]

// UserLocks serializes the profile updates of one user.
type UserLocks = KeyedLocks[domain.UserID]

type keyedLock struct {
	mu      sync.Mutex
	holders int
}

func NewRoomLocks() *RoomLocks {
	return &RoomLocks{locks: make(map[domain.RoomID]*keyedLock)}
}

func NewUserLocks() *UserLocks {
	return &UserLocks{locks: make(map[domain.UserID]*keyedLock)}
}

// Lock blocks until the key is free and returns the matching unlock.
// Entries are dropped once nobody holds or waits for them.
func (l *KeyedLocks[K]) Lock(key K) (unlock func()) {
	l.mu.Lock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &keyedLock{}
		l.locks[key] = lock
	}
	lock.holders++
	l.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		l.mu.Lock()
		lock.holders--
		if lock.holders == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

func (l *KeyedLocks[K]) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
