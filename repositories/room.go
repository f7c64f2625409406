//go:generate go run go.uber.org/mock/mockgen -source=room.go -destination=../mocks/mock_room_repository.go -package=mocks
package repositories

import (
	"cmp"
	"fmt"
	"log/slog"
	"roomchat/domain"
	"roomchat/errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

// IRoomRepository is the room directory: room identity, privacy flag and
// membership set. Membership only grows.
type IRoomRepository interface {
	CreateRoom(rawName string, creator domain.UserID, isPrivate bool) (domain.Room, error)
	GetRoom(id domain.RoomID) (domain.Room, error)
	ListRoomsVisibleTo(userID domain.UserID) ([]domain.Room, error)
	AddMember(roomID domain.RoomID, userID domain.UserID) (domain.Room, error)
}

type RoomRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	log *slog.Logger
}

func NewRoomRepository(db *badger.DB, log *slog.Logger) (*RoomRepository, error) {
	seq, err := db.GetSequence([]byte(roomSequence), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("room sequence: %w", err)
	}
	return &RoomRepository{db: db, seq: seq, log: log}, nil
}

func (r *RoomRepository) Close() error {
	return r.seq.Release()
}

type roomRecord struct {
	ID        int64   `cbor:"id"`
	Name      string  `cbor:"name"`
	IsPrivate bool    `cbor:"is_private"`
	CreatedAt int64   `cbor:"created_at"`
	Members   []int64 `cbor:"members"`
}

// CreateRoom canonicalizes rawName and persists a room whose only member is
// its creator. Canonical names are not unique.
func (r *RoomRepository) CreateRoom(rawName string, creator domain.UserID, isPrivate bool) (domain.Room, error) {
	id, err := nextID(r.seq)
	if err != nil {
		return domain.Room{}, errors.Storage(err)
	}
	room := domain.Room{
		ID:        domain.RoomID(id),
		Name:      domain.CanonicalRoomName(rawName),
		IsPrivate: isPrivate,
		CreatedAt: time.Now().UTC(),
		Members:   []domain.UserID{creator},
	}
	if err = r.db.Update(func(txn *badger.Txn) error {
		return putRoom(txn, room)
	}); err != nil {
		return domain.Room{}, errors.Storage(err)
	}
	r.log.Debug("Room created", "room_id", room.ID, "name", room.Name, "private", isPrivate)
	return room, nil
}

func (r *RoomRepository) GetRoom(id domain.RoomID) (domain.Room, error) {
	var room domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		room, err = getRoom(txn, id)
		return err
	})
	if err != nil {
		return domain.Room{}, errors.Storage(err)
	}
	return room, nil
}

// ListRoomsVisibleTo returns every public room and every private room
// userID belongs to, oldest first.
func (r *RoomRepository) ListRoomsVisibleTo(userID domain.UserID) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(roomPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record roomRecord
			if err := it.Item().Value(func(val []byte) error {
				return unmarshal(val, &record)
			}); err != nil {
				return err
			}
			rooms = append(rooms, toRoom(record))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Storage(err)
	}

	visible := lo.Filter(rooms, func(room domain.Room, _ int) bool {
		return !room.IsPrivate || room.HasMember(userID)
	})
	slices.SortStableFunc(visible, func(a, b domain.Room) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return visible, nil
}

// AddMember appends userID to the membership set.
// Adding a present member is ErrAlreadyMember, not a no-op.
func (r *RoomRepository) AddMember(roomID domain.RoomID, userID domain.UserID) (domain.Room, error) {
	var room domain.Room
	err := r.db.Update(func(txn *badger.Txn) error {
		var err error
		room, err = getRoom(txn, roomID)
		if err != nil {
			return err
		}
		if room.HasMember(userID) {
			return fmt.Errorf("user %d in room %d: %w", userID, roomID, errors.ErrAlreadyMember)
		}
		room.Members = append(room.Members, userID)
		return putRoom(txn, room)
	})
	if err != nil {
		return domain.Room{}, errors.Storage(err)
	}
	r.log.Debug("Member added", "room_id", roomID, "user_id", userID)
	return room, nil
}

func getRoom(txn *badger.Txn, id domain.RoomID) (domain.Room, error) {
	item, err := txn.Get(roomKey(id))
	if err == badger.ErrKeyNotFound {
		return domain.Room{}, fmt.Errorf("room %d: %w", id, errors.ErrNotFound)
	}
	if err != nil {
		return domain.Room{}, err
	}
	var record roomRecord
	if err := item.Value(func(val []byte) error {
		return unmarshal(val, &record)
	}); err != nil {
		return domain.Room{}, err
	}
	return toRoom(record), nil
}

func putRoom(txn *badger.Txn, room domain.Room) error {
	data, err := marshal(fromRoom(room))
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return txn.Set(roomKey(room.ID), data)
}

func fromRoom(room domain.Room) roomRecord {
	return roomRecord{
		ID:        int64(room.ID),
		Name:      room.Name,
		IsPrivate: room.IsPrivate,
		CreatedAt: room.CreatedAt.UnixNano(),
		Members: lo.Map(room.Members, func(id domain.UserID, _ int) int64 {
			return int64(id)
		}),
	}
}

func toRoom(record roomRecord) domain.Room {
	return domain.Room{
		ID:        domain.RoomID(record.ID),
		Name:      record.Name,
		IsPrivate: record.IsPrivate,
		CreatedAt: time.Unix(0, record.CreatedAt).UTC(),
		Members: lo.Map(record.Members, func(id int64, _ int) domain.UserID {
			return domain.UserID(id)
		}),
	}
}
