package repositories

import (
	"fmt"
	"roomchat/domain"

	"github.com/dgraph-io/badger/v4"
)

// Snapshot is a raw dump of the store, used by offline tooling.
// Messages keep their key order: grouped by room, oldest first.
type Snapshot struct {
	Users    []domain.User
	Rooms    []domain.Room
	Messages []domain.Message
}

// ReadSnapshot decodes every record without leasing ids, so it works on a
// database opened read-only. Message senders are resolved like Recent does.
func ReadSnapshot(db *badger.DB) (Snapshot, error) {
	var snapshot Snapshot
	err := db.View(func(txn *badger.Txn) error {
		if err := scan(txn, userPrefix, func(val []byte) error {
			var record userRecord
			if err := unmarshal(val, &record); err != nil {
				return err
			}
			snapshot.Users = append(snapshot.Users, toUser(record))
			return nil
		}); err != nil {
			return fmt.Errorf("users: %w", err)
		}

		if err := scan(txn, roomPrefix, func(val []byte) error {
			var record roomRecord
			if err := unmarshal(val, &record); err != nil {
				return err
			}
			snapshot.Rooms = append(snapshot.Rooms, toRoom(record))
			return nil
		}); err != nil {
			return fmt.Errorf("rooms: %w", err)
		}

		return scan(txn, messagePrefix, func(val []byte) error {
			var record messageRecord
			if err := unmarshal(val, &record); err != nil {
				return err
			}
			snapshot.Messages = append(snapshot.Messages, toMessage(record))
			return nil
		})
	})
	if err != nil {
		return Snapshot{}, err
	}

	senders := make(map[domain.UserID]domain.Sender, len(snapshot.Users))
	for _, user := range snapshot.Users {
		senders[user.ID] = user.AsSender()
	}
	for i, message := range snapshot.Messages {
		sender, ok := senders[message.SenderID]
		if !ok {
			sender = domain.Sender{ID: message.SenderID}
		}
		snapshot.Messages[i].Sender = sender
	}
	return snapshot, nil
}

func scan(txn *badger.Txn, prefix string, fn func(val []byte) error) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return fmt.Errorf("key %q: %w", it.Item().Key(), err)
		}
	}
	return nil
}
