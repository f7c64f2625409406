//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"roomchat/domain"
	"roomchat/errors"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

// DefaultHistoryLimit is the size of the history window sent on join.
const DefaultHistoryLimit = 50

// IMessageRepository is the append-only message log of every room.
type IMessageRepository interface {
	Append(content string, senderID domain.UserID, roomID domain.RoomID) (domain.Message, error)
	Recent(roomID domain.RoomID, limit int) ([]domain.Message, error)
	GetByKeys(keys []string) ([]domain.Message, error)
}

type MessageRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	log *slog.Logger
	now func() time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte(messageSequence), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &MessageRepository{db: db, seq: seq, log: log, now: time.Now}, nil
}

// WithClock replaces the wall clock used to stamp messages.
func (m *MessageRepository) WithClock(now func() time.Time) *MessageRepository {
	m.now = now
	return m
}

func (m *MessageRepository) Close() error {
	return m.seq.Release()
}

type messageRecord struct {
	ID        int64  `cbor:"id"`
	Content   string `cbor:"content"`
	SenderID  int64  `cbor:"sender_id"`
	RoomID    int64  `cbor:"room_id"`
	CreatedAt int64  `cbor:"created_at"`
}

// Append stores a message and returns it enriched with the sender's current
// profile.
//
// The key is formatted as "msg:{room}:{timestamp}:{id}" so a prefix scan
// returns a room's messages in order. The timestamp is never lower than the
// one of the room's latest message, even if the wall clock moved backwards.
// Appends to the same room must be serialized by the caller.
func (m *MessageRepository) Append(content string, senderID domain.UserID, roomID domain.RoomID) (domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Message{}, fmt.Errorf("%w: message is empty", errors.ErrInvalidContent)
	}

	var sender domain.User
	var lastAt int64
	err := m.db.View(func(txn *badger.Txn) error {
		if _, err := getRoom(txn, roomID); err != nil {
			return err
		}
		var err error
		if sender, err = getUser(txn, senderID); err != nil {
			return err
		}
		lastAt, err = latestTimestamp(txn, roomID)
		return err
	})
	if err != nil {
		return domain.Message{}, errors.Storage(err)
	}

	id, err := nextID(m.seq)
	if err != nil {
		return domain.Message{}, errors.Storage(err)
	}
	at := max(m.now().UTC().UnixNano(), lastAt)
	record := messageRecord{
		ID:        id,
		Content:   content,
		SenderID:  int64(senderID),
		RoomID:    int64(roomID),
		CreatedAt: at,
	}
	data, err := marshal(record)
	if err != nil {
		return domain.Message{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(roomID, at, domain.MessageID(id)), data)
	})
	if err != nil {
		m.log.Error("Message append failed", "room_id", roomID, "user_id", senderID, "error", err)
		return domain.Message{}, errors.Storage(err)
	}

	message := toMessage(record)
	message.Sender = sender.AsSender()
	return message, nil
}

// Recent returns at most limit messages of the room, oldest first.
// Senders are resolved at read time: a color change recolors history.
func (m *MessageRepository) Recent(roomID domain.RoomID, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		if _, err := getRoom(txn, roomID); err != nil {
			return err
		}

		prefix := roomMessagesPrefix(roomID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Start after the newest possible key, then walk back in time
		seekKey := append(slices.Clone(prefix), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if len(messages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", limit))
				break
			}
			var record messageRecord
			if err := it.Item().Value(func(val []byte) error {
				return unmarshal(val, &record)
			}); err != nil {
				return err
			}
			messages = append(messages, toMessage(record))
		}

		return resolveSenders(txn, messages)
	})
	if err != nil {
		return nil, errors.Storage(err)
	}
	slices.Reverse(messages)
	return messages, nil
}

// GetByKeys loads messages by storage key, keeping the order of keys.
// Keys that no longer exist are skipped.
func (m *MessageRepository) GetByKeys(keys []string) ([]domain.Message, error) {
	messages := make([]domain.Message, 0, len(keys))
	err := m.db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			item, err := txn.Get([]byte(key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				m.log.Debug("Indexed message not found", "key", key)
				continue
			}
			if err != nil {
				return err
			}
			var record messageRecord
			if err := item.Value(func(val []byte) error {
				return unmarshal(val, &record)
			}); err != nil {
				return err
			}
			messages = append(messages, toMessage(record))
		}
		return resolveSenders(txn, messages)
	})
	if err != nil {
		return nil, errors.Storage(err)
	}
	return messages, nil
}

// resolveSenders attaches the current profile of each sender. A deleted
// sender keeps only its id.
func resolveSenders(txn *badger.Txn, messages []domain.Message) error {
	senders := make(map[domain.UserID]domain.Sender)
	for _, senderID := range lo.Uniq(lo.Map(messages, func(msg domain.Message, _ int) domain.UserID {
		return msg.SenderID
	})) {
		user, err := getUser(txn, senderID)
		if errors.Is(err, errors.ErrNotFound) {
			senders[senderID] = domain.Sender{ID: senderID}
			continue
		}
		if err != nil {
			return err
		}
		senders[senderID] = user.AsSender()
	}
	for i := range messages {
		messages[i].Sender = senders[messages[i].SenderID]
	}
	return nil
}

// MessageKey is the storage key of a message, also used as its search document id.
func MessageKey(message domain.Message) string {
	return string(messageKey(message.RoomID, message.CreatedAt.UnixNano(), message.ID))
}

// latestTimestamp returns the timestamp of the newest message of the room,
// or 0 when the room has none.
func latestTimestamp(txn *badger.Txn, roomID domain.RoomID) (int64, error) {
	prefix := roomMessagesPrefix(roomID)
	options := badger.DefaultIteratorOptions
	options.Reverse = true
	options.PrefetchValues = false
	it := txn.NewIterator(options)
	defer it.Close()

	it.Seek(append(slices.Clone(prefix), []byte("9999999999999999999")...))
	if !it.ValidForPrefix(prefix) {
		return 0, nil
	}
	return messageTimestamp(it.Item().Key())
}

func toMessage(record messageRecord) domain.Message {
	return domain.Message{
		ID:        domain.MessageID(record.ID),
		Content:   record.Content,
		SenderID:  domain.UserID(record.SenderID),
		RoomID:    domain.RoomID(record.RoomID),
		CreatedAt: time.Unix(0, record.CreatedAt).UTC(),
	}
}
