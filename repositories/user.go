//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"roomchat/domain"
	"roomchat/errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type IUserRepository interface {
	CreateUser(username, passwordHash string) (domain.User, error)
	GetUser(id domain.UserID) (domain.User, error)
	GetUserByUsername(username string) (domain.User, error)
	UpdateColor(id domain.UserID, color string) (domain.User, error)
}

type UserRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	log *slog.Logger
}

func NewUserRepository(db *badger.DB, log *slog.Logger) (*UserRepository, error) {
	seq, err := db.GetSequence([]byte(userSequence), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("user sequence: %w", err)
	}
	return &UserRepository{db: db, seq: seq, log: log}, nil
}

// Close returns the unused part of the id lease to badger.
func (u *UserRepository) Close() error {
	return u.seq.Release()
}

type userRecord struct {
	ID           int64  `cbor:"id"`
	Username     string `cbor:"username"`
	Color        string `cbor:"color"`
	PasswordHash string `cbor:"password_hash"`
	CreatedAt    int64  `cbor:"created_at"`
}

// CreateUser persists a new user with the default color.
// The username index and the record are written in the same transaction,
// a taken username yields ErrUserAlreadyExists.
func (u *UserRepository) CreateUser(username, passwordHash string) (domain.User, error) {
	id, err := nextID(u.seq)
	if err != nil {
		return domain.User{}, errors.Storage(err)
	}
	user := domain.User{
		ID:           domain.UserID(id),
		Username:     username,
		Color:        domain.DefaultColor,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	data, err := marshal(fromUser(user))
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal failed: %w", err)
	}
	index, err := marshal(id)
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(usernameKey(username)); err == nil {
			return errors.ErrUserAlreadyExists
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		if err := txn.Set(usernameKey(username), index); err != nil {
			return err
		}
		return txn.Set(userKey(user.ID), data)
	})
	if errors.Is(err, badger.ErrConflict) {
		// A concurrent registration committed the same username first.
		return domain.User{}, errors.ErrUserAlreadyExists
	}
	if err != nil {
		return domain.User{}, errors.Storage(err)
	}
	return user, nil
}

func (u *UserRepository) GetUser(id domain.UserID) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = getUser(txn, id)
		return err
	})
	if err != nil {
		return domain.User{}, errors.Storage(err)
	}
	return user, nil
}

func (u *UserRepository) GetUserByUsername(username string) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(usernameKey(username))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("user %q: %w", username, errors.ErrNotFound)
		}
		if err != nil {
			return err
		}
		var id int64
		if err := item.Value(func(val []byte) error {
			return unmarshal(val, &id)
		}); err != nil {
			return err
		}
		user, err = getUser(txn, domain.UserID(id))
		return err
	})
	if err != nil {
		return domain.User{}, errors.Storage(err)
	}
	return user, nil
}

// UpdateColor stores the new display color and returns the updated user.
func (u *UserRepository) UpdateColor(id domain.UserID, color string) (domain.User, error) {
	var user domain.User
	err := u.db.Update(func(txn *badger.Txn) error {
		var err error
		user, err = getUser(txn, id)
		if err != nil {
			return err
		}
		user.Color = color
		data, err := marshal(fromUser(user))
		if err != nil {
			return err
		}
		return txn.Set(userKey(id), data)
	})
	if err != nil {
		return domain.User{}, errors.Storage(err)
	}
	u.log.Debug("User color updated", "user_id", id, "color", color)
	return user, nil
}

func getUser(txn *badger.Txn, id domain.UserID) (domain.User, error) {
	item, err := txn.Get(userKey(id))
	if err == badger.ErrKeyNotFound {
		return domain.User{}, fmt.Errorf("user %d: %w", id, errors.ErrNotFound)
	}
	if err != nil {
		return domain.User{}, err
	}
	var record userRecord
	if err := item.Value(func(val []byte) error {
		return unmarshal(val, &record)
	}); err != nil {
		return domain.User{}, err
	}
	return toUser(record), nil
}

func fromUser(user domain.User) userRecord {
	return userRecord{
		ID:           int64(user.ID),
		Username:     user.Username,
		Color:        user.Color,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt.UnixNano(),
	}
}

func toUser(record userRecord) domain.User {
	return domain.User{
		ID:           domain.UserID(record.ID),
		Username:     record.Username,
		Color:        record.Color,
		PasswordHash: record.PasswordHash,
		CreatedAt:    time.Unix(0, record.CreatedAt).UTC(),
	}
}
