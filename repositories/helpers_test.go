package repositories

import (
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db       *badger.DB
	users    *UserRepository
	rooms    *RoomRepository
	messages *MessageRepository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	users, err := NewUserRepository(db, log)
	req.NoError(err)
	rooms, err := NewRoomRepository(db, log)
	req.NoError(err)
	messages, err := NewMessageRepository(db, log)
	req.NoError(err)

	t.Cleanup(func() {
		_ = users.Close()
		_ = rooms.Close()
		_ = messages.Close()
		_ = db.Close()
	})
	return fixture{db: db, users: users, rooms: rooms, messages: messages}
}
