package repositories

import (
	"context"
	"log/slog"
	"math"
	"roomchat/domain"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newIndex(t *testing.T, pageSize int) *MessageIndex {
	t.Helper()
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = writer.Close()
	})
	return NewMessageIndex(writer, logs.GetLoggerFromLevel(slog.LevelDebug), pageSize)
}

// tickingClock makes every append one second later than the previous one.
func tickingClock(messages *MessageRepository) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	step := 0
	messages.WithClock(func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	})
}

func TestMessageIndex_SearchPaginated(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	index := newIndex(t, 10)
	tickingClock(f.messages)

	// Given messages in two rooms
	alice, err := f.users.CreateUser("alice", "hash")
	req.NoError(err)
	general, err := f.rooms.CreateRoom("general", alice.ID, false)
	req.NoError(err)
	random, err := f.rooms.CreateRoom("random", alice.ID, false)
	req.NoError(err)
	first, err := f.messages.Append("The Database is down", alice.ID, general.ID)
	req.NoError(err)
	second, err := f.messages.Append("database is back", alice.ID, general.ID)
	req.NoError(err)
	other, err := f.messages.Append("database in random", alice.ID, random.ID)
	req.NoError(err)
	_, err = f.messages.Append("lunch?", alice.ID, general.ID)
	req.NoError(err)
	req.NoError(index.Index(first, second, other))

	// When searching in general, whatever the case
	keys, total, err := index.SearchPaginated(ctx, "DATABASE", general.ID, 0)

	// Then only general's matches are returned, newest first
	req.NoError(err)
	req.Equal(uint64(2), total)
	req.Equal([]string{MessageKey(second), MessageKey(first)}, keys)

	// And the keys resolve to the stored messages
	messages, err := f.messages.GetByKeys(keys)
	req.NoError(err)
	req.Len(messages, 2)
	req.Equal("database is back", messages[0].Content)
	req.Equal("alice", messages[0].Sender.Username)

	// And every term must match
	keys, total, err = index.SearchPaginated(ctx, "database down", general.ID, 0)
	req.NoError(err)
	req.Equal(uint64(1), total)
	req.Equal([]string{MessageKey(first)}, keys)
}

func TestMessageIndex_Pages(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	index := newIndex(t, 2)
	tickingClock(f.messages)

	alice, err := f.users.CreateUser("alice", "hash")
	req.NoError(err)
	room, err := f.rooms.CreateRoom("general", alice.ID, false)
	req.NoError(err)
	for range 5 {
		message, err := f.messages.Append("ping", alice.ID, room.ID)
		req.NoError(err)
		req.NoError(index.Index(message))
	}

	// When reading the last page
	keys, total, err := index.SearchPaginated(ctx, "ping", room.ID, 2)

	// Then it holds the oldest message only
	req.NoError(err)
	req.Equal(uint64(5), total)
	req.Len(keys, 1)
}

func TestMessageIndex_Clamps_Oversized_Page(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	index := newIndex(t, 20)

	// Given a single indexed message
	alice, err := f.users.CreateUser("alice", "hash")
	req.NoError(err)
	room, err := f.rooms.CreateRoom("general", alice.ID, false)
	req.NoError(err)
	message, err := f.messages.Append("hello world", alice.ID, room.ID)
	req.NoError(err)
	req.NoError(index.Index(message))

	for _, page := range []int{domain.MaxSearchPage + 1, 461168601842738791, 4611686018427387903, math.MaxInt} {
		// When asking for a page far past the end
		keys, total, err := index.SearchPaginated(ctx, "hello", room.ID, page)

		// Then the page is empty and the total still counts the match
		req.NoError(err)
		req.Empty(keys)
		req.Equal(uint64(1), total)
	}
}

func TestMessageIndex_RebuildIfEmpty(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	index := newIndex(t, 10)

	// Given messages stored before the index existed
	alice, err := f.users.CreateUser("alice", "hash")
	req.NoError(err)
	room, err := f.rooms.CreateRoom("general", alice.ID, false)
	req.NoError(err)
	_, err = f.messages.Append("hello world", alice.ID, room.ID)
	req.NoError(err)

	// When the index is rebuilt
	indexed, err := index.RebuildIfEmpty(f.db)
	req.NoError(err)
	req.Equal(1, indexed)

	// Then the message is searchable and a second rebuild is a no-op
	_, total, err := index.SearchPaginated(ctx, "hello", room.ID, 0)
	req.NoError(err)
	req.Equal(uint64(1), total)
	indexed, err = index.RebuildIfEmpty(f.db)
	req.NoError(err)
	req.Zero(indexed)
}
