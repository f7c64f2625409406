package repositories

import (
	"fmt"
	"roomchat/domain"
	"roomchat/errors"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func Test_Append_And_Recent(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// Given alice and a public room
	alice, err := f.users.CreateUser("alice", "hash")
	req.NoError(err)
	room, err := f.rooms.CreateRoom("general", alice.ID, false)
	req.NoError(err)

	// When alice posts a message
	message, err := f.messages.Append("hi", alice.ID, room.ID)
	req.NoError(err)

	// Then the stored message is enriched with the sender profile
	req.Equal("hi", message.Content)
	req.Equal(alice.ID, message.SenderID)
	req.Equal(room.ID, message.RoomID)
	req.Equal(domain.Sender{ID: alice.ID, Username: "alice", Color: domain.DefaultColor}, message.Sender)

	// And it is part of the room history
	recent, err := f.messages.Recent(room.ID, DefaultHistoryLimit)
	req.NoError(err)
	req.Equal([]domain.Message{message}, recent)
}

func Test_Append_Rejects_Blank_Content(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	alice, err := f.users.CreateUser("alice", "hash")
	req.NoError(err)
	room, err := f.rooms.CreateRoom("general", alice.ID, false)
	req.NoError(err)

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err = f.messages.Append(content, alice.ID, room.ID)
		req.ErrorIs(err, errors.ErrInvalidContent)
	}

	recent, err := f.messages.Recent(room.ID, DefaultHistoryLimit)
	req.NoError(err)
	req.Empty(recent)
}

func Test_Append_Unknown_Room_Or_Sender(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	alice, err := f.users.CreateUser("alice", "hash")
	req.NoError(err)
	room, err := f.rooms.CreateRoom("general", alice.ID, false)
	req.NoError(err)

	_, err = f.messages.Append("hi", alice.ID, 42)
	req.ErrorIs(err, errors.ErrNotFound)

	_, err = f.messages.Append("hi", 42, room.ID)
	req.ErrorIs(err, errors.ErrNotFound)

	_, err = f.messages.Recent(42, DefaultHistoryLimit)
	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_Recent_Limit_Keeps_Newest_In_Ascending_Order(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	alice, err := f.users.CreateUser("alice", "hash")
	req.NoError(err)
	room, err := f.rooms.CreateRoom("general", alice.ID, false)
	req.NoError(err)

	// Given five messages
	for i := range 5 {
		_, err = f.messages.Append(fmt.Sprintf("message %d", i), alice.ID, room.ID)
		req.NoError(err)
	}

	// When only the last two are requested
	recent, err := f.messages.Recent(room.ID, 2)
	req.NoError(err)

	// Then the two newest come back oldest first
	req.Equal([]string{"message 3", "message 4"}, lo.Map(recent, func(m domain.Message, _ int) string {
		return m.Content
	}))
}

func Test_Recent_Is_Scoped_To_Room(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	alice, err := f.users.CreateUser("alice", "hash")
	req.NoError(err)
	general, err := f.rooms.CreateRoom("general", alice.ID, false)
	req.NoError(err)
	random, err := f.rooms.CreateRoom("random", alice.ID, false)
	req.NoError(err)

	_, err = f.messages.Append("in general", alice.ID, general.ID)
	req.NoError(err)
	_, err = f.messages.Append("in random", alice.ID, random.ID)
	req.NoError(err)

	recent, err := f.messages.Recent(general.ID, DefaultHistoryLimit)
	req.NoError(err)
	req.Len(recent, 1)
	req.Equal("in general", recent[0].Content)
}

func Test_Append_Timestamps_Are_Monotonic_Per_Room(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	alice, err := f.users.CreateUser("alice", "hash")
	req.NoError(err)
	room, err := f.rooms.CreateRoom("general", alice.ID, false)
	req.NoError(err)

	// Given a clock that jumps one hour back after the first message
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ticks := []time.Time{start, start.Add(-time.Hour), start.Add(time.Minute)}
	call := 0
	f.messages.WithClock(func() time.Time {
		now := ticks[call]
		call++
		return now
	})

	// When three messages are appended
	var appended []domain.Message
	for _, content := range []string{"first", "second", "third"} {
		message, err := f.messages.Append(content, alice.ID, room.ID)
		req.NoError(err)
		appended = append(appended, message)
	}

	// Then timestamps never go backwards
	req.Equal(start, appended[0].CreatedAt)
	req.Equal(start, appended[1].CreatedAt)
	req.Equal(start.Add(time.Minute), appended[2].CreatedAt)

	// And the history keeps the append order
	recent, err := f.messages.Recent(room.ID, DefaultHistoryLimit)
	req.NoError(err)
	req.Equal(appended, recent)
}

func Test_Recent_Reflects_Current_Sender_Color(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// Given alice posted a message with the default color
	alice, err := f.users.CreateUser("alice", "hash")
	req.NoError(err)
	room, err := f.rooms.CreateRoom("general", alice.ID, false)
	req.NoError(err)
	_, err = f.messages.Append("hi", alice.ID, room.ID)
	req.NoError(err)

	// When the sender changes color
	_, err = f.users.UpdateColor(alice.ID, "#ff0000")
	req.NoError(err)

	// Then history shows the new color
	recent, err := f.messages.Recent(room.ID, DefaultHistoryLimit)
	req.NoError(err)
	req.Len(recent, 1)
	req.Equal("#ff0000", recent[0].Sender.Color)
}
