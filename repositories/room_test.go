package repositories

import (
	"roomchat/domain"
	"roomchat/errors"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestRoomRepository_CreateRoom(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// When a room is created with a raw name
	room, err := f.rooms.CreateRoom("Général Café", 1, false)
	req.NoError(err)

	// Then its name is canonical and the creator is the only member
	req.Equal(domain.RoomID(1), room.ID)
	req.Equal("general-cafe", room.Name)
	req.False(room.IsPrivate)
	req.Equal([]domain.UserID{1}, room.Members)

	stored, err := f.rooms.GetRoom(room.ID)
	req.NoError(err)
	req.Equal(room, stored)
}

func TestRoomRepository_CreateRoom_Allows_Duplicate_Names(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	first, err := f.rooms.CreateRoom("general", 1, false)
	req.NoError(err)
	second, err := f.rooms.CreateRoom("General", 2, false)
	req.NoError(err)

	req.NotEqual(first.ID, second.ID)
	req.Equal(first.Name, second.Name)
}

func TestRoomRepository_GetRoom_Unknown(t *testing.T) {
	f := newFixture(t)

	_, err := f.rooms.GetRoom(99)

	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestRoomRepository_ListRoomsVisibleTo(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// Given a public room, a private room of user 1 and a private room of users 2 and 3
	general, err := f.rooms.CreateRoom("general", 1, false)
	req.NoError(err)
	mine, err := f.rooms.CreateRoom("mine", 1, true)
	req.NoError(err)
	theirs, err := f.rooms.CreateRoom("theirs", 2, true)
	req.NoError(err)
	_, err = f.rooms.AddMember(theirs.ID, 3)
	req.NoError(err)

	ids := func(rooms []domain.Room) []domain.RoomID {
		return lo.Map(rooms, func(r domain.Room, _ int) domain.RoomID { return r.ID })
	}

	// Then user 1 sees the public room and its own private room, oldest first
	visible, err := f.rooms.ListRoomsVisibleTo(1)
	req.NoError(err)
	req.Equal([]domain.RoomID{general.ID, mine.ID}, ids(visible))

	// And user 3 sees the public room and the room it was added to
	visible, err = f.rooms.ListRoomsVisibleTo(3)
	req.NoError(err)
	req.Equal([]domain.RoomID{general.ID, theirs.ID}, ids(visible))

	// And a stranger only sees the public room
	visible, err = f.rooms.ListRoomsVisibleTo(9)
	req.NoError(err)
	req.Equal([]domain.RoomID{general.ID}, ids(visible))
}

func TestRoomRepository_AddMember(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// Given a private room created by user 1
	room, err := f.rooms.CreateRoom("secret", 1, true)
	req.NoError(err)

	// When user 3 is added
	updated, err := f.rooms.AddMember(room.ID, 3)
	req.NoError(err)

	// Then the membership grew
	req.Equal([]domain.UserID{1, 3}, updated.Members)

	// And adding user 3 again is a conflict that leaves the room unchanged
	_, err = f.rooms.AddMember(room.ID, 3)
	req.ErrorIs(err, errors.ErrAlreadyMember)
	stored, err := f.rooms.GetRoom(room.ID)
	req.NoError(err)
	req.Equal([]domain.UserID{1, 3}, stored.Members)

	// And the creator is already a member
	_, err = f.rooms.AddMember(room.ID, 1)
	req.ErrorIs(err, errors.ErrAlreadyMember)

	// And an unknown room is not found
	_, err = f.rooms.AddMember(42, 3)
	req.ErrorIs(err, errors.ErrNotFound)
}
