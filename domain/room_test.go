package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalRoomName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"general", "general"},
		{"General", "general"},
		{"Café Crème!", "cafe-creme-"},
		{"Ça va?", "ca-va-"},
		{"équipe 42", "equipe-42"},
		{"  spaced  ", "--spaced--"},
		{"naïve_room", "naive-room"},
		{"", ""},
		{"🚀", "-"},
		{"launch🚀day", "launch-day"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			require.Equal(t, tt.want, CanonicalRoomName(tt.raw))
		})
	}
}

func TestRoom_HasMember(t *testing.T) {
	req := require.New(t)

	// Given a room with members 1 and 2
	room := Room{ID: 1, Name: "secret", IsPrivate: true, Members: []UserID{1, 2}}

	// Then only those users are members
	req.True(room.HasMember(1))
	req.True(room.HasMember(2))
	req.False(room.HasMember(3))
}

func TestUser_AsSender(t *testing.T) {
	user := User{ID: 7, Username: "alice", Color: "#ff0000", PasswordHash: "secret"}

	require.Equal(t, Sender{ID: 7, Username: "alice", Color: "#ff0000"}, user.AsSender())
}
