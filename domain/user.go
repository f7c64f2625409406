package domain

import "time"

type UserID int64

// DefaultColor is assigned to every new user until a profile update.
const DefaultColor = "#000000"

type User struct {
	ID           UserID
	Username     string
	Color        string
	PasswordHash string
	CreatedAt    time.Time
}

// Sender is the public projection of a user attached to messages.
type Sender struct {
	ID       UserID
	Username string
	Color    string
}

func (u User) AsSender() Sender {
	return Sender{ID: u.ID, Username: u.Username, Color: u.Color}
}
