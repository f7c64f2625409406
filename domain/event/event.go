package event

import (
	"roomchat/domain"
	"time"
)

// Names of the events as they appear on the wire.
const (
	NameMessagePosted = "newMessage"
	NameHistoryLoaded = "allMessages"
	NameUserTyping    = "userTyping"
	NameColorChanged  = "colorChange"
)

// DomainEvent is anything the broadcaster can deliver to a connection.
type DomainEvent interface {
	Name() string
	OccurredAt() time.Time
}

// MessagePosted is emitted to a room once a message is durably stored.
type MessagePosted struct {
	Message domain.Message
}

func (m MessagePosted) Name() string          { return NameMessagePosted }
func (m MessagePosted) OccurredAt() time.Time { return m.Message.CreatedAt }

// HistoryLoaded carries the recent messages of a room to a single connection.
type HistoryLoaded struct {
	Room     domain.RoomID
	Messages []domain.Message
	At       time.Time
}

func (h HistoryLoaded) Name() string          { return NameHistoryLoaded }
func (h HistoryLoaded) OccurredAt() time.Time { return h.At }

// UserTyping is ephemeral and never persisted.
type UserTyping struct {
	Room     domain.RoomID
	UserID   domain.UserID
	Username string
	IsTyping bool
	At       time.Time
}

func (u UserTyping) Name() string          { return NameUserTyping }
func (u UserTyping) OccurredAt() time.Time { return u.At }

// ColorChanged is broadcast to every connection, whatever room it joined.
type ColorChanged struct {
	UserID domain.UserID
	Color  string
	At     time.Time
}

func (c ColorChanged) Name() string          { return NameColorChanged }
func (c ColorChanged) OccurredAt() time.Time { return c.At }
