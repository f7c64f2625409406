// Package domain contains core concepts of the chat system.
// This file defines Message records and their enriched sender view.
// Messages are immutable once appended to a room's log.
package domain

import (
	"time"
)

type MessageID int64

// Message represents an immutable chat message.
// Sender is resolved from the user profile when the message is read,
// so it always carries the sender's current username and color.
type Message struct {
	ID        MessageID
	Content   string
	SenderID  UserID
	RoomID    RoomID
	CreatedAt time.Time
	Sender    Sender
}

// MaxSearchPage is the last page a search may ask for.
const MaxSearchPage = 10_000

// SearchPage is one page of search results, newest first.
type SearchPage struct {
	Messages []Message
	Total    uint64
	Page     int
}
