package gateway

import (
	"encoding/json"
	"fmt"
	"roomchat/domain"
	"roomchat/domain/event"
	"time"

	"github.com/samber/lo"
)

// Inbound events.
const (
	inJoinRoom    = "joinRoom"
	inLeaveRoom   = "leaveRoom"
	inSendMessage = "sendMessage"
	inGetMessages = "getMessages"
	inTyping      = "typing"
	inChangeColor = "changeColor"

	outError = "error"
)

// Frame is the envelope of every WebSocket message, in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type sendPayload struct {
	Content string `json:"content"`
	RoomID  int64  `json:"roomId"`
}

type typingPayload struct {
	RoomID   int64 `json:"roomId"`
	IsTyping bool  `json:"isTyping"`
}

type colorPayload struct {
	UserID int64  `json:"userId"`
	Color  string `json:"color"`
}

type SenderDTO struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Color    string `json:"color"`
}

type MessageDTO struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	SenderID  int64     `json:"senderId"`
	RoomID    int64     `json:"roomId"`
	CreatedAt time.Time `json:"createdAt"`
	Sender    SenderDTO `json:"sender"`
}

type TypingDTO struct {
	RoomID   int64  `json:"roomId"`
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type ColorDTO struct {
	UserID int64  `json:"userId"`
	Color  string `json:"color"`
}

type ErrorDTO struct {
	Event   string `json:"event,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RoomDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsPrivate bool      `json:"isPrivate"`
	CreatedAt time.Time `json:"createdAt"`
	Members   []int64   `json:"members"`
}

type UserDTO struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Color    string `json:"color"`
}

func toMessageDTO(m domain.Message) MessageDTO {
	return MessageDTO{
		ID:        int64(m.ID),
		Content:   m.Content,
		SenderID:  int64(m.SenderID),
		RoomID:    int64(m.RoomID),
		CreatedAt: m.CreatedAt,
		Sender: SenderDTO{
			ID:       int64(m.Sender.ID),
			Username: m.Sender.Username,
			Color:    m.Sender.Color,
		},
	}
}

func toRoomDTO(r domain.Room) RoomDTO {
	return RoomDTO{
		ID:        int64(r.ID),
		Name:      r.Name,
		IsPrivate: r.IsPrivate,
		CreatedAt: r.CreatedAt,
		Members:   lo.Map(r.Members, func(id domain.UserID, _ int) int64 { return int64(id) }),
	}
}

func toUserDTO(u domain.User) UserDTO {
	return UserDTO{ID: int64(u.ID), Username: u.Username, Color: u.Color}
}

// toFrame renders a domain event the way clients expect it.
// allMessages carries a bare array of messages, oldest first.
func toFrame(e event.DomainEvent) (Frame, error) {
	var data any
	switch evt := e.(type) {
	case event.MessagePosted:
		data = toMessageDTO(evt.Message)
	case event.HistoryLoaded:
		data = lo.Map(evt.Messages, func(m domain.Message, _ int) MessageDTO { return toMessageDTO(m) })
	case event.UserTyping:
		data = TypingDTO{
			RoomID:   int64(evt.Room),
			UserID:   int64(evt.UserID),
			Username: evt.Username,
			IsTyping: evt.IsTyping,
		}
	case event.ColorChanged:
		data = ColorDTO{UserID: int64(evt.UserID), Color: evt.Color}
	default:
		return Frame{}, fmt.Errorf("no frame for event %q", e.Name())
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: e.Name(), Data: raw}, nil
}
