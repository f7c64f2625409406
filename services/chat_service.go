package services

import (
	"context"
	"fmt"
	"log/slog"
	"roomchat/access"
	"roomchat/auth"
	"roomchat/contract"
	"roomchat/domain"
	"roomchat/domain/event"
	"roomchat/errors"
	"roomchat/moderation"
	"roomchat/repositories"
	"roomchat/runtime"
	"strings"
	"time"
)

type IChatService interface {
	Connect(userID domain.UserID, sink contract.EventSink) (domain.ConnectionID, error)
	Disconnect(connID domain.ConnectionID)
	Join(ctx context.Context, connID domain.ConnectionID, roomID domain.RoomID) ([]domain.Message, error)
	Leave(connID domain.ConnectionID, roomID domain.RoomID) error
	Send(ctx context.Context, connID domain.ConnectionID, content string, roomID domain.RoomID) (domain.Message, error)
	FetchHistory(ctx context.Context, connID domain.ConnectionID, roomID domain.RoomID) ([]domain.Message, error)
	SetTyping(ctx context.Context, connID domain.ConnectionID, roomID domain.RoomID, isTyping bool) error
	ChangeColor(ctx context.Context, connID domain.ConnectionID, userID domain.UserID, color string) (domain.User, error)
	AddMember(requesterID domain.UserID, roomID domain.RoomID, username string) (domain.Room, error)
	CreateRoom(name string, creatorID domain.UserID, isPrivate bool) (domain.Room, error)
	ListRooms(userID domain.UserID) ([]domain.Room, error)
	UpdateProfile(userID domain.UserID, color string) (domain.User, error)
	SearchMessages(ctx context.Context, userID domain.UserID, roomID domain.RoomID, terms string, page int) (domain.SearchPage, error)
}

type ChatConfig struct {
	HistoryLimit     int
	MaxContentLength int
}

// ChatService sequences every inbound chat operation across the room
// directory, the message log, the session registry and the broadcaster.
//
// Work touching a room (access decision, membership write, append, history
// snapshot) runs under that room's lock, so the broadcast order of a room
// is its append order and a joining connection sees every message exactly
// once, either in its history or as a live event.
type ChatService struct {
	log         *slog.Logger
	users       repositories.IUserRepository
	rooms       repositories.IRoomRepository
	messages    repositories.IMessageRepository
	index       repositories.IMessageIndex
	registry    contract.IRegistry
	broadcaster contract.IBroadcaster
	locks       *runtime.RoomLocks
	userLocks   *runtime.UserLocks
	config      ChatConfig
	filter      *moderation.Filter
	now         func() time.Time
}

func NewChatService(
	log *slog.Logger,
	users repositories.IUserRepository,
	rooms repositories.IRoomRepository,
	messages repositories.IMessageRepository,
	index repositories.IMessageIndex,
	registry contract.IRegistry,
	broadcaster contract.IBroadcaster,
	locks *runtime.RoomLocks,
	config ChatConfig,
) *ChatService {
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = repositories.DefaultHistoryLimit
	}
	return &ChatService{
		log:         log,
		users:       users,
		rooms:       rooms,
		messages:    messages,
		index:       index,
		registry:    registry,
		broadcaster: broadcaster,
		locks:       locks,
		userLocks:   runtime.NewUserLocks(),
		config:      config,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithFilter masks blacklisted words of every message before it is stored.
func (s *ChatService) WithFilter(filter *moderation.Filter) *ChatService {
	s.filter = filter
	return s
}

// Connect registers a session for an authenticated user.
func (s *ChatService) Connect(userID domain.UserID, sink contract.EventSink) (domain.ConnectionID, error) {
	user, err := s.users.GetUser(userID)
	if err != nil {
		return "", err
	}
	connID := s.registry.Register(user.ID, user.Username, sink)
	s.log.Info("Connection registered", "conn_id", connID, "user_id", user.ID)
	return connID, nil
}

// Disconnect drops the session and every room subscription it held.
func (s *ChatService) Disconnect(connID domain.ConnectionID) {
	if s.registry.Unregister(connID) {
		s.log.Info("Connection unregistered", "conn_id", connID)
	}
}

// Join subscribes the connection to the room and sends it the recent
// history. Joining a room twice is not an error.
func (s *ChatService) Join(ctx context.Context, connID domain.ConnectionID, roomID domain.RoomID) ([]domain.Message, error) {
	session, err := s.session(connID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(roomID)
	defer unlock()

	if _, err := s.joinableRoom(session, roomID); err != nil {
		return nil, err
	}

	// History is read before the registry is touched so that a storage
	// failure leaves the session as it was.
	history, err := s.messages.Recent(roomID, s.config.HistoryLimit)
	if err != nil {
		s.log.Error("History not loaded", "room_id", roomID, "error", err)
		return nil, err
	}
	if err := s.registry.Join(connID, roomID); err != nil {
		return nil, err
	}

	s.broadcaster.PublishToOne(ctx, connID, event.HistoryLoaded{Room: roomID, Messages: history, At: s.now()})
	s.log.Debug("Room joined", "conn_id", connID, "user_id", session.UserID, "room_id", roomID)
	return history, nil
}

// Leave only ends the subscription; room membership is unchanged.
func (s *ChatService) Leave(connID domain.ConnectionID, roomID domain.RoomID) error {
	return s.registry.Leave(connID, roomID)
}

// Send persists the message then broadcasts it to the room, sender
// included. Nothing is broadcast unless the append succeeded.
func (s *ChatService) Send(ctx context.Context, connID domain.ConnectionID, content string, roomID domain.RoomID) (domain.Message, error) {
	session, err := s.session(connID)
	if err != nil {
		return domain.Message{}, err
	}
	if s.config.MaxContentLength > 0 {
		if err := auth.ValidateContentLength(content, s.config.MaxContentLength); err != nil {
			return domain.Message{}, err
		}
	}

	unlock := s.locks.Lock(roomID)
	defer unlock()

	if _, err := s.joinableRoom(session, roomID); err != nil {
		return domain.Message{}, err
	}

	if censored, words := s.filter.Censor(content); len(words) > 0 {
		s.log.Info("Message censored", "room_id", roomID, "user_id", session.UserID,
			"words", len(words), "lang", moderation.Language(content))
		content = censored
	}

	message, err := s.messages.Append(content, session.UserID, roomID)
	if err != nil {
		if errors.Is(err, errors.ErrStorageFailure) {
			s.log.Error("Message not stored", "room_id", roomID, "user_id", session.UserID, "error", err)
		} else {
			s.log.Debug("Message rejected", "room_id", roomID, "user_id", session.UserID, "error", err)
		}
		return domain.Message{}, err
	}

	if err := s.index.Index(message); err != nil {
		s.log.Error("Message not indexed", "room_id", roomID, "message_id", message.ID, "error", err)
	}

	// The message is committed: the sender going away must not stop the fan-out.
	s.broadcaster.PublishToRoom(context.WithoutCancel(ctx), roomID, event.MessagePosted{Message: message})
	return message, nil
}

// FetchHistory resends the recent history to the requesting connection only.
func (s *ChatService) FetchHistory(ctx context.Context, connID domain.ConnectionID, roomID domain.RoomID) ([]domain.Message, error) {
	session, err := s.session(connID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(roomID)
	defer unlock()

	if _, err := s.joinableRoom(session, roomID); err != nil {
		return nil, err
	}
	history, err := s.messages.Recent(roomID, s.config.HistoryLimit)
	if err != nil {
		s.log.Error("History not loaded", "room_id", roomID, "error", err)
		return nil, err
	}

	s.broadcaster.PublishToOne(ctx, connID, event.HistoryLoaded{Room: roomID, Messages: history, At: s.now()})
	return history, nil
}

// SearchMessages looks up the room's messages containing every term.
// Only users allowed to join the room may search it.
func (s *ChatService) SearchMessages(ctx context.Context, userID domain.UserID, roomID domain.RoomID, terms string, page int) (domain.SearchPage, error) {
	terms = strings.TrimSpace(terms)
	if terms == "" {
		return domain.SearchPage{}, fmt.Errorf("%w: search terms are empty", errors.ErrInvalidContent)
	}
	if page < 0 || page > domain.MaxSearchPage {
		return domain.SearchPage{}, fmt.Errorf("%w: page must be between 0 and %d", errors.ErrInvalidContent, domain.MaxSearchPage)
	}
	room, err := s.rooms.GetRoom(roomID)
	if err != nil {
		return domain.SearchPage{}, err
	}
	if !access.CanJoin(room, userID) {
		return domain.SearchPage{}, fmt.Errorf("%w: room %d is private", errors.ErrForbidden, roomID)
	}

	keys, total, err := s.index.SearchPaginated(ctx, terms, roomID, page)
	if err != nil {
		s.log.Error("Search failed", "room_id", roomID, "error", err)
		return domain.SearchPage{}, err
	}
	messages, err := s.messages.GetByKeys(keys)
	if err != nil {
		return domain.SearchPage{}, err
	}
	return domain.SearchPage{Messages: messages, Total: total, Page: page}, nil
}

// SetTyping relays the typing state to the other connections of the room.
// Nothing is stored.
func (s *ChatService) SetTyping(ctx context.Context, connID domain.ConnectionID, roomID domain.RoomID, isTyping bool) error {
	session, err := s.session(connID)
	if err != nil {
		return err
	}
	if !s.registry.IsJoined(connID, roomID) {
		return fmt.Errorf("%w: connection %s has not joined room %d", errors.ErrForbidden, connID, roomID)
	}

	s.broadcaster.PublishToRoom(ctx, roomID, event.UserTyping{
		Room:     roomID,
		UserID:   session.UserID,
		Username: session.Username,
		IsTyping: isTyping,
		At:       s.now(),
	}, connID)
	return nil
}

// ChangeColor stores the new color and announces it to every connection,
// whatever room they are in. Changes of one user are serialized so the
// last announced color is the stored one.
func (s *ChatService) ChangeColor(ctx context.Context, connID domain.ConnectionID, userID domain.UserID, color string) (domain.User, error) {
	session, err := s.session(connID)
	if err != nil {
		return domain.User{}, err
	}
	if session.UserID != userID {
		return domain.User{}, fmt.Errorf("%w: user %d cannot recolor user %d", errors.ErrForbidden, session.UserID, userID)
	}

	unlock := s.userLocks.Lock(userID)
	defer unlock()

	user, err := s.UpdateProfile(userID, color)
	if err != nil {
		return domain.User{}, err
	}

	s.broadcaster.PublishGlobal(context.WithoutCancel(ctx), event.ColorChanged{UserID: user.ID, Color: user.Color, At: s.now()})
	return user, nil
}

// UpdateProfile stores the user's color without notifying anyone.
func (s *ChatService) UpdateProfile(userID domain.UserID, color string) (domain.User, error) {
	if err := auth.ValidateColor(color); err != nil {
		return domain.User{}, err
	}
	user, err := s.users.UpdateColor(userID, color)
	if err != nil {
		return domain.User{}, err
	}
	s.log.Debug("Color changed", "user_id", userID, "color", color)
	return user, nil
}

// AddMember adds the user named username to the room on behalf of
// requesterID and returns the updated room.
func (s *ChatService) AddMember(requesterID domain.UserID, roomID domain.RoomID, username string) (domain.Room, error) {
	unlock := s.locks.Lock(roomID)
	defer unlock()

	room, err := s.rooms.GetRoom(roomID)
	if err != nil {
		return domain.Room{}, err
	}
	if !access.CanAddMember(room, requesterID) {
		s.log.Debug("Member addition refused", "room_id", roomID, "user_id", requesterID)
		return domain.Room{}, fmt.Errorf("%w: user %d cannot add members to room %d", errors.ErrForbidden, requesterID, roomID)
	}

	target, err := s.users.GetUserByUsername(username)
	if err != nil {
		return domain.Room{}, err
	}
	if room.HasMember(target.ID) {
		return domain.Room{}, fmt.Errorf("user %d in room %d: %w", target.ID, roomID, errors.ErrAlreadyMember)
	}

	return s.rooms.AddMember(roomID, target.ID)
}

func (s *ChatService) CreateRoom(name string, creatorID domain.UserID, isPrivate bool) (domain.Room, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Room{}, fmt.Errorf("%w: room name is empty", errors.ErrInvalidContent)
	}
	if _, err := s.users.GetUser(creatorID); err != nil {
		return domain.Room{}, err
	}
	return s.rooms.CreateRoom(name, creatorID, isPrivate)
}

// ListRooms returns the public rooms and the private rooms userID belongs
// to, oldest first.
func (s *ChatService) ListRooms(userID domain.UserID) ([]domain.Room, error) {
	return s.rooms.ListRoomsVisibleTo(userID)
}

func (s *ChatService) session(connID domain.ConnectionID) (contract.Session, error) {
	session, ok := s.registry.Session(connID)
	if !ok {
		return contract.Session{}, fmt.Errorf("%w: %s", errors.ErrUnauthenticated, connID)
	}
	return session, nil
}

// joinableRoom loads the room and applies the join rule. Callers hold the
// room lock.
func (s *ChatService) joinableRoom(session contract.Session, roomID domain.RoomID) (domain.Room, error) {
	room, err := s.rooms.GetRoom(roomID)
	if err != nil {
		return domain.Room{}, err
	}
	if !access.CanJoin(room, session.UserID) {
		s.log.Debug("Access refused", "conn_id", session.ConnectionID, "user_id", session.UserID, "room_id", roomID)
		return domain.Room{}, fmt.Errorf("%w: room %d is private", errors.ErrForbidden, roomID)
	}
	return room, nil
}
