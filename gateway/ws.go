package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"roomchat/domain"
	"roomchat/errors"
	"roomchat/services"
	"strings"
	"sync"

	"golang.org/x/net/websocket"
)

const maxDecodeErrorsPerConn = 5

// WebSocketHandler authenticates the upgrade request with the token
// carried in the query string or the Authorization header, then relays
// frames between the connection and the chat service.
type WebSocketHandler struct {
	log        *slog.Logger
	chat       services.IChatService
	auth       services.IAuthService
	bufferSize int
}

func NewWebSocketHandler(log *slog.Logger, chat services.IChatService, auth services.IAuthService, bufferSize int) *WebSocketHandler {
	return &WebSocketHandler{log: log, chat: chat, auth: auth, bufferSize: bufferSize}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := accessTokenFromRequest(r)
	if token == "" {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	userID, err := h.auth.Authenticate(token)
	if err != nil {
		h.log.Debug("WebSocket unauthorized", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	websocket.Handler(func(conn *websocket.Conn) {
		h.serve(conn, userID)
	}).ServeHTTP(w, r)
}

func accessTokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return strings.TrimSpace(token)
}

// wsPeer serializes writes: events and error replies share the connection.
type wsPeer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (p *wsPeer) writeFrame(frame Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return websocket.JSON.Send(p.conn, frame)
}

func (p *wsPeer) writeError(inbound string, err error) error {
	data, marshalErr := json.Marshal(toErrorDTO(inbound, err))
	if marshalErr != nil {
		return marshalErr
	}
	return p.writeFrame(Frame{Event: outError, Data: data})
}

func (h *WebSocketHandler) serve(conn *websocket.Conn, userID domain.UserID) {
	defer func() {
		_ = conn.Close()
	}()
	peer := &wsPeer{conn: conn}

	sink := NewConnectionSink(h.bufferSize)
	connID, err := h.chat.Connect(userID, sink)
	if err != nil {
		_ = peer.writeError("", err)
		return
	}

	ctx, cancel := context.WithCancel(conn.Request().Context())
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, peer, sink)
	}()
	defer func() {
		h.chat.Disconnect(connID)
		sink.Close()
		cancel()
		<-writerDone
	}()

	decodeErrors := 0
	for {
		var frame Frame
		if err := websocket.JSON.Receive(conn, &frame); err != nil {
			if err == io.EOF || ctx.Err() != nil {
				return
			}
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &syntaxErr) && !errors.As(err, &typeErr) {
				h.log.Debug("WebSocket read failed", "conn_id", connID, "error", err)
				return
			}
			decodeErrors++
			_ = peer.writeError("", fmt.Errorf("%w: invalid frame", errors.ErrInvalidContent))
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if err := h.dispatch(ctx, connID, frame); err != nil {
			_ = peer.writeError(frame.Event, err)
		}
	}
}

// writeLoop drains the sink until the connection goes away. Shutting the
// server down cancels ctx, which closes the socket and unblocks the reader.
func (h *WebSocketHandler) writeLoop(ctx context.Context, peer *wsPeer, sink *ConnectionSink) {
	for {
		select {
		case <-ctx.Done():
			_ = peer.conn.Close()
			return
		case <-sink.Done():
			return
		case e := <-sink.Events():
			frame, err := toFrame(e)
			if err != nil {
				h.log.Error("Event not rendered", "event", e.Name(), "error", err)
				continue
			}
			if err := peer.writeFrame(frame); err != nil {
				h.log.Debug("WebSocket write failed", "event", e.Name(), "error", err)
				_ = peer.conn.Close()
				return
			}
		}
	}
}

func (h *WebSocketHandler) dispatch(ctx context.Context, connID domain.ConnectionID, frame Frame) error {
	switch frame.Event {
	case inJoinRoom:
		roomID, err := decodeRoomID(frame.Data)
		if err != nil {
			return err
		}
		_, err = h.chat.Join(ctx, connID, roomID)
		return err

	case inLeaveRoom:
		roomID, err := decodeRoomID(frame.Data)
		if err != nil {
			return err
		}
		return h.chat.Leave(connID, roomID)

	case inGetMessages:
		roomID, err := decodeRoomID(frame.Data)
		if err != nil {
			return err
		}
		_, err = h.chat.FetchHistory(ctx, connID, roomID)
		return err

	case inSendMessage:
		var payload sendPayload
		if err := decodePayload(frame.Data, &payload); err != nil {
			return err
		}
		_, err := h.chat.Send(ctx, connID, payload.Content, domain.RoomID(payload.RoomID))
		return err

	case inTyping:
		var payload typingPayload
		if err := decodePayload(frame.Data, &payload); err != nil {
			return err
		}
		return h.chat.SetTyping(ctx, connID, domain.RoomID(payload.RoomID), payload.IsTyping)

	case inChangeColor:
		var payload colorPayload
		if err := decodePayload(frame.Data, &payload); err != nil {
			return err
		}
		_, err := h.chat.ChangeColor(ctx, connID, domain.UserID(payload.UserID), payload.Color)
		return err

	default:
		return fmt.Errorf("%w: unsupported event %q", errors.ErrInvalidContent, frame.Event)
	}
}

// decodeRoomID accepts a bare id or {"roomId": id}.
func decodeRoomID(data json.RawMessage) (domain.RoomID, error) {
	var id int64
	if err := json.Unmarshal(data, &id); err == nil {
		return domain.RoomID(id), nil
	}
	var payload struct {
		RoomID int64 `json:"roomId"`
	}
	if err := decodePayload(data, &payload); err != nil {
		return 0, err
	}
	return domain.RoomID(payload.RoomID), nil
}

func decodePayload(data json.RawMessage, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: invalid payload: %v", errors.ErrInvalidContent, err)
	}
	return nil
}
