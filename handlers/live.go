// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/danielhkuo/roompick/auth"
	"github.com/danielhkuo/roompick/hub"
	"github.com/danielhkuo/roompick/models"
	"github.com/danielhkuo/roompick/roomcode"
	"github.com/danielhkuo/roompick/session"
)

// maxMessageBytes caps inbound live frames
const maxMessageBytes = 4096

var (
	errBadMessage    = errors.New("malformed message")
	errNotJoined     = errors.New("join a room first")
	errAlreadyJoined = errors.New("connection already belongs to another room")

	errIdentityMismatch = fmt.Errorf("%w: user_id does not match the connection identity", auth.ErrInvalidUser)
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LiveHandler serves GET /live: one websocket per client, bound to at most
// one room for its lifetime
type LiveHandler struct {
	coord    *session.Coordinator
	registry *hub.Registry
	dispatch map[models.EventKind]func(context.Context, *liveClient, json.RawMessage) error
}

func NewLiveHandler(coord *session.Coordinator, registry *hub.Registry) *LiveHandler {
	h := &LiveHandler{coord: coord, registry: registry}
	h.dispatch = map[models.EventKind]func(context.Context, *liveClient, json.RawMessage) error{
		models.MessageJoin: h.handleJoin,
		models.MessageVote: h.handleVote,
		models.MessagePing: h.handlePing,
	}
	return h
}

// liveClient is the per-connection state. It is only touched by the
// connection's own read loop.
type liveClient struct {
	conn *hub.WSConn
	// identity is the proxy header value; it always wins over the message
	identity string
	userID   string
	roomCode string
}

func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade error", "error", err)
		return
	}

	client := &liveClient{conn: hub.NewWSConn(ws)}
	client.conn.SetReadLimit(maxMessageBytes)
	// identity may come from the proxy header or, failing that, the join message
	if userID, err := auth.UserIDFromRequest(r); err == nil {
		client.identity = userID
	}

	defer func() {
		if client.roomCode != "" {
			h.registry.Unregister(client.roomCode, client.conn)
		}
		client.conn.Close()
	}()

	for {
		data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("live connection dropped", "room_code", client.roomCode, "error", err)
			}
			return
		}
		h.handleMessage(r.Context(), client, data)
	}
}

func (h *LiveHandler) handleMessage(ctx context.Context, client *liveClient, data []byte) {
	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendError(client, fmt.Errorf("%w: %v", errBadMessage, err))
		return
	}
	handle, ok := h.dispatch[msg.Kind]
	if !ok {
		h.sendError(client, fmt.Errorf("%w: unknown type %q", errBadMessage, msg.Kind))
		return
	}
	if err := handle(ctx, client, msg.Data); err != nil {
		h.sendError(client, err)
	}
}

func (h *LiveHandler) handleJoin(ctx context.Context, client *liveClient, raw json.RawMessage) error {
	var msg models.JoinMessage
	if err := decodeData(raw, &msg); err != nil {
		return err
	}
	code := strings.ToUpper(strings.TrimSpace(msg.Code))
	if !roomcode.Valid(code) {
		return models.ErrRoomNotFound
	}
	userID, err := client.resolveUser(msg.UserID)
	if err != nil {
		return err
	}

	// a connection is bound to one room for its lifetime
	if client.roomCode != "" && client.roomCode != code {
		return errAlreadyJoined
	}

	// register before joining so this connection also sees its own
	// participant-joined event. A rejoin is already registered and stays so
	// whatever the outcome.
	first := client.roomCode == ""
	if first {
		h.registry.Register(code, client.conn)
	}
	if _, _, err := h.coord.Join(ctx, code, userID); err != nil {
		if first {
			h.registry.Unregister(code, client.conn)
		}
		return err
	}
	client.roomCode = code
	client.userID = userID

	view, err := h.coord.GetRoom(ctx, code)
	if err != nil {
		return err
	}
	return h.registry.SendTo(client.conn, models.NewEvent(models.EventJoined, code, models.JoinedPayload{Room: view.Room}))
}

// resolveUser picks the identity for a join. The header identity, or the
// one bound by an earlier join, is authoritative; a claimed user_id is only
// taken when there is neither and must match otherwise.
func (c *liveClient) resolveUser(claimed string) (string, error) {
	known := c.identity
	if known == "" {
		known = c.userID
	}
	if claimed == "" {
		return auth.ValidateUserID(known)
	}
	claimed, err := auth.ValidateUserID(claimed)
	if err != nil {
		return "", err
	}
	if known != "" && claimed != known {
		return "", errIdentityMismatch
	}
	return claimed, nil
}

func (h *LiveHandler) handleVote(ctx context.Context, client *liveClient, raw json.RawMessage) error {
	if client.roomCode == "" {
		return errNotJoined
	}
	var msg models.VoteMessage
	if err := decodeData(raw, &msg); err != nil {
		return err
	}
	if msg.CandidateID == "" {
		return fmt.Errorf("%w: candidate_id is required", errBadMessage)
	}
	_, err := h.coord.CastVote(ctx, client.roomCode, client.userID, msg.CandidateID, msg.Score)
	return err
}

func (h *LiveHandler) handlePing(ctx context.Context, client *liveClient, _ json.RawMessage) error {
	return h.registry.SendTo(client.conn, models.NewEvent(models.EventPong, client.roomCode, nil))
}

// sendError reports a failed message to its sender only
func (h *LiveHandler) sendError(client *liveClient, err error) {
	reason := models.Reason(err)
	switch {
	case errors.Is(err, errBadMessage):
		reason = "bad_message"
	case errors.Is(err, errNotJoined):
		reason = "not_joined"
	case errors.Is(err, errAlreadyJoined):
		reason = "already_joined"
	case errors.Is(err, auth.ErrMissingUser), errors.Is(err, auth.ErrInvalidUser):
		reason = "bad_identity"
	}
	message := err.Error()
	if reason == "internal" {
		slog.Error("live message failed", "room_code", client.roomCode, "error", err)
		message = "internal error"
	}

	if sendErr := h.registry.SendTo(client.conn, models.NewEvent(models.EventError, client.roomCode, models.ErrorPayload{
		Reason:  reason,
		Message: message,
	})); sendErr != nil {
		slog.Debug("failed to send live error", "error", sendErr)
	}
}

func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: data is required", errBadMessage)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", errBadMessage, err)
	}
	return nil
}
