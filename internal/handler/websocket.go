package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"lan_messenger/internal/domain"
	"lan_messenger/internal/hub"
	"lan_messenger/internal/service"
	apperrors "lan_messenger/pkg/errors"
	"lan_messenger/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // LAN deployment; lock down the origin when exposed further.
	},
}

// WebSocketHandler runs the per-connection protocol state machine:
// authentication handshake, history replay, then the dispatch loop until
// the transport dies or a frame fails to decode.
type WebSocketHandler struct {
	hub         *hub.Hub
	authService service.AuthService
	chatService service.ChatService
	log         logger.Logger
}

func NewWebSocketHandler(h *hub.Hub, authService service.AuthService, chatService service.ChatService, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         h,
		authService: authService,
		chatService: chatService,
		log:         log,
	}
}

func (h *WebSocketHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()

	client, ok := h.handshake(ctx, conn)
	if !ok {
		return
	}
	defer h.teardown(client)

	// The handshake wrote login_success, the join broadcast went out and
	// history was replayed; from here every write goes through the send
	// buffer.
	go client.WritePump()

	for {
		var env domain.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			// Covers client close, transport failure and malformed
			// frames alike; all end the session.
			break
		}
		h.dispatch(ctx, client, &env)
	}
}

// handshake authenticates the first frame and brings the session online.
// All writes here happen before WritePump starts, so writing on the conn
// directly is safe.
func (h *WebSocketHandler) handshake(ctx context.Context, conn *websocket.Conn) (*hub.Client, bool) {
	var login domain.Envelope
	if err := conn.ReadJSON(&login); err != nil {
		return nil, false
	}

	user, _, err := h.authService.Authenticate(ctx, login.Username, login.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrEmptyUsername), errors.Is(err, apperrors.ErrWrongPassword):
			conn.WriteJSON(map[string]any{"type": domain.EnvelopeError, "msg": err.Error()})
		default:
			h.log.Error("Authentication failed", "error", err)
			conn.WriteJSON(map[string]any{"type": domain.EnvelopeError, "msg": "Server Database Error. Please try again."})
		}
		return nil, false
	}

	client := hub.NewClient(conn, user.Username)
	h.hub.Register(client)
	h.log.Info("User joined", "username", user.Username)

	if err := conn.WriteJSON(map[string]any{
		"type":         domain.EnvelopeLoginSuccess,
		"username":     user.Username,
		"online_users": h.hub.OnlineUsers(),
	}); err != nil {
		h.hub.Unregister(client)
		return nil, false
	}

	h.broadcastExcept(client, map[string]any{
		"type":         domain.EnvelopeUserJoined,
		"username":     user.Username,
		"online_users": h.hub.OnlineUsers(),
	})

	history, err := h.chatService.History(ctx)
	if err != nil {
		h.log.Error("Failed to load history", "error", err, "username", user.Username)
		h.hub.Unregister(client)
		return nil, false
	}
	for _, msg := range history {
		if err := conn.WriteJSON(msg.Wire(nil)); err != nil {
			h.hub.Unregister(client)
			return nil, false
		}
	}

	return client, true
}

// teardown runs unconditionally on session end, whatever ended it.
func (h *WebSocketHandler) teardown(client *hub.Client) {
	h.hub.StopTyping(client.Username)
	h.hub.Unregister(client)
	client.Close()
	h.log.Info("User left", "username", client.Username)

	h.broadcastAll(map[string]any{
		"type":         domain.EnvelopeUserLeft,
		"username":     client.Username,
		"online_users": h.hub.OnlineUsers(),
	})
}

func (h *WebSocketHandler) dispatch(ctx context.Context, client *hub.Client, env *domain.Envelope) {
	switch env.Type {
	case domain.EnvelopeTypingStart:
		h.hub.StartTyping(client.Username)
		h.broadcastTyping(client)
	case domain.EnvelopeTypingStop:
		h.hub.StopTyping(client.Username)
		h.broadcastTyping(client)
	case domain.EnvelopeMarkRead:
		h.handleMarkRead(ctx, client, env)
	case domain.EnvelopeEdit:
		h.handleEdit(ctx, client, env)
	case domain.EnvelopeDelete:
		h.handleDelete(ctx, client, env)
	case domain.EnvelopeReactionAdd, domain.EnvelopeReactionRemove:
		h.handleReaction(ctx, client, env)
	case domain.MessageTypeText, domain.MessageTypeImage, domain.MessageTypeVideo, domain.MessageTypeFile, domain.MessageTypeVoice:
		h.handleContent(ctx, client, env)
	case domain.EnvelopeCallInitiate, domain.EnvelopeCallAccept, domain.EnvelopeCallReject, domain.EnvelopeCallCancel, domain.EnvelopeCallEnd:
		h.relayCall(client, env)
	case domain.EnvelopeWebRTCOffer, domain.EnvelopeWebRTCAnswer, domain.EnvelopeICECandidate:
		h.relaySignal(client, env)
	case domain.EnvelopePing:
		h.send(client, map[string]any{"type": domain.EnvelopePong})
	default:
		// Forward compatible: unknown envelope types are ignored.
	}
}

func (h *WebSocketHandler) handleMarkRead(ctx context.Context, client *hub.Client, env *domain.Envelope) {
	receipts, err := h.chatService.MarkRead(ctx, client.Username, env.IDs)
	if err != nil {
		h.log.Error("Failed to mark read", "error", err, "username", client.Username)
		return
	}
	for _, receipt := range receipts {
		h.broadcastAll(map[string]any{
			"type":    domain.EnvelopeReadUpdate,
			"id":      receipt.ID,
			"read_by": receipt.ReadBy,
		})
	}
}

func (h *WebSocketHandler) handleEdit(ctx context.Context, client *hub.Client, env *domain.Envelope) {
	err := h.chatService.Edit(ctx, client.Username, env.ID, env.Content)
	switch {
	case err == nil:
		h.broadcastAll(map[string]any{
			"type":    domain.EnvelopeEditConfirmed,
			"id":      env.ID,
			"new_msg": env.Content,
		})
	case errors.Is(err, apperrors.ErrEditWindowExpired), errors.Is(err, apperrors.ErrNotMessageOwner):
		h.sendError(client, err.Error())
	case errors.Is(err, apperrors.ErrMessageNotFound):
		// Nothing to edit; silently ignored like any other stale id.
	default:
		h.log.Error("Failed to edit message", "error", err, "username", client.Username)
	}
}

func (h *WebSocketHandler) handleDelete(ctx context.Context, client *hub.Client, env *domain.Envelope) {
	deleted, err := h.chatService.Delete(ctx, client.Username, env.IDs)
	if err != nil {
		h.log.Error("Failed to delete messages", "error", err, "username", client.Username)
	}
	if len(deleted) > 0 {
		h.broadcastAll(map[string]any{
			"type": domain.EnvelopeDeleteConfirmed,
			"ids":  deleted,
		})
	}
}

func (h *WebSocketHandler) handleReaction(ctx context.Context, client *hub.Client, env *domain.Envelope) {
	var (
		reactions map[string][]string
		err       error
	)
	if env.Type == domain.EnvelopeReactionAdd {
		reactions, err = h.chatService.AddReaction(ctx, client.Username, env.ID, env.Emoji)
	} else {
		reactions, err = h.chatService.RemoveReaction(ctx, client.Username, env.ID, env.Emoji)
	}
	if err != nil {
		h.log.Error("Failed to update reaction", "error", err, "username", client.Username)
		return
	}
	if reactions == nil {
		return
	}

	h.broadcastAll(map[string]any{
		"type":      domain.EnvelopeReactionUpdate,
		"id":        env.ID,
		"reactions": reactions,
	})
}

func (h *WebSocketHandler) handleContent(ctx context.Context, client *hub.Client, env *domain.Envelope) {
	message, preview, err := h.chatService.Send(ctx, client.Username, env.Type, env.Content, env.ReplyTo, env.FileSize, env.OriginalName)
	if err != nil {
		h.log.Error("Failed to persist message", "error", err, "username", client.Username)
		return
	}

	// Sending a message implies the author stopped typing.
	h.hub.StopTyping(client.Username)

	h.broadcastAll(message.Wire(preview))
}

// relayCall forwards call-lifecycle envelopes to the target's first
// session. The server holds no call state and checks no sequencing; an
// offline target means the envelope is dropped without a word.
func (h *WebSocketHandler) relayCall(client *hub.Client, env *domain.Envelope) {
	payload := map[string]any{"from": client.Username}

	switch env.Type {
	case domain.EnvelopeCallInitiate:
		callType := env.CallType
		if callType == "" {
			callType = "voice"
		}
		payload["type"] = domain.EnvelopeCallIncoming
		payload["callType"] = callType
		h.log.Info("Call started", "from", client.Username, "to", env.To, "callType", callType)
	case domain.EnvelopeCallAccept:
		payload["type"] = domain.EnvelopeCallAccepted
	case domain.EnvelopeCallReject:
		reason := env.Reason
		if reason == "" {
			reason = "declined"
		}
		payload["type"] = domain.EnvelopeCallRejected
		payload["reason"] = reason
	case domain.EnvelopeCallCancel:
		payload["type"] = domain.EnvelopeCallCancelled
	case domain.EnvelopeCallEnd:
		payload["type"] = domain.EnvelopeCallEnded
	}

	h.relayTo(env.To, payload)
}

func (h *WebSocketHandler) relaySignal(client *hub.Client, env *domain.Envelope) {
	h.relayTo(env.To, map[string]any{
		"type":    env.Type,
		"from":    client.Username,
		"payload": env.Payload,
	})
}

func (h *WebSocketHandler) relayTo(username string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("Failed to marshal relay payload", "error", err)
		return
	}
	h.hub.SendToUser(username, data)
}

func (h *WebSocketHandler) broadcastTyping(client *hub.Client) {
	h.broadcastExcept(client, map[string]any{
		"type":         domain.EnvelopeTypingUpdate,
		"typing_users": h.hub.TypingUsers(),
	})
}

func (h *WebSocketHandler) broadcastAll(payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("Failed to marshal broadcast payload", "error", err)
		return
	}
	h.hub.BroadcastAll(data)
}

func (h *WebSocketHandler) broadcastExcept(exclude *hub.Client, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("Failed to marshal broadcast payload", "error", err)
		return
	}
	h.hub.Broadcast(data, exclude)
}

func (h *WebSocketHandler) send(client *hub.Client, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("Failed to marshal payload", "error", err)
		return
	}
	client.Enqueue(data)
}

func (h *WebSocketHandler) sendError(client *hub.Client, msg string) {
	h.send(client, map[string]any{"type": domain.EnvelopeError, "msg": msg})
}
