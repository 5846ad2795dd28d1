// Package hub tracks live sessions and moves payloads between them:
// presence and typing state, fan-out to everyone, and point-to-point
// relay for call signaling.
package hub

import (
	"sort"
	"sync"

	"lan_messenger/pkg/logger"
)

type Hub struct {
	reg *registry

	typingMu sync.Mutex
	typing   map[string]struct{}

	log logger.Logger
}

func New(log logger.Logger) *Hub {
	return &Hub{
		reg:    newRegistry(),
		typing: make(map[string]struct{}),
		log:    log,
	}
}

func (h *Hub) Register(c *Client) {
	h.reg.add(c)
	h.log.Info("Session registered", "username", c.Username, "online", len(h.reg.online()))
}

// Unregister removes the session; unknown sessions are a no-op.
func (h *Hub) Unregister(c *Client) {
	if h.reg.remove(c) {
		h.log.Info("Session unregistered", "username", c.Username, "online", len(h.reg.online()))
	}
}

func (h *Hub) OnlineUsers() []string {
	return h.reg.online()
}

// Broadcast fans the payload out to every registered session except the
// excluded one. A session that cannot take the payload is pruned after
// the sweep, exactly once, without affecting delivery to the rest.
func (h *Hub) Broadcast(payload []byte, exclude *Client) {
	var failed []*Client
	for _, c := range h.reg.snapshot() {
		if c == exclude {
			continue
		}
		if !c.Enqueue(payload) {
			failed = append(failed, c)
		}
	}

	for _, c := range failed {
		if h.reg.remove(c) {
			h.log.Warn("Pruning unresponsive session", "username", c.Username)
			c.Close()
		}
	}
}

func (h *Hub) BroadcastAll(payload []byte) {
	h.Broadcast(payload, nil)
}

// SendToUser relays the payload to the target's first-registered session.
// Fire-and-forget: false when the user has no live session or the
// session could not take the payload.
func (h *Hub) SendToUser(username string, payload []byte) bool {
	sessions := h.reg.sessionsFor(username)
	if len(sessions) == 0 {
		return false
	}

	target := sessions[0]
	if !target.Enqueue(payload) {
		if h.reg.remove(target) {
			h.log.Warn("Pruning unresponsive session", "username", target.Username)
			target.Close()
		}
		return false
	}
	return true
}

func (h *Hub) StartTyping(username string) {
	h.typingMu.Lock()
	defer h.typingMu.Unlock()
	h.typing[username] = struct{}{}
}

func (h *Hub) StopTyping(username string) {
	h.typingMu.Lock()
	defer h.typingMu.Unlock()
	delete(h.typing, username)
}

func (h *Hub) TypingUsers() []string {
	h.typingMu.Lock()
	defer h.typingMu.Unlock()

	users := make([]string, 0, len(h.typing))
	for username := range h.typing {
		users = append(users, username)
	}
	sort.Strings(users)
	return users
}
