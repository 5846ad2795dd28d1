package hub

import (
	"sort"
	"sync"
)

// registry is the session table: one entry per connection, with an
// explicit per-username index in registration order so "first session"
// always means earliest-connected, never map iteration order.
type registry struct {
	mu       sync.RWMutex
	sessions map[*Client]struct{}
	byUser   map[string][]*Client
}

func newRegistry() *registry {
	return &registry{
		sessions: make(map[*Client]struct{}),
		byUser:   make(map[string][]*Client),
	}
}

func (r *registry) add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[c]; ok {
		return
	}
	r.sessions[c] = struct{}{}
	r.byUser[c.Username] = append(r.byUser[c.Username], c)
}

// remove reports whether the client was still registered, so callers can
// act exactly once per session.
func (r *registry) remove(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[c]; !ok {
		return false
	}
	delete(r.sessions, c)

	list := r.byUser[c.Username]
	for i, existing := range list {
		if existing == c {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(r.byUser, c.Username)
	} else {
		r.byUser[c.Username] = list
	}
	return true
}

// snapshot copies the session set so fan-out never iterates live state.
func (r *registry) snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.sessions))
	for c := range r.sessions {
		clients = append(clients, c)
	}
	return clients
}

// online returns the deduplicated usernames with at least one live
// session, sorted for stable payloads.
func (r *registry) online() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.byUser))
	for username := range r.byUser {
		users = append(users, username)
	}
	sort.Strings(users)
	return users
}

// sessionsFor returns the username's sessions earliest-connected first.
func (r *registry) sessionsFor(username string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]*Client(nil), r.byUser[username]...)
}
