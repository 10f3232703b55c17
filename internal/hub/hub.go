// Package hub tracks live push-channel connections and their group
// memberships. The registry is process-local: a restart drops every
// connection and clients reconnect. Running more than one instance
// requires a backplane for group sends, which this package does not
// provide.
package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/classpulse-systems/classpulse/internal/metrics"
	"github.com/classpulse-systems/classpulse/internal/models"
)

// Identity is the resolved caller of a push-channel connection. An
// unauthenticated connection stays open but belongs to no groups.
type Identity struct {
	UserID        string
	Username      string
	Roles         []string
	Authenticated bool
}

// Hub is the connection/group registry. All operations are safe for
// concurrent use.
type Hub struct {
	mu          sync.RWMutex
	clients     map[*Client]struct{}
	groups      map[string]map[*Client]struct{}
	memberships map[*Client]map[string]struct{}
}

func New() *Hub {
	return &Hub{
		clients:     make(map[*Client]struct{}),
		groups:      make(map[string]map[*Client]struct{}),
		memberships: make(map[*Client]map[string]struct{}),
	}
}

// Register adds a connection. Authenticated clients are joined to one
// group per role plus their personal user group.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.memberships[c] = make(map[string]struct{})
	if c.identity.Authenticated {
		for _, role := range c.identity.Roles {
			h.joinLocked(c, role)
		}
		h.joinLocked(c, models.UserGroup(c.identity.UserID))
	}
	h.mu.Unlock()

	metrics.HubConnections.Inc()
}

// Unregister removes a connection from the registry and all its groups
// and closes its send channel. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, present := h.clients[c]
	if present {
		for group := range h.memberships[c] {
			h.leaveLocked(c, group)
		}
		delete(h.memberships, c)
		delete(h.clients, c)
	}
	h.mu.Unlock()

	if present {
		c.closeSend()
		metrics.HubConnections.Dec()
	}
}

// Join adds the client to a named group.
func (h *Hub) Join(c *Client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, present := h.clients[c]; !present {
		return
	}
	h.joinLocked(c, group)
}

// Leave removes the client from a named group.
func (h *Hub) Leave(c *Client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveLocked(c, group)
}

func (h *Hub) joinLocked(c *Client, group string) {
	if h.groups[group] == nil {
		h.groups[group] = make(map[*Client]struct{})
	}
	h.groups[group][c] = struct{}{}
	h.memberships[c][group] = struct{}{}
}

func (h *Hub) leaveLocked(c *Client, group string) {
	if members, ok := h.groups[group]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
	if m, ok := h.memberships[c]; ok {
		delete(m, group)
	}
}

// SendToGroup fans a payload out to every connection in the group.
// Best effort: clients with a full send buffer miss the message, and a
// group with no members is a no-op. Never returns an error.
func (h *Hub) SendToGroup(group string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("failed to marshal push payload",
			slog.String("group", group),
			slog.String("error", err.Error()),
		)
		return
	}

	// Sends stay under the read lock: they are non-blocking, and
	// Unregister's write lock cannot close a send channel while a
	// fan-out still holds a reference to it.
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.groups[group] {
		select {
		case c.send <- data:
		default:
			metrics.NotificationsDropped.Inc()
			slog.Warn("dropping push message, client buffer full",
				slog.String("group", group),
				slog.String("user_id", c.identity.UserID),
			)
		}
	}
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GroupSize returns the number of connections in a group.
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}
