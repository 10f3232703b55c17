package hub

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/classpulse-systems/classpulse/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 16
)

// Client is one push-channel connection.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	identity  Identity
	closeOnce sync.Once
}

// NewClient wraps a websocket connection. The caller must Register the
// client with the hub and then start ReadPump and WritePump.
func NewClient(h *Hub, conn *websocket.Conn, identity Identity) *Client {
	return &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		identity: identity,
	}
}

// Identity returns the resolved caller identity of this connection.
func (c *Client) Identity() Identity {
	return c.identity
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// clientCommand is the client-to-server control message.
type clientCommand struct {
	Action string `json:"action"`
	Group  string `json:"group"`
}

// ReadPump consumes client control messages until the connection drops,
// then unregisters. Must run in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("push channel closed unexpectedly",
					slog.String("user_id", c.identity.UserID),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			slog.Debug("ignoring malformed push-channel command",
				slog.String("user_id", c.identity.UserID),
			)
			continue
		}

		c.handleCommand(cmd)
	}
}

func (c *Client) handleCommand(cmd clientCommand) {
	// Ad hoc membership is limited to authenticated connections and
	// topic-prefixed names; role and user groups are server-assigned.
	if !c.identity.Authenticated || !models.IsClientJoinable(cmd.Group) {
		return
	}

	switch cmd.Action {
	case "join_group":
		c.hub.Join(c, cmd.Group)
	case "leave_group":
		c.hub.Leave(c, cmd.Group)
	}
}

// WritePump forwards hub messages to the connection and keeps it alive
// with pings. Must run in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
