package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Inbound control frames.
const (
	ActionWatch    = "watch"
	ActionWatchAll = "watch_all"
)

type controlFrame struct {
	Action      string   `json:"action"`
	DocumentIDs []string `json:"document_ids"`
}

// Client is one browser connection of a user. By default it receives every
// status frame of its owner; a watch frame narrows that to a set of
// documents until watch_all resets it.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	UserID uuid.UUID

	// Buffered channel of outbound frames.
	Send chan []byte

	mu      sync.RWMutex
	watched map[string]struct{}
}

// Wants reports whether frames for topic should reach this connection.
func (c *Client) Wants(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.watched) == 0 || topic == "" {
		return true
	}
	_, ok := c.watched[topic]
	return ok
}

func (c *Client) applyControl(raw []byte) {
	var frame controlFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.Hub.logger.Debug("Client", "Ignoring malformed control frame", map[string]interface{}{"user_id": c.UserID.String()})
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch frame.Action {
	case ActionWatch:
		c.watched = make(map[string]struct{}, len(frame.DocumentIDs))
		for _, id := range frame.DocumentIDs {
			if _, err := uuid.Parse(id); err == nil {
				c.watched[id] = struct{}{}
			}
		}
	case ActionWatchAll:
		c.watched = nil
	}
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		kind, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("Client", "Unexpected close", map[string]interface{}{"user_id": c.UserID.String(), "error": err.Error()})
			}
			return
		}
		if kind == websocket.TextMessage {
			c.applyControl(raw)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Unregistered by the hub.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
