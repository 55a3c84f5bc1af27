package websocket

import (
	"strings"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// NewClient builds a connection for userID that starts out watching the given
// documents, or all of them when watch is empty.
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, watch []uuid.UUID) *Client {
	c := &Client{Hub: hub, Conn: conn, UserID: userID, Send: make(chan []byte, 256)}
	if len(watch) > 0 {
		c.watched = make(map[string]struct{}, len(watch))
		for _, id := range watch {
			c.watched[id.String()] = struct{}{}
		}
	}
	return c
}

// ParseWatchList reads a comma separated list of document ids, skipping
// anything that is not a uuid.
func ParseWatchList(raw string) []uuid.UUID {
	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		if id, err := uuid.Parse(strings.TrimSpace(part)); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// ServeWs attaches an upgraded connection to the hub and blocks until it closes.
func ServeWs(hub *Hub, conn *websocket.Conn, userID uuid.UUID, watch []uuid.UUID) {
	client := NewClient(hub, conn, userID, watch)
	if !hub.Register(client) {
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump()
}
