package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"ai-docqa-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "docqa:cluster_events"

// Message is the frame pushed to browsers.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// clusterEnvelope carries a frame to the other instances.
type clusterEnvelope struct {
	Origin       string          `json:"origin"`
	TargetUserID string          `json:"target_user_id"`
	Topic        string          `json:"topic,omitempty"`
	Message      json.RawMessage `json:"message"`
}

type Hub struct {
	// UserID -> connected clients (multi-device)
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client

	// closed when Run returns
	done chan struct{}

	mu sync.RWMutex

	// Optional; fans frames out to other instances.
	rdb *redis.Client

	instanceID string
	logger     logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

// Run owns the client table until ctx is done. It must be called once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID.String()})

		case client := <-h.unregister:
			h.mu.Lock()
			clients := h.clients[client.UserID]
			for i, c := range clients {
				if c == client {
					h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
					close(client.Send)
					break
				}
			}
			if len(h.clients[client.UserID]) == 0 {
				delete(h.clients, client.UserID)
			}
			h.mu.Unlock()
		}
	}
}

// Register adds client. It reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes client and closes its Send channel. It is a no-op once
// the hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Send pushes a frame to every connection of userID that wants topic, here
// and on the other instances. An empty topic reaches all of them.
func (h *Hub) Send(userID uuid.UUID, topic string, messageType string, data interface{}) {
	frame, err := json.Marshal(Message{Type: messageType, Data: data})
	if err != nil {
		h.logger.Error("Hub", "Failed to encode frame", map[string]interface{}{"type": messageType, "error": err.Error()})
		return
	}

	h.deliverLocal(userID, topic, frame)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterEnvelope{
			Origin:       h.instanceID,
			TargetUserID: userID.String(),
			Topic:        topic,
			Message:      frame,
		})
		if err := h.rdb.Publish(context.Background(), clusterChannel, payload).Err(); err != nil {
			h.logger.Warn("Hub", "Failed to publish frame to cluster", map[string]interface{}{"error": err.Error()})
		}
	}
}

// Connected reports how many connections userID has on this instance.
func (h *Hub) Connected(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) deliverLocal(userID uuid.UUID, topic string, frame []byte) {
	var stale []*Client

	h.mu.RLock()
	for _, client := range h.clients[userID] {
		if !client.Wants(topic) {
			continue
		}
		select {
		case client.Send <- frame:
		default:
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stale {
		h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"user_id": userID.String()})
		go h.Unregister(client)
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var env clusterEnvelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			h.logger.Warn("Hub", "Malformed cluster frame", map[string]interface{}{"error": err.Error()})
			continue
		}
		if env.Origin == h.instanceID {
			continue
		}
		uid, err := uuid.Parse(env.TargetUserID)
		if err != nil {
			continue
		}
		h.deliverLocal(uid, env.Topic, env.Message)
	}
}
