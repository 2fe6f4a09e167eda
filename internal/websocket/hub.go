package websocket

import (
	"context"
	"encoding/json"

	"ai-studytool-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "cluster_events"

const (
	MessageWalletUpdated = "wallet_updated"
	MessageToolConfig    = "tool_config_updated"
)

// Message is the frame written to clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type clusterEnvelope struct {
	TargetUserID string          `json:"target_user_id"` // "*" broadcasts
	Message      json.RawMessage `json:"message"`
}

type delivery struct {
	target string
	data   []byte
}

// Hub tracks connections per user (multi-device). With Redis every message goes through
// the cluster channel and each instance delivers to its own clients, so a user connected
// to any instance receives it exactly once.
type Hub struct {
	clients    map[uuid.UUID][]*Client
	register   chan *Client
	unregister chan *Client
	deliver    chan delivery

	rdb    *redis.Client
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 256),
		rdb:        rdb,
		logger:     log,
	}
}

// Run owns the client map; it returns when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.clients {
				for _, c := range clients {
					close(c.Send)
				}
			}
			h.clients = map[uuid.UUID][]*Client{}
			return

		case client := <-h.register:
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.remove(client)

		case d := <-h.deliver:
			h.deliverLocal(d)
		}
	}
}

func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.UserID]) == 0 {
		delete(h.clients, client.UserID)
		h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"user_id": client.UserID})
	}
}

func (h *Hub) deliverLocal(d delivery) {
	var targets []*Client
	if d.target == "*" {
		for _, clients := range h.clients {
			targets = append(targets, clients...)
		}
	} else {
		uid, err := uuid.Parse(d.target)
		if err != nil {
			return
		}
		targets = h.clients[uid]
	}

	var slow []*Client
	for _, c := range targets {
		select {
		case c.Send <- d.data:
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"user_id": c.UserID})
		h.remove(c)
	}
}

// Send pushes a typed message to every connection of one user.
func (h *Hub) Send(userID uuid.UUID, msgType string, data interface{}) {
	h.dispatch(userID.String(), msgType, data)
}

// Broadcast pushes a typed message to every connected user.
func (h *Hub) Broadcast(msgType string, data interface{}) {
	h.dispatch("*", msgType, data)
}

func (h *Hub) dispatch(target, msgType string, data interface{}) {
	frame, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		h.logger.Error("Hub", "Failed to encode message", map[string]interface{}{"type": msgType, "error": err.Error()})
		return
	}

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterEnvelope{TargetUserID: target, Message: frame})
		err := h.rdb.Publish(context.Background(), clusterChannel, payload).Err()
		if err == nil {
			return
		}
		h.logger.Warn("Hub", "Redis publish failed, delivering locally", map[string]interface{}{"error": err.Error()})
	}

	h.enqueue(delivery{target: target, data: frame})
}

func (h *Hub) enqueue(d delivery) {
	select {
	case h.deliver <- d:
	default:
		h.logger.Warn("Hub", "Delivery queue full, dropping message", map[string]interface{}{"target": d.target})
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env clusterEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				h.logger.Warn("Hub", "Redis message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			h.enqueue(delivery{target: env.TargetUserID, data: env.Message})
		}
	}
}
