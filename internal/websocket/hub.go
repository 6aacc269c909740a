package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"wa-group-gateway/internal/dto"
	"wa-group-gateway/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// ClusterChannel carries session events between gateway instances.
const ClusterChannel = "gateway_session_events"

type relayEnvelope struct {
	Origin  string          `json:"origin"`
	Message json.RawMessage `json:"message"`
}

// Hub fans session events out to every connected /ws client. With redis
// configured, events are also relayed to the clients of other instances.
type Hub struct {
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	rdb        *redis.Client
	pubsub     *redis.PubSub
	instanceID string

	logger logger.ILogger
}

// NewHub builds a hub. rdb may be nil for a single-instance deployment.
func NewHub(rdb *redis.Client, instanceID string, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		rdb:        rdb,
		instanceID: instanceID,
		logger:     log,
	}
}

// Subscribe joins the cluster channel. Call it before Run so no relayed
// event is missed.
func (h *Hub) Subscribe(ctx context.Context) error {
	if h.rdb == nil {
		return nil
	}
	ps := h.rdb.Subscribe(ctx, ClusterChannel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return err
	}
	h.pubsub = ps
	return nil
}

// Run serves register/unregister requests and relayed events until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	var relay <-chan *redis.Message
	if h.pubsub != nil {
		relay = h.pubsub.Channel()
		defer h.pubsub.Close()
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"client_id": client.ID})

		case client := <-h.unregister:
			h.remove(client)

		case msg, ok := <-relay:
			if !ok {
				relay = nil
				continue
			}
			h.handleRelay(msg.Payload)
		}
	}
}

// Broadcast delivers msg to local clients and relays it to other instances.
func (h *Hub) Broadcast(ctx context.Context, msg dto.SessionEventMessage) {
	if msg.Instance == "" {
		msg.Instance = h.instanceID
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Hub", "Failed to encode session event", map[string]interface{}{"error": err.Error()})
		return
	}

	for _, slow := range h.deliver(data) {
		select {
		case h.unregister <- slow:
		case <-h.done:
		}
	}

	if h.rdb != nil {
		envelope, _ := json.Marshal(relayEnvelope{Origin: h.instanceID, Message: data})
		if err := h.rdb.Publish(ctx, ClusterChannel, envelope).Err(); err != nil {
			h.logger.Warn("Hub", "Failed to relay session event", map[string]interface{}{"error": err.Error()})
		}
	}
}

// ClientCount returns the number of local connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) handleRelay(payload string) {
	var envelope relayEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		h.logger.Warn("Hub", "Relay message parse error", map[string]interface{}{"error": err.Error()})
		return
	}
	if envelope.Origin == h.instanceID {
		return
	}
	for _, slow := range h.deliver(envelope.Message) {
		h.remove(slow)
	}
}

// deliver queues data on every client and returns the ones whose buffer is full.
func (h *Hub) deliver(data []byte) []*Client {
	var slow []*Client
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.Send <- data:
		default:
			slow = append(slow, client)
		}
	}
	return slow
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"client_id": client.ID})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.Send)
	}
}
