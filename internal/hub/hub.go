package hub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mccartheney/food-loop-sub002/internal/metrics"
)

// Client is one realtime connection. UserID stays empty until the connection
// authenticates.
type Client struct {
	ID     string
	UserID string
	Send   chan []byte
}

func NewClient() *Client {
	return &Client{
		ID:   uuid.New().String(),
		Send: make(chan []byte, 256),
	}
}

// Event is the wire envelope pushed to clients.
type Event struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// remoteEvent crosses instances over redis pub/sub.
type remoteEvent struct {
	Origin  string          `json:"origin"`
	Room    string          `json:"room"`
	Exclude string          `json:"exclude,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// Hub is the connection registry and room router. It is constructed once in
// main and handed by reference to whatever needs to broadcast.
type Hub struct {
	instanceID string

	mu      sync.RWMutex
	clients map[string]*Client            // connID -> client
	rooms   map[string]map[string]*Client // roomID -> connID -> client
	byUser  map[string]map[string]*Client // userID -> connID -> client

	publish func(ctx context.Context, payload []byte) error
	logger  *zap.SugaredLogger
}

func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		instanceID: uuid.New().String(),
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		byUser:     make(map[string]map[string]*Client),
		logger:     logger,
	}
}

// SetPublisher installs the cross-instance fan-out hook (redis pub/sub).
func (h *Hub) SetPublisher(fn func(ctx context.Context, payload []byte) error) {
	h.publish = fn
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
	metrics.ActiveConnections.Inc()
}

// Bind associates an authenticated user with the connection.
func (h *Hub) Bind(connID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	c.UserID = userID
	if _, ok := h.byUser[userID]; !ok {
		h.byUser[userID] = make(map[string]*Client)
	}
	h.byUser[userID][connID] = c
}

// Unregister drops the connection from every room and returns the rooms it
// had joined, so the caller can broadcast departure side effects.
func (h *Hub) Unregister(connID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return nil
	}
	var joined []string
	for roomID, members := range h.rooms {
		if _, ok := members[connID]; ok {
			joined = append(joined, roomID)
			delete(members, connID)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	if c.UserID != "" {
		if set, ok := h.byUser[c.UserID]; ok {
			delete(set, connID)
			if len(set) == 0 {
				delete(h.byUser, c.UserID)
			}
		}
	}
	delete(h.clients, connID)
	close(c.Send)
	metrics.ActiveConnections.Dec()
	return joined
}

// Join is idempotent; joining twice leaves membership unchanged.
func (h *Hub) Join(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][connID] = c
}

func (h *Hub) Leave(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) RoomsOf(connID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []string
	for roomID, members := range h.rooms {
		if _, ok := members[connID]; ok {
			out = append(out, roomID)
		}
	}
	return out
}

func (h *Hub) InRoom(connID, roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members, ok := h.rooms[roomID]
	if !ok {
		return false
	}
	_, ok = members[connID]
	return ok
}

// Broadcast fans an event out to every connection currently joined to the
// room, excluding the originating connection. Delivery is at-most-once: no
// buffering, no replay for late joiners, and slow clients are dropped rather
// than blocked on.
func (h *Hub) Broadcast(ctx context.Context, roomID, event string, payload any, excludeConn string) {
	data, err := json.Marshal(Event{Event: event, Payload: payload})
	if err != nil {
		h.logger.Warnw("broadcast marshal failed", "event", event, "err", err)
		return
	}
	h.broadcastLocal(roomID, data, excludeConn)
	metrics.EventsBroadcast.WithLabelValues(event).Inc()

	if h.publish != nil {
		remote, _ := json.Marshal(remoteEvent{Origin: h.instanceID, Room: roomID, Data: data})
		if err := h.publish(ctx, remote); err != nil {
			h.logger.Warnw("cross-instance publish failed", "room", roomID, "err", err)
		}
	}
}

func (h *Hub) broadcastLocal(roomID string, data []byte, excludeConn string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	for connID, c := range members {
		if connID == excludeConn {
			continue
		}
		select {
		case c.Send <- data:
		default:
			// client not keeping up, drop
		}
	}
}

// HandleRemote rebroadcasts an event received from another instance. Events
// published by this instance come back on the channel and are skipped.
func (h *Hub) HandleRemote(payload []byte) {
	var ev remoteEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		h.logger.Warnw("bad remote event", "err", err)
		return
	}
	if ev.Origin == h.instanceID {
		return
	}
	h.broadcastLocal(ev.Room, ev.Data, "")
}

// SendToUser delivers an event to every connection of one user.
func (h *Hub) SendToUser(userID, event string, payload any) {
	data, err := json.Marshal(Event{Event: event, Payload: payload})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.byUser[userID] {
		select {
		case c.Send <- data:
		default:
		}
	}
}
