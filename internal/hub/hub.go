package hub

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event types pushed to users.
const (
	MessageCreated      = "message.created"
	ConnectionRequested = "connection.requested"
	ConnectionAccepted  = "connection.accepted"
	ConnectionRejected  = "connection.rejected"
)

// clientBuffer is how many events a slow client may fall behind before events are dropped.
const clientBuffer = 64

// Event represents a real-time event to be sent to clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Client is the outbound queue of one open stream. A user may have several.
type Client chan []byte

// Hub tracks the open streams of every connected user.
type Hub struct {
	users map[uuid.UUID]map[Client]bool
	mu    sync.RWMutex
	log   zerolog.Logger
}

// NewHub creates a new Hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		users: make(map[uuid.UUID]map[Client]bool),
		log:   log,
	}
}

// Subscribe opens a new stream for userID.
func (h *Hub) Subscribe(userID uuid.UUID) Client {
	client := make(Client, clientBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.users[userID]; !ok {
		h.users[userID] = make(map[Client]bool)
	}
	h.users[userID][client] = true
	return client
}

// Unsubscribe removes a stream and closes its channel. Unknown clients are ignored.
func (h *Hub) Unsubscribe(userID uuid.UUID, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.users[userID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client)
			if len(clients) == 0 {
				delete(h.users, userID)
			}
		}
	}
}

// Online reports how many streams userID has open.
func (h *Hub) Online(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// Notify sends an event to every open stream of userID.
func (h *Hub) Notify(userID uuid.UUID, eventType string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.users[userID]
	if !ok {
		return
	}

	messageBytes, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		h.log.Error().Err(err).Str("event", eventType).Msg("failed to encode event")
		return
	}

	for client := range clients {
		// a full queue means the client is not reading; it loses the event rather than block the sender
		select {
		case client <- messageBytes:
		default:
			h.log.Warn().Str("user_id", userID.String()).Str("event", eventType).Msg("dropping event for slow client")
		}
	}
}
