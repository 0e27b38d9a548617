package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/flexlog/flexchat/internal/pkg/changefeed"
)

// Hub maintains the set of connected clients per conversation and fans the
// change feed's dirty signals out to them
type Hub struct {
	// Registered clients organized by conversation ID
	clients map[int64]map[*Client]bool

	// Channel for outbound signals
	broadcast chan *Signal

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mu sync.RWMutex

	feedSub *changefeed.Subscription

	logger zerolog.Logger
}

// Signal is the wire form of a dirty notification. It names the table and
// row that changed; the client re-requests the affected view, it never
// receives row content over this channel.
type Signal struct {
	Table          string    `json:"table"`
	Event          string    `json:"event"`
	ConversationID int64     `json:"conversationId"`
	UserID         int64     `json:"userId,omitempty"`
	RowID          int64     `json:"rowId,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan *Signal, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[int64]map[*Client]bool),
		logger:     logger,
	}
}

// AttachFeed subscribes the hub to the change feed. Every published row
// mutation becomes a signal for the clients of its conversation.
func (h *Hub) AttachFeed(feed *changefeed.Broker) {
	h.feedSub = feed.Subscribe("", nil, changefeed.EventAll, func(e changefeed.Event) {
		signal := &Signal{
			Table:          string(e.Table),
			Event:          kindLabel(e.Kind),
			ConversationID: e.ConversationID,
			UserID:         e.UserID,
			RowID:          e.RowID,
			Timestamp:      e.OccurredAt,
		}
		select {
		case h.broadcast <- signal:
		default:
			h.logger.Warn().
				Str("table", signal.Table).
				Int64("conversationID", signal.ConversationID).
				Msg("Dropped signal, hub broadcast buffer full")
		}
	})
}

func kindLabel(kind changefeed.EventKind) string {
	switch kind {
	case changefeed.EventInsert:
		return "insert"
	case changefeed.EventUpdate:
		return "update"
	case changefeed.EventDelete:
		return "delete"
	default:
		return "change"
	}
}

// Run starts the hub, handling client registrations and signal fan-out
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case signal := <-h.broadcast:
			h.broadcastSignal(signal)
		}
	}
}

// Close detaches the hub from the change feed
func (h *Hub) Close() {
	if h.feedSub != nil {
		h.feedSub.Unsubscribe()
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conversationID := client.conversationID
	if _, ok := h.clients[conversationID]; !ok {
		h.clients[conversationID] = make(map[*Client]bool)
	}
	h.clients[conversationID][client] = true

	h.logger.Info().
		Int64("conversationID", conversationID).
		Int64("userID", client.userID).
		Msg("Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conversationID := client.conversationID
	if _, ok := h.clients[conversationID]; ok {
		if _, ok := h.clients[conversationID][client]; ok {
			delete(h.clients[conversationID], client)
			close(client.send)

			if len(h.clients[conversationID]) == 0 {
				delete(h.clients, conversationID)
			}

			h.logger.Info().
				Int64("conversationID", conversationID).
				Int64("userID", client.userID).
				Msg("Client unregistered")
		}
	}
}

// broadcastSignal delivers a signal to every client of its conversation.
// Signals are droppable: a client that misses one re-queries on the next,
// and the stored rows stay authoritative.
func (h *Hub) broadcastSignal(signal *Signal) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.clients[signal.ConversationID]
	if !ok {
		return
	}

	data, err := json.Marshal(signal)
	if err != nil {
		h.logger.Error().
			Err(err).
			Int64("conversationID", signal.ConversationID).
			Msg("Failed to marshal signal for broadcast")
		return
	}

	for client := range clients {
		select {
		case client.send <- data:
		default:
			h.logger.Debug().
				Int64("conversationID", signal.ConversationID).
				Int64("userID", client.userID).
				Msg("Skipped slow client")
		}
	}
}

// ClientCount returns the number of connected clients for a conversation
func (h *Hub) ClientCount(conversationID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if clients, ok := h.clients[conversationID]; ok {
		return len(clients)
	}
	return 0
}
