package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/mapgroups/server/internal/models"
	"github.com/mapgroups/server/internal/observability"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WSClient represents a connected WebSocket client
type WSClient struct {
	ID         string
	DeviceID   string
	Topics     map[string]bool
	Conn       *websocket.Conn
	Send       chan []byte
	hub        *WebSocketHub
	mu         sync.Mutex
	closedOnce sync.Once
}

// WebSocketHub manages WebSocket connections and topic fan-out
type WebSocketHub struct {
	clients    map[*WSClient]bool
	topics     map[string]map[*WSClient]bool // topic -> clients
	register   chan *WSClient
	unregister chan *WSClient
	broadcast  chan *broadcastMsg
	done       chan struct{}
	doneOnce   sync.Once
	mu         sync.RWMutex
}

type broadcastMsg struct {
	topic   string
	message []byte
}

// NewWebSocketHub creates a new WebSocket hub
func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*WSClient]bool),
		topics:     make(map[string]map[*WSClient]bool),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		broadcast:  make(chan *broadcastMsg, 256),
		done:       make(chan struct{}),
	}
}

// RunWithContext runs the hub's main loop until ctx is cancelled, then
// disconnects every client.
func (h *WebSocketHub) RunWithContext(ctx context.Context) error {
	defer h.doneOnce.Do(func() { close(h.done) })
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.removeLocked(client)
			}
			h.mu.Unlock()
			return ctx.Err()

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			observability.Debug().Str("client_id", client.ID).Msg("WebSocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
			observability.Debug().Str("client_id", client.ID).Msg("WebSocket client disconnected")

		case msg := <-h.broadcast:
			h.mu.RLock()
			targets := h.clients
			if msg.topic != "" {
				targets = h.topics[msg.topic]
			}

			for client := range targets {
				select {
				case client.Send <- msg.message:
				default:
					// Client buffer full, close connection
					go h.Unregister(client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *WebSocketHub) removeLocked(client *WSClient) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for topic := range client.Topics {
		if topicClients, ok := h.topics[topic]; ok {
			delete(topicClients, client)
			if len(topicClients) == 0 {
				delete(h.topics, topic)
			}
		}
	}
	close(client.Send)
}

// Register adds a client to the hub. It reports false once the hub has stopped.
func (h *WebSocketHub) Register(client *WSClient) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub
func (h *WebSocketHub) Unregister(client *WSClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Subscribe adds a registered client to a topic
func (h *WebSocketHub) Subscribe(client *WSClient, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client] {
		return
	}

	client.Topics[topic] = true
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*WSClient]bool)
	}
	h.topics[topic][client] = true
	observability.Debug().Str("client_id", client.ID).Str("topic", topic).Msg("WebSocket client subscribed")
}

// Unsubscribe removes a client from a topic
func (h *WebSocketHub) Unsubscribe(client *WSClient, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(client.Topics, topic)
	if topicClients, ok := h.topics[topic]; ok {
		delete(topicClients, client)
		if len(topicClients) == 0 {
			delete(h.topics, topic)
		}
	}
}

// BroadcastToTopic sends a message to all clients subscribed to a topic.
// Messages are dropped when the hub is saturated.
func (h *WebSocketHub) BroadcastToTopic(topic string, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		observability.Error().Err(err).Str("type", msg.Type).Msg("Error marshaling WebSocket message")
		return
	}

	select {
	case h.broadcast <- &broadcastMsg{topic: topic, message: data}:
	default:
		observability.Warn().Str("topic", topic).Msg("WebSocket broadcast queue full, dropping message")
	}
}

// SendToClient queues a message for one registered client. It reports false
// when the client is gone or its buffer is full.
func (h *WebSocketHub) SendToClient(client *WSClient, msg WSMessage) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		observability.Error().Err(err).Str("type", msg.Type).Msg("Error marshaling WebSocket message")
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[client] {
		return false
	}
	select {
	case client.Send <- data:
		return true
	default:
		return false
	}
}

// ImportProgress publishes one pipeline step on the import's topic
func (h *WebSocketHub) ImportProgress(p models.ImportProgress) {
	h.BroadcastToTopic(ImportTopic(p.ImportID), WSMessage{Type: WSTypeImportProgress, Payload: p})
}

// ImportComplete publishes the final result on the import's topic
func (h *WebSocketHub) ImportComplete(importID string, result models.ImportResult) {
	h.BroadcastToTopic(ImportTopic(importID), WSMessage{
		Type: WSTypeImportComplete,
		Payload: ImportCompletePayload{
			ImportID:   importID,
			Total:      result.Total,
			Successful: len(result.Successful),
			Failed:     len(result.Failed),
			Cancelled:  result.Cancelled,
		},
	})
}

// GetClientCount returns the number of connected clients
func (h *WebSocketHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetTopicSubscriberCount returns the number of subscribers for a topic
func (h *WebSocketHub) GetTopicSubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.topics[topic]; ok {
		return len(clients)
	}
	return 0
}

// NewClient creates a new WebSocket client connected to this hub
func (h *WebSocketHub) NewClient(id, deviceID string, conn *websocket.Conn) *WSClient {
	return &WSClient{
		ID:       id,
		DeviceID: deviceID,
		Topics:   make(map[string]bool),
		Conn:     conn,
		Send:     make(chan []byte, 256),
		hub:      h,
	}
}

// WSClient methods

// Close closes the client connection
func (c *WSClient) Close() {
	c.closedOnce.Do(func() {
		c.hub.Unregister(c)
		c.Conn.Close()
	})
}

// WritePump pumps messages from the hub to the websocket connection
func (c *WSClient) WritePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.mu.Lock()
			err := c.Conn.WriteMessage(websocket.TextMessage, message)
			c.mu.Unlock()

			if err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump pumps messages from the websocket connection to the hub
func (c *WSClient) ReadPump(onMessage func(client *WSClient, messageType int, data []byte)) {
	defer c.Close()

	c.Conn.SetReadLimit(64 * 1024)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				observability.Warn().Err(err).Str("client_id", c.ID).Msg("WebSocket error")
			}
			break
		}

		if onMessage != nil {
			onMessage(c, messageType, message)
		}
	}
}

// Common message types
const (
	WSTypeImportProgress = "import_progress"
	WSTypeImportComplete = "import_complete"
	WSTypeError          = "error"
	WSTypeSubscribe      = "subscribe"
	WSTypeUnsubscribe    = "unsubscribe"
	WSTypeSubscribed     = "subscribed"
	WSTypePing           = "ping"
	WSTypePong           = "pong"
)

// TopicImportPrefix prefixes per-import topics: import:{importID}
const TopicImportPrefix = "import:"

// ImportTopic returns the topic carrying progress of one import
func ImportTopic(importID string) string {
	return TopicImportPrefix + importID
}

// IsImportTopic reports whether topic is a well-formed import topic
func IsImportTopic(topic string) bool {
	id, ok := strings.CutPrefix(topic, TopicImportPrefix)
	return ok && models.IsValidID(id)
}

// ImportCompletePayload is sent when an import finishes
type ImportCompletePayload struct {
	ImportID   string `json:"importId"`
	Total      int    `json:"total"`
	Successful int    `json:"successful"`
	Failed     int    `json:"failed"`
	Cancelled  bool   `json:"cancelled"`
}
