package handlers

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mapgroups/server/internal/observability"
	"github.com/mapgroups/server/internal/services"
)

// WebSocketHandler streams import progress to browsers
type WebSocketHandler struct {
	hub      *services.WebSocketHub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler. checkOrigin may be nil
// to accept any origin.
func NewWebSocketHandler(hub *services.WebSocketHub, checkOrigin func(r *http.Request) bool) *WebSocketHandler {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// HandleConnection upgrades HTTP to WebSocket and manages the connection
// @Summary Import progress stream
// @Description Send {"type":"subscribe","payload":{"topic":"import:<importId>"}} to receive import_progress and import_complete messages
// @Tags import
// @Router /api/ws [get]
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	device, ok := currentDevice(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		observability.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := h.hub.NewClient(uuid.New().String(), device.ID, conn)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	client.ReadPump(h.handleMessage)
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(client *services.WSClient, messageType int, data []byte) {
	if messageType != websocket.TextMessage {
		return
	}

	var msg services.WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.reply(client, services.WSTypeError, "invalid message")
		return
	}

	switch msg.Type {
	case services.WSTypeSubscribe:
		topic := topicOf(msg.Payload)
		if !services.IsImportTopic(topic) {
			h.reply(client, services.WSTypeError, "unknown topic")
			return
		}
		h.hub.Subscribe(client, topic)
		h.reply(client, services.WSTypeSubscribed, map[string]string{"topic": topic})

	case services.WSTypeUnsubscribe:
		h.hub.Unsubscribe(client, topicOf(msg.Payload))

	case services.WSTypePing:
		h.reply(client, services.WSTypePong, nil)

	default:
		observability.Debug().Str("type", msg.Type).Str("client_id", client.ID).Msg("Unknown WebSocket message type")
	}
}

func (h *WebSocketHandler) reply(client *services.WSClient, msgType string, payload interface{}) {
	h.hub.SendToClient(client, services.WSMessage{Type: msgType, Payload: payload})
}

// topicOf accepts either a bare topic string or {"topic": "..."}
func topicOf(payload interface{}) string {
	switch p := payload.(type) {
	case string:
		return p
	case map[string]interface{}:
		if topic, ok := p["topic"].(string); ok {
			return topic
		}
	}
	return ""
}
