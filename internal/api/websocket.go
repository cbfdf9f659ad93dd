package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/smartegg/smartegg-core/internal/incubation"
	"github.com/smartegg/smartegg-core/internal/infrastructure/config"
	"github.com/smartegg/smartegg-core/internal/infrastructure/logging"
	"github.com/smartegg/smartegg-core/internal/realtime"
)

// WebSocket constants.
const (
	WSTypeJoin        = "join-incubation"
	WSTypeLeave       = "leave-incubation"
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// wsSendBufferSize is the per-client outbound message buffer size.
	wsSendBufferSize = 256

	// wsJoinTimeout bounds the ownership lookup behind a join.
	wsJoinTimeout = 5 * time.Second
)

// WSMessage represents a message sent to/from a WebSocket client.
type WSMessage struct {
	Type         string `json:"type"`
	ID           string `json:"id,omitempty"`
	EventType    string `json:"event_type,omitempty"`
	IncubationID string `json:"incubation_id,omitempty"`
	Timestamp    string `json:"timestamp,omitempty"`
	Payload      any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload for subscribe/unsubscribe messages.
// Channels are incubation ids.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// IncubationOwner resolves an incubation only when userID owns it.
type IncubationOwner interface {
	Get(ctx context.Context, id, userID string) (*incubation.Incubation, error)
}

// Hub manages WebSocket connections. Event fan-out is delegated to the
// realtime broker: every client is a broker subscriber.
type Hub struct {
	cfg         config.WebSocketConfig
	logger      *logging.Logger
	broker      *realtime.Broker
	incubations IncubationOwner
	clients     map[*WSClient]struct{}
	mu          sync.RWMutex
}

// WSClient represents a connected WebSocket client.
type WSClient struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string // propagated from the WebSocket ticket
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a new WebSocket hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger, broker *realtime.Broker, incubations IncubationOwner) *Hub {
	return &Hub{
		cfg:         cfg,
		logger:      logger,
		broker:      broker,
		incubations: incubations,
		clients:     make(map[*WSClient]struct{}),
	}
}

// Run blocks until the context is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "user_id", client.userID, "clients", h.ClientCount())
}

// Unregister removes a client from the hub and from every broker topic.
// Only the goroutine that successfully removes the client from the map
// closes the send channel, preventing double-close panics during shutdown.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if existed {
		// Unsubscribe first so no publish can race the close.
		h.broker.UnsubscribeAll(client)
		close(client.send)
	}
	h.logger.Debug("websocket client disconnected", "clients", h.ClientCount())
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects all clients and closes their send channels
// so writePump goroutines can exit cleanly.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		h.broker.UnsubscribeAll(client)
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
}

// handleWebSocket upgrades the HTTP connection to a WebSocket connection.
// Authentication is via ticket query parameter (obtained from POST /auth/ws-ticket).
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		writeUnauthorized(w, "ticket query parameter is required")
		return
	}
	entry, ok := s.tickets.consume(ticket)
	if !ok {
		writeUnauthorized(w, "invalid or expired ticket")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		hub:    s.hub,
		conn:   conn,
		send:   make(chan []byte, wsSendBufferSize),
		userID: entry.userID,
	}

	s.hub.Register(client)

	// Start read/write pumps
	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// Send implements realtime.Subscriber. It never blocks and reports false
// when the event was dropped.
func (c *WSClient) Send(e realtime.Event) bool {
	data, err := json.Marshal(WSMessage{
		Type:         WSTypeEvent,
		EventType:    e.Name,
		IncubationID: e.IncubationID,
		Timestamp:    e.Timestamp.UTC().Format(time.RFC3339),
		Payload:      e.Payload,
	})
	if err != nil {
		c.hub.logger.Error("failed to marshal websocket event", "event", e.Name, "error", err)
		return false
	}
	return c.trySend(data)
}

// readPump reads messages from the WebSocket connection.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		// Any client message resets the read deadline (keeps connection alive
		// even if browser doesn't respond to protocol-level pings).
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		c.handleMessage(message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	pongWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub closed the channel
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming WebSocket message.
func (c *WSClient) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypeJoin:
		c.handleJoin(msg, []string{joinTarget(msg)})
	case WSTypeLeave:
		c.handleLeave(msg, []string{joinTarget(msg)})
	case WSTypeSubscribe, WSTypeUnsubscribe:
		channels, ok := decodeChannels(msg.Payload)
		if !ok {
			c.sendError(msg.ID, "invalid "+msg.Type+" payload")
			return
		}
		if msg.Type == WSTypeSubscribe {
			c.handleJoin(msg, channels)
		} else {
			c.handleLeave(msg, channels)
		}
	case WSTypePing:
		c.sendResponse(msg.ID, WSTypePong, nil)
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

// handleJoin subscribes the client to each incubation it owns. The first
// failed lookup stops the join and is reported to the client.
func (c *WSClient) handleJoin(msg WSMessage, ids []string) {
	ctx, cancel := context.WithTimeout(context.Background(), wsJoinTimeout)
	defer cancel()

	joined := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			c.sendError(msg.ID, "incubationId is required")
			return
		}
		if _, err := c.hub.incubations.Get(ctx, id, c.userID); err != nil {
			if errors.Is(err, incubation.ErrIncubationNotFound) {
				c.sendError(msg.ID, "incubation not found: "+id)
			} else {
				c.hub.logger.Error("websocket join lookup failed", "incubation_id", id, "error", err)
				c.sendError(msg.ID, "failed to join incubation")
			}
			return
		}
		c.hub.broker.Subscribe(realtime.Topic(id), c)
		joined = append(joined, id)
	}

	c.hub.logger.Debug("websocket client joined", "user_id", c.userID, "incubations", joined)
	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"joined": joined})
}

// handleLeave unsubscribes the client. Leaving a room never joined is a no-op.
func (c *WSClient) handleLeave(msg WSMessage, ids []string) {
	left := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		c.hub.broker.Unsubscribe(realtime.Topic(id), c)
		left = append(left, id)
	}
	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"left": left})
}

// joinTarget extracts the incubation id from a join or leave message. The
// payload may be the bare id or an object with an incubationId field.
func joinTarget(msg WSMessage) string {
	switch p := msg.Payload.(type) {
	case string:
		return p
	case map[string]any:
		id, _ := p["incubationId"].(string)
		return id
	}
	return msg.IncubationID
}

// decodeChannels reads a WSSubscribePayload out of a generic payload.
func decodeChannels(payload any) ([]string, bool) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, false
	}
	var sub WSSubscribePayload
	if err := json.Unmarshal(raw, &sub); err != nil || len(sub.Channels) == 0 {
		return nil, false
	}
	return sub.Channels, true
}

// trySend attempts to send data to the client's send channel.
// It reports false for closed channels (client disconnected during publish)
// and full buffers (slow client).
func (c *WSClient) trySend(data []byte) (sent bool) {
	defer func() {
		if recover() != nil {
			sent = false
		}
	}()

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// sendResponse sends a response message to the client.
// Routes through trySend to safely handle closed channels during shutdown.
func (c *WSClient) sendResponse(id, msgType string, payload any) {
	msg := WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(data)
}

// sendError sends an error message to the client.
func (c *WSClient) sendError(id, message string) {
	c.sendResponse(id, WSTypeError, map[string]string{"message": message})
}
