package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Rajat-malhotra0/draw-agent/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// Recorder receives every drawable event that passes through the hub.
type Recorder interface {
	Apply(ctx context.Context, ev models.DrawEvent) (int, error)
}

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

// Hub relays draw events between every connected board. It lives for the
// whole process; there is no replay buffer for late joiners.
type Hub struct {
	mu           sync.RWMutex
	clients      map[uuid.UUID]*client
	upgrader     websocket.Upgrader
	recorder     Recorder
	logger       zerolog.Logger
	onDisconnect []func(clientID uuid.UUID)
}

func NewHub(recorder Recorder, allowedOrigin string, logger zerolog.Logger) *Hub {
	return &Hub{
		clients:  make(map[uuid.UUID]*client),
		recorder: recorder,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigin),
		},
	}
}

func originChecker(allowed string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return allowed == "" || allowed == "*" || origin == "" || origin == allowed
	}
}

// OnDisconnect registers fn to run after a client has been removed.
func (h *Hub) OnDisconnect(fn func(clientID uuid.UUID)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDisconnect = append(h.onDisconnect, fn)
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{id: uuid.New(), conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)

	go h.writePump(c)
	go h.readPump(c)
}

// Clients reports the number of connected boards.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a server-originated event to every client.
func (h *Hub) Broadcast(event string, payload any) error {
	data, err := encode(event, payload)
	if err != nil {
		return err
	}
	h.fanOut(uuid.Nil, data)
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	if data, err := encode(models.EventConnected, models.ConnectedEvent{ClientID: c.id.String()}); err == nil {
		c.send <- data
	}

	h.logger.Info().Str("client_id", c.id.String()).Int("total", total).Msg("client connected")
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	hooks := append([]func(uuid.UUID){}, h.onDisconnect...)
	h.mu.Unlock()

	c.conn.Close()
	for _, fn := range hooks {
		fn(c.id)
	}

	h.logger.Info().Str("client_id", c.id.String()).Msg("client disconnected")
}

// fanOut queues data for every client except skip. A client whose queue is
// full is dropped rather than allowed to stall the others.
func (h *Hub) fanOut(skip uuid.UUID, data []byte) {
	var slow []*client

	h.mu.RLock()
	for id, c := range h.clients {
		if id == skip {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn().Str("client_id", c.id.String()).Msg("send queue full, dropping client")
		h.unregister(c)
	}
}

func (h *Hub) readPump(c *client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Str("client_id", c.id.String()).Msg("read failed")
			}
			return
		}

		var msg models.WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug().Err(err).Str("client_id", c.id.String()).Msg("ignoring malformed frame")
			continue
		}
		h.route(c, msg)
	}
}

// route applies the relay rules: draw and clear go to everyone but the
// sender, llm-draw goes to everyone.
func (h *Hub) route(c *client, msg models.WSMessage) {
	var ev models.DrawEvent
	var skip uuid.UUID

	switch msg.Type {
	case models.EventDraw:
		ev = models.DrawEvent{Action: models.ActionLine, Data: msg.Payload}
		skip = c.id
	case models.EventClear:
		ev = models.NewClearEvent()
		skip = c.id
	case models.EventLLMDraw:
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			h.logger.Debug().Err(err).Str("client_id", c.id.String()).Msg("ignoring malformed llm-draw")
			return
		}
	default:
		h.logger.Debug().Str("client_id", c.id.String()).Str("type", msg.Type).Msg("ignoring unknown event")
		return
	}

	if h.recorder != nil {
		if _, err := h.recorder.Apply(context.Background(), ev); err != nil {
			h.logger.Debug().Err(err).Str("type", msg.Type).Msg("event not recorded")
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.fanOut(skip, data)
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func encode(event string, payload any) ([]byte, error) {
	msg := models.WSMessage{Type: event}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = raw
	}
	return json.Marshal(msg)
}
