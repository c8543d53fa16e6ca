// Package realtime pushes sensor updates to websocket subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	"greenorbit/internal/metrics"
	"greenorbit/internal/models"
)

const writeTimeout = 5 * time.Second

// inbound is a client frame
type inbound struct {
	Type   string `json:"type"`
	FarmID string `json:"farmId"`
}

// Notice is a control frame sent to a client
type Notice struct {
	Type      string    `json:"type"`
	FarmID    string    `json:"farmId,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes
	farm string
}

func (c *client) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return websocket.Message.Send(c.conn, string(data))
}

// Hub tracks websocket clients and their farm subscriptions. A client follows at most
// one farm; subscribing again moves it.
type Hub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	farms   map[string]map[*client]struct{}
}

// NewHub creates a hub with no connected clients
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
		farms:   make(map[string]map[*client]struct{}),
	}
}

// Handler serves the websocket endpoint. Browsers on any origin may connect.
func (h *Hub) Handler() http.Handler {
	return websocket.Server{
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler:   h.serve,
	}
}

func (h *Hub) serve(conn *websocket.Conn) {
	c := &client{conn: conn}
	h.register(c)
	defer h.unregister(c)

	_ = c.send(Notice{
		Type:      "connection",
		Message:   "Connected to GreenOrbit real-time server",
		Timestamp: time.Now().UTC(),
	})
	metrics.WSMessagesTotal.WithLabelValues("out", "connection").Inc()

	for {
		var raw string
		if err := websocket.Message.Receive(conn, &raw); err != nil {
			return
		}

		var msg inbound
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			h.logger.Debug("ignoring malformed websocket frame", zap.Error(err))
			metrics.WSMessagesTotal.WithLabelValues("in", "malformed").Inc()
			continue
		}
		metrics.WSMessagesTotal.WithLabelValues("in", msg.Type).Inc()

		switch msg.Type {
		case "subscribe":
			if msg.FarmID == "" {
				continue
			}
			h.subscribe(c, msg.FarmID)
			_ = c.send(Notice{
				Type:      "subscribed",
				FarmID:    msg.FarmID,
				Message:   "Subscribed to updates for " + msg.FarmID,
				Timestamp: time.Now().UTC(),
			})
		case "unsubscribe":
			h.unsubscribe(c)
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WSClients.Set(float64(n))
	h.logger.Debug("websocket client connected", zap.Int("clients", n))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	h.detach(c)
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WSClients.Set(float64(n))
	h.logger.Debug("websocket client disconnected", zap.Int("clients", n))
}

func (h *Hub) subscribe(c *client, farmID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.detach(c)
	subs, ok := h.farms[farmID]
	if !ok {
		subs = make(map[*client]struct{})
		h.farms[farmID] = subs
	}
	subs[c] = struct{}{}
	c.farm = farmID
}

func (h *Hub) unsubscribe(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detach(c)
}

// detach removes c from its farm. Caller holds h.mu.
func (h *Hub) detach(c *client) {
	if c.farm == "" {
		return
	}
	if subs, ok := h.farms[c.farm]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.farms, c.farm)
		}
	}
	c.farm = ""
}

// HasSubscribers reports whether any client follows the farm
func (h *Hub) HasSubscribers(farmID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.farms[farmID]) > 0
}

// Clients is the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish sends the update to every subscriber of its farm. Failed writes are logged;
// the reader loop removes dead clients.
func (h *Hub) Publish(_ context.Context, u models.SensorUpdate) error {
	h.mu.RLock()
	subs := make([]*client, 0, len(h.farms[u.FarmID]))
	for c := range h.farms[u.FarmID] {
		subs = append(subs, c)
	}
	h.mu.RUnlock()

	for _, c := range subs {
		if err := c.send(u); err != nil {
			h.logger.Debug("websocket send failed", zap.String("farm_id", u.FarmID), zap.Error(err))
			continue
		}
		metrics.WSMessagesTotal.WithLabelValues("out", u.Type).Inc()
	}
	return nil
}
