// Package realtime streams notifications and geofence events to websocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"spending-guard/internal/models"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MaxClients = 1000

	sendBufferSize = 64
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
)

var normalCloseCodes = []int{
	websocket.CloseNormalClosure,
	websocket.CloseGoingAway,
	websocket.CloseNoStatusReceived,
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		host := r.Host
		return origin == "http://"+host || origin == "https://"+host
	},
}

type EventType string

const (
	EventNotification EventType = "notification"
	EventGeofence     EventType = "geofence"
	EventInsight      EventType = "insight"
)

type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Subscription is sent by a client to narrow what it receives.
type Subscription struct {
	AllEvents  bool                          `json:"all_events"`
	EventTypes []EventType                   `json:"event_types"`
	Severities []models.NotificationSeverity `json:"severities"`
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	mu   sync.RWMutex
	sub  Subscription
}

// Hub fans events out to connected websocket clients. It satisfies the notification
// sink contract through Notify.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *Event
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	logger     *slog.Logger
	done       chan struct{}
	maxClients int

	totalEvents    atomic.Int64
	activeClients  prometheus.Gauge
	droppedClients prometheus.Counter
}

// NewHub creates a hub. reg may be nil to skip metric registration.
func NewHub(logger *slog.Logger, reg prometheus.Registerer) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	factory := promauto.With(reg)
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
		done:       make(chan struct{}),
		maxClients: MaxClients,
		activeClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "spending_guard_websocket_clients",
			Help: "Connected websocket clients",
		}),
		droppedClients: factory.NewCounter(prometheus.CounterOpts{
			Name: "spending_guard_websocket_slow_clients_dropped_total",
			Help: "Websocket clients disconnected for not keeping up",
		}),
	}
}

// Run is the hub loop. Call in a goroutine; it returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("realtime hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.activeClients.Set(0)
			h.logger.Info("realtime hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.activeClients.Set(float64(n))
			h.logger.Debug("websocket client connected", "total", n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.activeClients.Set(float64(n))
			h.logger.Debug("websocket client disconnected", "total", n)

		case event := <-h.broadcast:
			h.totalEvents.Add(1)
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to encode realtime event", "type", event.Type, "error", err)
				continue
			}

			h.mu.RLock()
			var slow []*Client
			for client := range h.clients {
				if !shouldSend(client, event) {
					continue
				}
				select {
				case client.send <- payload:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()

			if len(slow) > 0 {
				h.mu.Lock()
				for _, client := range slow {
					if _, ok := h.clients[client]; ok {
						close(client.send)
						delete(h.clients, client)
						h.droppedClients.Inc()
					}
				}
				h.mu.Unlock()
			}
		}
	}
}

func shouldSend(client *Client, event *Event) bool {
	client.mu.RLock()
	sub := client.sub
	client.mu.RUnlock()

	if sub.AllEvents {
		return true
	}

	if len(sub.EventTypes) > 0 {
		matched := false
		for _, t := range sub.EventTypes {
			if t == event.Type {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(sub.Severities) > 0 {
		n, ok := event.Data.(models.Notification)
		if !ok {
			return true
		}
		for _, s := range sub.Severities {
			if s == n.Severity {
				return true
			}
		}
		return false
	}

	return true
}

// Broadcast queues an event; it never blocks.
func (h *Hub) Broadcast(event *Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("realtime broadcast queue full, dropping event", "type", event.Type)
	}
}

// Notify broadcasts a notification to subscribed clients.
func (h *Hub) Notify(_ context.Context, n models.Notification) {
	h.Broadcast(&Event{Type: EventNotification, Timestamp: n.Timestamp, Data: n})
}

func (h *Hub) BroadcastGeofenceEvent(e models.GeofenceEvent) {
	h.Broadcast(&Event{Type: EventGeofence, Timestamp: e.OccurredAt, Data: e})
}

func (h *Hub) BroadcastInsight(in models.Insight) {
	h.Broadcast(&Event{Type: EventInsight, Timestamp: in.GeneratedAt, Data: in})
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats reports the connection and event totals shown by the health check.
func (h *Hub) Stats() map[string]any {
	return map[string]any{
		"connected_clients": h.ClientCount(),
		"total_events":      h.totalEvents.Load(),
	}
}

// HandleWebSocket upgrades the request and registers the client.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	if h.ClientCount() >= h.maxClients {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		sub:  Subscription{AllEvents: true},
	}

	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump applies subscription updates sent by the client.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, normalCloseCodes...) {
				c.hub.logger.Debug("websocket read error", "error", err)
			}
			return
		}

		var sub Subscription
		if err := json.Unmarshal(message, &sub); err != nil {
			continue
		}
		c.mu.Lock()
		c.sub = sub
		c.mu.Unlock()
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Debug("websocket write error", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
