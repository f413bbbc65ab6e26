package service

import (
	"encoding/json"
	"sync"

	"github.com/adrianoneco/app-chatapp/internal/logger"
	"github.com/adrianoneco/app-chatapp/internal/metrics"
	"github.com/adrianoneco/app-chatapp/internal/model"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

type WSClient struct {
	Conn   *websocket.Conn
	UserID string
	Name   string
	Role   model.Role
	Send   chan []byte

	// done is closed when the hub drops the client. Send is never closed so
	// late writers cannot panic.
	done     chan struct{}
	doneOnce sync.Once
}

func NewWSClient(conn *websocket.Conn, p *model.Principal, buffer int) *WSClient {
	return &WSClient{
		Conn:   conn,
		UserID: p.UserID,
		Name:   p.Name,
		Role:   p.Role,
		Send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
}

// Done is closed once the client has been unregistered or evicted.
func (c *WSClient) Done() <-chan struct{} { return c.done }

// Queue hands data to the writer without blocking. It reports false when the
// buffer is full or the client is gone.
func (c *WSClient) Queue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *WSClient) stop() {
	c.doneOnce.Do(func() { close(c.done) })
}

// accepts applies the tenancy rule to realtime delivery: admins receive every
// event, clients only public events of their own conversations.
func (c *WSClient) accepts(env *model.Envelope) bool {
	if c.Role == model.RoleAdmin {
		return true
	}
	return !env.Private && env.ClientID != "" && env.ClientID == c.UserID
}

type WSHub struct {
	clients    map[*WSClient]bool
	register   chan *WSClient
	unregister chan *WSClient
	broadcast  chan *model.Envelope
	mu         sync.RWMutex
	done       chan struct{}
}

func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		broadcast:  make(chan *model.Envelope, 256),
		done:       make(chan struct{}),
	}
}

func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WSConnections.Set(float64(total))
			logger.Log.Debug("ws connected", zap.String("user", client.UserID), zap.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.stop()
			}
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WSConnections.Set(float64(total))
			logger.Log.Debug("ws disconnected", zap.String("user", client.UserID), zap.Int("total", total))

		case env := <-h.broadcast:
			h.deliver(env)

		case <-h.done:
			return
		}
	}
}

func (h *WSHub) deliver(env *model.Envelope) {
	data, err := json.Marshal(env.Event)
	if err != nil {
		logger.Log.Error("ws marshal event", zap.String("type", env.Event.Type), zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if !client.accepts(env) {
			continue
		}
		if !client.Queue(data) {
			// slow consumer
			client.stop()
			delete(h.clients, client)
			logger.Log.Debug("ws client evicted", zap.String("user", client.UserID))
		}
	}
	metrics.WSEvents.WithLabelValues(env.Event.Type).Inc()
}

func (h *WSHub) Shutdown() {
	close(h.done)
}

// Register adds client to the hub. After Shutdown the client is stopped
// instead.
func (h *WSHub) Register(client *WSClient) {
	select {
	case h.register <- client:
	case <-h.done:
		client.stop()
	}
}

func (h *WSHub) Unregister(client *WSClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.stop()
	}
}

// Publish queues an event for delivery. It never blocks the caller; events
// are dropped when the queue is full.
func (h *WSHub) Publish(env *model.Envelope) {
	select {
	case h.broadcast <- env:
	default:
		logger.Log.Warn("ws queue full, dropping event", zap.String("type", env.Event.Type))
	}
}

func (h *WSHub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// emit wraps payload into an envelope owned by clientID and publishes it.
func emit(pub Publisher, eventType, clientID string, private bool, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Error("marshal realtime payload", zap.String("type", eventType), zap.Error(err))
		return
	}
	pub.Publish(&model.Envelope{
		Event:    model.WSEvent{Type: eventType, Data: data},
		ClientID: clientID,
		Private:  private,
	})
}
