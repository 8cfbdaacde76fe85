package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event is the wire format of the push channel. Clients treat every event as
// a cache-invalidation signal, so the type discriminator is the only payload.
type Event struct {
	Type string `json:"type"`
}

// Hub fans events out to every connected websocket client. A slow or dead
// connection is dropped rather than allowed to stall a broadcast.
type Hub struct {
	logger       *zap.Logger
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	pingInterval time.Duration

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}

	// Serializes data frames: mutation handlers broadcast concurrently and
	// gorilla connections permit only one writer at a time.
	writeMu sync.Mutex
}

func NewHub(logger *zap.Logger, writeTimeout, pingInterval time.Duration) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			// The review UI and todoctl connect from arbitrary origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		conns:        make(map[*websocket.Conn]struct{}),
	}
}

// HandleEvents upgrades the request and keeps the connection registered until
// the peer goes away.
func (h *Hub) HandleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	count := len(h.conns)
	h.mu.Unlock()

	h.logger.Info("event subscriber connected",
		zap.String("remote", conn.RemoteAddr().String()),
		zap.Int("subscribers", count),
	)

	go h.ping(conn)

	// The channel is one-way; reading only serves to detect the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.drop(conn)
}

// Broadcast sends a typed event to every subscriber.
func (h *Hub) Broadcast(eventType string) {
	event := Event{Type: eventType}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	for _, conn := range conns {
		_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := conn.WriteJSON(event); err != nil {
			h.logger.Warn("dropping event subscriber",
				zap.String("remote", conn.RemoteAddr().String()),
				zap.Error(err),
			)
			h.drop(conn)
		}
	}
}

// Close disconnects all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.conns = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}

func (h *Hub) ping(conn *websocket.Conn) {
	t := time.NewTicker(h.pingInterval)
	defer t.Stop()
	for range t.C {
		h.mu.Lock()
		_, registered := h.conns[conn]
		h.mu.Unlock()
		if !registered {
			return
		}

		_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeTimeout)); err != nil {
			h.drop(conn)
			return
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, registered := h.conns[conn]
	delete(h.conns, conn)
	h.mu.Unlock()

	if registered {
		_ = conn.Close()
	}
}
