package handler

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/your-org/lro-swing-bot/internal/engine"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// TickUpdate is pushed to websocket clients after each processed tick.
type TickUpdate struct {
	Type   string              `json:"type"`
	Tick   engine.PricePoint   `json:"tick"`
	Intent *engine.TradeIntent `json:"intent,omitempty"`
	Status engine.BotStatus    `json:"status"`
	Error  string              `json:"error,omitempty"`
}

// Hub fans tick updates out to connected websocket clients. A client
// whose write fails is dropped rather than allowed to stall the feed.
type Hub struct {
	logger *zap.Logger
	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger,
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

// ServeWS upgrades the request and registers the client for updates.
func (h *BotHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	h.hub.add(conn)
	h.logger.Info("websocket client connected", zap.String("remote", conn.RemoteAddr().String()))

	// Drain control frames until the client goes away.
	go func() {
		defer h.hub.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		conn.Close()
	}
}

// Broadcast pushes one update to every connected client.
func (h *Hub) Broadcast(update TickUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(update); err != nil {
			h.logger.Warn("websocket write failed, dropping client", zap.Error(err))
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.Close()
	}
	h.conns = make(map[*websocket.Conn]struct{})
}
