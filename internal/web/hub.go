package web

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aegisai/aegisdash/internal/console"
	"github.com/aegisai/aegisdash/internal/metrics"
	"github.com/gofiber/websocket/v2"
)

// message is the websocket payload: {type, target, html, visible}
type message struct {
	Type string `json:"type"`
	console.Fragment
}

func encodeFragment(f console.Fragment) []byte {
	data, _ := json.Marshal(message{Type: "fragment", Fragment: f})
	return data
}

// Hub fans fragment updates out to websocket clients
type Hub struct {
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan []byte
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func newHub(m *metrics.Metrics, logger *slog.Logger) *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 100),
		metrics:   m,
		logger:    logger,
	}
}

// serve registers conn, sends it the initial messages and blocks until the
// client goes away
func (h *Hub) serve(conn *websocket.Conn, initial [][]byte) {
	h.clientsMu.Lock()
	h.clients[conn] = true
	h.clientsMu.Unlock()
	h.metrics.WSConnected(1)

	defer func() {
		h.clientsMu.Lock()
		if h.clients[conn] {
			delete(h.clients, conn)
			h.metrics.WSConnected(-1)
		}
		h.clientsMu.Unlock()
		conn.Close()
	}()

	h.clientsMu.Lock()
	for _, msg := range initial {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.clientsMu.Unlock()
			return
		}
	}
	h.clientsMu.Unlock()

	// Keep connection alive
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// run writes queued messages to every client until the channel closes
func (h *Hub) run() {
	for msg := range h.broadcast {
		h.clientsMu.Lock()
		for client := range h.clients {
			if err := client.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("dropping websocket client", slog.Any("error", err))
				client.Close()
				delete(h.clients, client)
				h.metrics.WSConnected(-1)
			}
		}
		h.clientsMu.Unlock()
	}
}

// publish queues msg, dropping it when the queue is full
func (h *Hub) publish(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Debug("broadcast queue full, update dropped")
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	return len(h.clients)
}

func (h *Hub) close() {
	close(h.broadcast)
}
