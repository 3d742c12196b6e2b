// internal/server/hub.go
package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// upgrader is used to upgrade HTTP connections to WebSocket connections.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dev server only listens for local browsers.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub tracks live-reload clients and broadcasts messages to them.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	log     logrus.FieldLogger
}

func newHub(log logrus.FieldLogger) *Hub {
	return &Hub{clients: make(map[*websocket.Conn]bool), log: log}
}

func (h *Hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
	h.log.Debug("live-reload client connected")
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
		h.log.Debug("live-reload client disconnected")
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast sends message to every client, dropping clients that fail.
func (h *Hub) broadcast(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
			h.log.WithError(err).Warn("dropping live-reload client")
			client.Close()
			delete(h.clients, client)
		}
	}
}

// serveWs upgrades the request and holds the connection until the client
// goes away. Clients never send anything.
func (h *Hub) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	h.register(conn)
	defer h.unregister(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
