// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"specviz/internal/analysis"
	applog "specviz/internal/log"
)

// curveFrame is the wire format: one generation-stamped curve per
// message, points normalized to [0, 1] for the renderer to scale.
type curveFrame struct {
	Generation uint64           `json:"generation"`
	Points     []analysis.Point `json:"points"`
}

// WebSocketTransport broadcasts each published curve to connected
// renderer clients on /spectrum, rate limited so a fast analysis loop
// cannot flood slow clients.
type WebSocketTransport struct {
	clients      map[*websocket.Conn]bool
	clientsMutex sync.Mutex
	upgrader     websocket.Upgrader
	server       *http.Server

	lastSend    time.Time
	minInterval time.Duration
}

// NewWebSocketTransport starts a WebSocket server on addr and returns
// the transport. The server runs on its own goroutine.
func NewWebSocketTransport(addr string, minInterval time.Duration) *WebSocketTransport {
	if minInterval <= 0 {
		minInterval = 16 * time.Millisecond // ~60 Hz cap
	}

	t := &WebSocketTransport{
		clients:     make(map[*websocket.Conn]bool),
		minInterval: minInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true // local renderer collaborators only
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/spectrum", t.handleWebSocket)
	t.server = &http.Server{Addr: addr, Handler: mux}

	go func() {
		applog.Infof("Transport: spectrum WebSocket listening on %s", addr)
		if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
			applog.Errorf("Transport: WebSocket server error: %v", err)
		}
	}()

	return t
}

func (t *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("Transport: WebSocket upgrade error: %v", err)
		return
	}

	t.clientsMutex.Lock()
	t.clients[conn] = true
	t.clientsMutex.Unlock()

	// Reads are only needed to notice the client going away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				t.clientsMutex.Lock()
				delete(t.clients, conn)
				t.clientsMutex.Unlock()
				conn.Close()
				return
			}
		}
	}()
}

// Send broadcasts the curve to all connected clients. Frames arriving
// faster than the configured interval are dropped — renderers only care
// about the latest curve, never a backlog.
func (t *WebSocketTransport) Send(curve *analysis.Curve, generation uint64) error {
	now := time.Now()
	if now.Sub(t.lastSend) < t.minInterval {
		return nil
	}
	t.lastSend = now

	payload, err := json.Marshal(curveFrame{Generation: generation, Points: curve.Points})
	if err != nil {
		return err
	}

	t.clientsMutex.Lock()
	for client := range t.clients {
		if err := client.WriteMessage(websocket.TextMessage, payload); err != nil {
			client.Close()
			delete(t.clients, client)
		}
	}
	t.clientsMutex.Unlock()
	return nil
}

// Close disconnects all clients and shuts the server down. Idempotent.
func (t *WebSocketTransport) Close() error {
	t.clientsMutex.Lock()
	for client := range t.clients {
		client.Close()
		delete(t.clients, client)
	}
	t.clientsMutex.Unlock()
	return t.server.Close()
}
