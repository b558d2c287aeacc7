// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"specviz/internal/analysis"
)

func testCurve(level float64) *analysis.Curve {
	c := &analysis.Curve{Points: make([]analysis.Point, 8)}
	for i := range c.Points {
		c.Points[i] = analysis.Point{X: float64(i) / 7, Y: level}
	}
	return c
}

// dialTestClient serves the transport's handler on an ephemeral port
// and connects a client to it.
func dialTestClient(t *testing.T, tr *WebSocketTransport) (*websocket.Conn, func()) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(tr.handleWebSocket))
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/spectrum"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		server.Close()
		t.Fatalf("dial: %v", err)
	}

	// Registration happens on the handler goroutine after the upgrade
	// response; wait for it before broadcasting.
	deadline := time.Now().Add(time.Second)
	for {
		tr.clientsMutex.Lock()
		n := len(tr.clients)
		tr.clientsMutex.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			conn.Close()
			server.Close()
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}

	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func TestWebSocketSendDeliversFrames(t *testing.T) {
	tr := &WebSocketTransport{
		clients:     make(map[*websocket.Conn]bool),
		minInterval: time.Nanosecond,
		upgrader:    websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
	conn, cleanup := dialTestClient(t, tr)
	defer cleanup()

	if err := tr.Send(testCurve(0.5), 7); err != nil {
		t.Fatalf("Send: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var frame curveFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if frame.Generation != 7 {
		t.Errorf("generation = %d, expected 7", frame.Generation)
	}
	if len(frame.Points) != 8 || frame.Points[0].Y != 0.5 {
		t.Errorf("unexpected points: %+v", frame.Points)
	}
}

func TestWebSocketSendRateLimits(t *testing.T) {
	tr := &WebSocketTransport{
		clients:     make(map[*websocket.Conn]bool),
		minInterval: time.Hour,
		upgrader:    websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
	conn, cleanup := dialTestClient(t, tr)
	defer cleanup()

	if err := tr.Send(testCurve(0.1), 1); err != nil {
		t.Fatalf("Send: %v", err)
	}
	// Inside the interval: dropped, not an error.
	if err := tr.Send(testCurve(0.2), 2); err != nil {
		t.Fatalf("rate-limited Send: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var frame curveFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if frame.Generation != 1 {
		t.Errorf("generation = %d, expected only the first frame through", frame.Generation)
	}

	conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected no second frame inside the rate-limit interval")
	}
}

func TestWebSocketSendWithoutClients(t *testing.T) {
	tr := &WebSocketTransport{
		clients:     make(map[*websocket.Conn]bool),
		minInterval: time.Nanosecond,
	}
	if err := tr.Send(testCurve(0.5), 1); err != nil {
		t.Errorf("Send without clients: %v", err)
	}
}
