package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testClientConfig(url string) ClientConfig {
	cfg := DefaultClientConfig()
	cfg.URL = url
	cfg.SendBackoff = 10 * time.Millisecond
	cfg.BufferSize = 100
	return cfg
}

func TestClient_ConnectClose(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	ctx := context.Background()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if !client.IsConnected() {
		t.Error("expected IsConnected to return true")
	}

	// Connect again is a no-op.
	if err := client.Connect(ctx); err != nil {
		t.Errorf("second Connect failed: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if client.IsConnected() {
		t.Error("expected IsConnected to return false after Close")
	}

	// Close is idempotent, Connect after Close is refused.
	if err := client.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if err := client.Connect(ctx); err != ErrAlreadyClosed {
		t.Errorf("Connect after Close = %v, want ErrAlreadyClosed", err)
	}
}

func TestClient_ConnectFailure(t *testing.T) {
	cfg := testClientConfig("ws://127.0.0.1:1") // nothing listens here
	cfg.HandshakeTimeout = 200 * time.Millisecond

	client := NewClient(cfg, nil)
	if err := client.Connect(context.Background()); err == nil {
		t.Fatal("expected Connect to fail")
	}
	if client.IsConnected() {
		t.Error("expected disconnected state after failed Connect")
	}
}

func TestClient_SendWantFrame(t *testing.T) {
	var mu sync.Mutex
	var received []byte

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			mu.Lock()
			received = msg
			mu.Unlock()
		}
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	defer client.Close()

	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if err := client.Send(ctx, NewWantFrame([]string{"blocks", "stats"})); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	var frame WantFrame
	if err := json.Unmarshal(received, &frame); err != nil {
		t.Fatalf("server received malformed frame: %v", err)
	}
	if frame.Action != "want" || len(frame.Data) != 2 {
		t.Errorf("frame = %+v, want action=want with 2 channels", frame)
	}
}

func TestClient_SendConnectsFirst(t *testing.T) {
	var mu sync.Mutex
	var received []byte

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			mu.Lock()
			received = msg
			mu.Unlock()
		}
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	defer client.Close()

	// No explicit Connect: Send establishes the connection itself.
	if err := client.Send(context.Background(), TrackAddressFrame{Address: "bc1qexample"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !client.IsConnected() {
		t.Error("expected Send to connect")
	}

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	var frame TrackAddressFrame
	if err := json.Unmarshal(received, &frame); err != nil {
		t.Fatalf("server received malformed frame: %v", err)
	}
	if frame.Address != "bc1qexample" {
		t.Errorf("Address = %s, want bc1qexample", frame.Address)
	}
}

func TestClient_ReceiveMessages(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"block": {"height": 800000}}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	defer client.Close()

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	select {
	case msg := <-client.Messages():
		if !strings.Contains(string(msg.Data), "800000") {
			t.Errorf("unexpected frame: %s", msg.Data)
		}
		if msg.ReceivedAt.IsZero() {
			t.Error("expected ReceivedAt to be set")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
}

func TestClient_FaultSurfacedOnServerClose(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		// Drop the connection immediately.
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	defer client.Close()

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	select {
	case <-client.Errors():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connection fault")
	}

	if client.IsConnected() {
		t.Error("expected disconnected state after fault")
	}
}

func TestClient_ReconnectAfterFault(t *testing.T) {
	var mu sync.Mutex
	connCount := 0

	server := mockWSServer(t, func(conn *websocket.Conn) {
		mu.Lock()
		connCount++
		first := connCount == 1
		mu.Unlock()

		if first {
			return // drop the first connection immediately
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	defer client.Close()

	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	select {
	case <-client.Errors():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fault")
	}

	// The same client reconnects after a transport fault.
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("reconnect failed: %v", err)
	}
	if !client.IsConnected() {
		t.Error("expected connected state after reconnect")
	}
}
