package publish

import (
	"bytes"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcastsBinaryFrames(t *testing.T) {
	h := NewHub(slog.Default())
	defer h.Close()
	conn := dialHub(t, h)
	waitClients(t, h, 1)

	want := []byte{0, 0, 0, 0, 1, 2, 3}
	h.Publish(want)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if msgType != websocket.BinaryMessage {
		t.Errorf("message type: got %d, want binary", msgType)
	}
	if !bytes.Equal(frame, want) {
		t.Errorf("frame: got %v, want %v", frame, want)
	}
}

func TestHubLateJoinerGetsLastFrame(t *testing.T) {
	h := NewHub(slog.Default())
	defer h.Close()

	h.Publish([]byte("stale"))
	h.Publish([]byte("fresh"))

	conn := dialHub(t, h)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !bytes.Equal(frame, []byte("fresh")) {
		t.Errorf("greeting frame: got %q, want %q", frame, "fresh")
	}
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count never reached %d", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubClientCountTracksDisconnect(t *testing.T) {
	h := NewHub(slog.Default())
	defer h.Close()

	conn := dialHub(t, h)
	waitClients(t, h, 1)

	conn.Close()
	waitClients(t, h, 0)
}

func TestHubCountsConflatedDrops(t *testing.T) {
	h := NewHub(slog.Default())
	var drops int
	h.SetHooks(nil, nil, func() { drops++ })

	// Register a client whose write pump never runs: the second frame
	// must displace the first and fire the drop hook.
	c := &client{pending: NewConflator(h.onDrop)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.Publish([]byte{1})
	h.Publish([]byte{2})
	if drops != 1 {
		t.Fatalf("drops: got %d, want 1", drops)
	}

	frame, ok := c.pending.TryTake()
	if !ok || len(frame) != 1 || frame[0] != 2 {
		t.Fatalf("pending frame: %v (ok=%v), want the newest frame", frame, ok)
	}

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	h.Close()
}
