package publish

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub broadcasts binary frames to WebSocket subscribers. Each client
// has its own single-slot conflator, so one slow client never delays
// the engine loop or the other clients.
type Hub struct {
	log *slog.Logger

	mu        sync.RWMutex
	clients   map[*client]struct{}
	lastFrame []byte

	// metrics hooks, nil-safe
	onPublish      func()
	onClientsDelta func(delta int)
	onDrop         func()

	ctx    context.Context
	cancel context.CancelFunc
}

type client struct {
	conn     *websocket.Conn
	pending  *Conflator
	closeOne sync.Once
}

func NewHub(log *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		log:     log,
		clients: make(map[*client]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetHooks installs optional counters for published frames,
// connected-client changes, and frames conflated away before a client
// consumed them. Call before serving.
func (h *Hub) SetHooks(onPublish func(), onClientsDelta func(delta int), onDrop func()) {
	h.onPublish = onPublish
	h.onClientsDelta = onClientsDelta
	h.onDrop = onDrop
}

// Publish offers the frame to every connected client. Non-blocking:
// a client that has not drained its previous frame gets this one
// instead. The frame is retained as the greeting for late joiners.
func (h *Hub) Publish(frame []byte) {
	h.mu.Lock()
	h.lastFrame = frame
	for c := range h.clients {
		c.pending.Offer(frame)
	}
	h.mu.Unlock()
	if h.onPublish != nil {
		h.onPublish()
	}
}

// Close disconnects all clients and stops accepting new ones.
func (h *Hub) Close() error {
	h.cancel()
	h.mu.Lock()
	for c := range h.clients {
		c.close()
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()
	return nil
}

// ServeHTTP upgrades the request and streams frames until the peer
// disconnects. Mount at /stream.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := &client{conn: conn, pending: NewConflator(h.onDrop)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.lastFrame != nil {
		c.pending.Offer(h.lastFrame)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if h.onClientsDelta != nil {
		h.onClientsDelta(1)
	}
	h.log.Info("subscriber connected", "remote", r.RemoteAddr, "clients", n)

	go c.readPump(h)
	go c.writePump(h)
}

func (h *Hub) detach(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	h.mu.Unlock()
	if ok {
		if h.onClientsDelta != nil {
			h.onClientsDelta(-1)
		}
		c.close()
	}
}

// ClientCount reports connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *client) close() {
	c.closeOne.Do(func() { c.conn.Close() })
}

// readPump drains inbound messages so control frames are processed and
// a dropped peer is noticed promptly. Subscribers never send data.
func (c *client) readPump(h *Hub) {
	defer h.detach(c)
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump(h *Hub) {
	ping := time.NewTicker(30 * time.Second)
	defer func() {
		ping.Stop()
		h.detach(c)
	}()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		default:
		}

		waitCtx, cancel := context.WithTimeout(h.ctx, time.Second)
		frame, err := c.pending.Take(waitCtx)
		cancel()
		if err != nil {
			if h.ctx.Err() != nil {
				return
			}
			continue
		}

		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			return
		}
	}
}
