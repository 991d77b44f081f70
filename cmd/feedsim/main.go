// cmd/feedsim — demo vendor quote server.
//
// Speaks the same protocol the "ws" feed provider expects: an HTTP
// login exchange returning a bearer token, a WebSocket quote stream at
// /stream, and an intraday blotter at /blotter. Useful for running
// rtdserver with FEED_PROVIDER=ws and no real vendor credentials.
//
// Config (env vars):
//
//	FEEDSIM_ADDR         — listen address        (default ":9200")
//	FEEDSIM_KEYS         — comma-separated instrument keys and seed
//	                       prices, e.g. "BBG000AAA:101.5,BBG000BBB:44"
//	FEEDSIM_INTERVAL_MS  — broadcast interval ms (default "100")
package main

import (
	"encoding/json"
	"log"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type quoteMsg struct {
	Key  string  `json:"key"`
	Last float64 `json:"last"`
	Bid  float64 `json:"bid"`
	Ask  float64 `json:"ask"`
}

type instrument struct {
	Key   string
	Price float64
}

type hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
}

func newHub() *hub {
	return &hub{clients: make(map[*websocket.Conn]chan []byte)}
}

func (h *hub) register(conn *websocket.Conn) chan []byte {
	ch := make(chan []byte, 256)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	return ch
}

func (h *hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		close(ch)
		delete(h.clients, conn)
	}
	h.mu.Unlock()
}

func (h *hub) broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.clients {
		select {
		case ch <- msg:
		default: // slow client, drop
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	addr := getEnv("FEEDSIM_ADDR", ":9200")
	interval := parseIntervalMS(getEnv("FEEDSIM_INTERVAL_MS", "100"))
	instruments := parseKeys(getEnv("FEEDSIM_KEYS", "BBG000AAA:101.5,BBG000BBB:44"))
	log.Printf("[feedsim] %d instruments, interval %v", len(instruments), interval)

	h := newHub()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	spreads := []float64{0.02, 0.04, 0.06}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			inst := &instruments[rng.Intn(len(instruments))]
			inst.Price *= math.Exp(rng.NormFloat64() * 0.0005)
			spread := spreads[rng.Intn(len(spreads))]
			msg, _ := json.Marshal(quoteMsg{
				Key:  inst.Key,
				Last: inst.Price,
				Bid:  inst.Price - spread/2,
				Ask:  inst.Price + spread/2,
			})
			h.broadcast(msg)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		// Any credentials are accepted; the token is a fixed demo value.
		json.NewEncoder(w).Encode(map[string]any{"status": true, "token": "feedsim-demo"})
	})
	mux.HandleFunc("/blotter", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]any{})
	})
	mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[feedsim] upgrade failed: %v", err)
			return
		}
		ch := h.register(conn)
		log.Printf("[feedsim] client connected: %s", r.RemoteAddr)

		go func() {
			defer func() {
				h.unregister(conn)
				conn.Close()
				log.Printf("[feedsim] client gone: %s", r.RemoteAddr)
			}()
			for msg := range ch {
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}()

		// Drain inbound messages (subscribe requests, pings).
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					h.unregister(conn)
					conn.Close()
					return
				}
			}
		}()
	})

	log.Printf("[feedsim] listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("[feedsim] server error: %v", err)
	}
}

func parseKeys(s string) []instrument {
	var out []instrument
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, priceStr, found := strings.Cut(part, ":")
		price := 100.0
		if found {
			if p, err := strconv.ParseFloat(priceStr, 64); err == nil && p > 0 {
				price = p
			}
		}
		out = append(out, instrument{Key: key, Price: price})
	}
	if len(out) == 0 {
		out = append(out, instrument{Key: "BBG000AAA", Price: 100})
	}
	return out
}

func parseIntervalMS(s string) time.Duration {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		n = 100
	}
	return time.Duration(n) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
