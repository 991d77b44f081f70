// Package metrics exposes Prometheus instrumentation and a JSON health
// endpoint for the intraday P&L engine.
package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	TicksTotal      prometheus.Counter
	TickMisses      prometheus.Counter
	FramesPublished prometheus.Counter
	FramesDropped   prometheus.Counter
	ResyncsTotal    prometheus.Counter
	FeedReconnects  prometheus.Counter
	ReportsSent     prometheus.Counter

	ReconcileDur   prometheus.Histogram
	LedgerWriteDur prometheus.Histogram

	ClientsConnected prometheus.Gauge
	LiveRows         prometheus.Gauge
}

// NewMetrics registers and returns all engine metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rtd_ticks_total",
			Help: "Total quotes received from the feed",
		}),
		TickMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rtd_tick_misses_total",
			Help: "Quotes for instruments with no live position",
		}),
		FramesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rtd_frames_published_total",
			Help: "Binary frames offered to subscribers",
		}),
		FramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rtd_frames_dropped_total",
			Help: "Frames conflated away before any subscriber read them",
		}),
		ResyncsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rtd_resyncs_total",
			Help: "Full-snapshot resync frames published after reconciliation",
		}),
		FeedReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rtd_feed_reconnects_total",
			Help: "Feed reconnection attempts",
		}),
		ReportsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rtd_reports_sent_total",
			Help: "Summary reports dispatched",
		}),
		ReconcileDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rtd_reconcile_duration_seconds",
			Help:    "Blotter reconciliation plus snapshot rebuild latency",
			Buckets: prometheus.DefBuckets,
		}),
		LedgerWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rtd_ledger_write_duration_seconds",
			Help:    "Intraday ledger append latency",
			Buckets: prometheus.ExponentialBuckets(0.00001, 10, 6),
		}),
		ClientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rtd_clients_connected",
			Help: "Connected WebSocket subscribers",
		}),
		LiveRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rtd_live_rows",
			Help: "Rows in the live snapshot",
		}),
	}

	prometheus.MustRegister(
		m.TicksTotal,
		m.TickMisses,
		m.FramesPublished,
		m.FramesDropped,
		m.ResyncsTotal,
		m.FeedReconnects,
		m.ReportsSent,
		m.ReconcileDur,
		m.LedgerWriteDur,
		m.ClientsConnected,
		m.LiveRows,
	)
	return m
}

// HealthStatus tracks component liveness for the /healthz endpoint.
type HealthStatus struct {
	mu sync.RWMutex

	FeedConnected bool
	LastQuoteTime time.Time
	StoreOK       bool
	LastReconcile time.Time
	StartedAt     time.Time
}

func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetFeedConnected(v bool) {
	h.mu.Lock()
	h.FeedConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastQuoteTime(t time.Time) {
	h.mu.Lock()
	h.LastQuoteTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetStoreOK(v bool) {
	h.mu.Lock()
	h.StoreOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastReconcile(t time.Time) {
	h.mu.Lock()
	h.LastReconcile = t
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overall := "healthy"
	httpCode := http.StatusOK
	if !h.FeedConnected || !h.StoreOK {
		overall = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	quoteAge := ""
	if !h.LastQuoteTime.IsZero() {
		quoteAge = time.Since(h.LastQuoteTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status        string `json:"status"`
		Uptime        string `json:"uptime"`
		FeedConnected bool   `json:"feed_connected"`
		LastQuoteTime string `json:"last_quote_time"`
		QuoteAge      string `json:"quote_age"`
		StoreOK       bool   `json:"store_ok"`
		LastReconcile string `json:"last_reconcile"`
	}{
		Status:        overall,
		Uptime:        time.Since(h.StartedAt).Round(time.Second).String(),
		FeedConnected: h.FeedConnected,
		LastQuoteTime: h.LastQuoteTime.Format(time.RFC3339),
		QuoteAge:      quoteAge,
		StoreOK:       h.StoreOK,
		LastReconcile: h.LastReconcile.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server exposes /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
	log  *slog.Logger
}

func NewServer(addr string, health *HealthStatus, log *slog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", health)

	return &Server{
		addr: addr,
		log:  log,
		srv:  &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		s.log.Info("metrics server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			s.log.Error("metrics server error", "err", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
