// cmd/rtdserver — real-time portfolio P&L engine.
//
// Rebuilds the live position snapshot from the trade ledger, streams
// quotes from the configured feed, and broadcasts conflated binary
// frames to WebSocket subscribers on /stream. Reconciliation failures
// are fatal: the process exits non-zero so the supervisor restarts it.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"portfolio-rtd/config"
	"portfolio-rtd/internal/calendar"
	"portfolio-rtd/internal/engine"
	"portfolio-rtd/internal/feed"
	"portfolio-rtd/internal/ledger"
	"portfolio-rtd/internal/logger"
	"portfolio-rtd/internal/metrics"
	"portfolio-rtd/internal/ntpclock"
	"portfolio-rtd/internal/publish"
	"portfolio-rtd/internal/refstore"
	"portfolio-rtd/internal/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Init("rtdserver", logger.ParseLevel(cfg.LogLevel))
	log.Info("starting", "provider", cfg.Feed.Provider, "db", cfg.DBPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("shutdown signal", "signal", sig.String())
		cancel()
	}()

	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health, log)
	metricsSrv.Start()

	clock := ntpclock.New(cfg.NTPServer, log)
	cal := calendar.New()

	os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755)
	ref, err := refstore.New(refstore.Config{DBPath: cfg.DBPath}, log)
	if err != nil {
		log.Error("reference store init failed", "err", err)
		os.Exit(1)
	}
	defer ref.Close()
	health.SetStoreOK(true)

	md, err := feed.New(feed.Config{
		Provider:        cfg.Feed.Provider,
		SimTickInterval: cfg.Feed.SimTickInterval,
		WSURL:           cfg.Feed.WSURL,
		LoginURL:        cfg.Feed.LoginURL,
		BlotterURL:      cfg.Feed.BlotterURL,
		APIKey:          cfg.Feed.APIKey,
		ClientCode:      cfg.Feed.ClientCode,
		Password:        cfg.Feed.Password,
		TOTPSecret:      cfg.Feed.TOTPSecret,
		OnReconnect:     prom.FeedReconnects.Inc,
	}, log)
	if err != nil {
		log.Error("feed init failed", "err", err)
		os.Exit(1)
	}

	hub := publish.NewHub(log)
	hub.SetHooks(nil, func(delta int) { prom.ClientsConnected.Add(float64(delta)) }, prom.FramesDropped.Inc)
	defer hub.Close()

	mux := http.NewServeMux()
	mux.Handle("/stream", hub)
	pubSrv := &http.Server{Addr: cfg.PublishAddr, Handler: mux}
	go func() {
		log.Info("publish server listening", "addr", cfg.PublishAddr)
		if err := pubSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Error("publish server error", "err", err)
		}
	}()

	var mirror *publish.RedisMirror
	if cfg.Redis.Addr != "" {
		mirror, err = publish.NewRedisMirror(publish.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, log)
		if err != nil {
			log.Warn("redis mirror unavailable, continuing without it", "err", err)
			mirror = nil
		} else {
			defer mirror.Close()
		}
	}

	transports := []report.Transport{report.NewLogTransport(log)}
	if cfg.ReportWebhookURL != "" {
		transports = append(transports, report.NewWebhookTransport(cfg.ReportWebhookURL))
	}
	reporter := report.NewDispatcher(log, transports...)

	cobDate := cal.CurrentCOB(clock.Now())
	lw, err := ledger.NewWriter(cfg.LedgerDir, cobDate, log)
	if err != nil {
		log.Error("ledger init failed", "err", err)
		os.Exit(1)
	}

	eng, err := engine.New(engine.Options{
		Ref:               ref,
		Market:            md,
		Pub:               hub,
		Ledger:            lw,
		Clock:             clock,
		Cal:               cal,
		Mirror:            mirror,
		Reports:           reporter,
		Metrics:           prom,
		Health:            health,
		Log:               log,
		ChartInterval:     cfg.ChartInterval,
		ReconcileInterval: cfg.ReconcileInterval,
		SummaryInterval:   cfg.SummaryInterval,
	})
	if err != nil {
		log.Error("engine init failed", "err", err)
		os.Exit(1)
	}

	runErr := eng.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	pubSrv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
	shutdownCancel()
	if err := lw.Close(); err != nil {
		log.Warn("ledger close failed", "err", err)
	}

	if runErr != nil {
		log.Error("engine terminated", "err", runErr)
		os.Exit(1)
	}
	log.Info("stopped")
}
