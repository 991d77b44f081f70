package publish

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

const (
	frameChannel = "rtd:frames"
	pnlKeyPrefix = "rtd:pnl:"
	pnlTTL       = 30 * time.Minute
)

// RedisMirror republishes broadcast frames on a Redis channel and
// caches the latest total P&L per portfolio, so off-box consumers can
// follow the stream without a WebSocket connection. Entirely optional:
// a nil *RedisMirror is safe to call.
type RedisMirror struct {
	client *goredis.Client
	log    *slog.Logger
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisMirror(cfg RedisConfig, log *slog.Logger) (*RedisMirror, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info("redis mirror connected", "addr", cfg.Addr)
	return &RedisMirror{client: client, log: log}, nil
}

// MirrorFrame publishes the raw frame bytes. Failures are logged and
// swallowed; the mirror must never stall the engine.
func (m *RedisMirror) MirrorFrame(ctx context.Context, frame []byte) {
	if m == nil {
		return
	}
	if err := m.client.Publish(ctx, frameChannel, frame).Err(); err != nil {
		m.log.Warn("redis frame publish failed", "err", err)
	}
}

// SetPortfolioPnL caches the latest total P&L for a portfolio.
func (m *RedisMirror) SetPortfolioPnL(ctx context.Context, portfolioID int64, pnl float64) {
	if m == nil {
		return
	}
	key := pnlKeyPrefix + strconv.FormatInt(portfolioID, 10)
	val := strconv.FormatFloat(pnl, 'f', -1, 64)
	if err := m.client.Set(ctx, key, val, pnlTTL).Err(); err != nil {
		m.log.Warn("redis pnl set failed", "portfolio", portfolioID, "err", err)
	}
}

func (m *RedisMirror) Close() error {
	if m == nil {
		return nil
	}
	return m.client.Close()
}
