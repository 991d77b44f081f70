// Package feed provides tick sources behind the model.MarketData
// interface. The provider is chosen by configuration: "sim" generates
// a random walk locally, "ws" attaches to a vendor WebSocket feed.
package feed

import (
	"fmt"
	"log/slog"
	"time"

	"portfolio-rtd/internal/model"
)

// Config selects and parameterizes a provider.
type Config struct {
	Provider string // "sim" or "ws"

	// sim
	SimTickInterval time.Duration

	// ws
	WSURL             string
	LoginURL          string
	BlotterURL        string
	APIKey            string
	ClientCode        string
	Password          string
	TOTPSecret        string
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration

	// OnReconnect, if non-nil, is called once per reconnect attempt
	// after the stream drops.
	OnReconnect func()
}

// New builds the configured provider.
func New(cfg Config, log *slog.Logger) (model.MarketData, error) {
	switch cfg.Provider {
	case "sim":
		return NewSim(cfg, log), nil
	case "ws":
		return NewWSFeed(cfg, log)
	default:
		return nil, fmt.Errorf("feed: unknown provider %q", cfg.Provider)
	}
}
