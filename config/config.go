// Package config loads application configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DBPath      string `env:"DB_PATH" envDefault:"data/portfolio.db"`
	LedgerDir   string `env:"LEDGER_DIR" envDefault:"data/ledger"`
	PublishAddr string `env:"PUBLISH_ADDR" envDefault:":8100"`
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9100"`

	NTPServer string `env:"NTP_SERVER" envDefault:"pool.ntp.org"`

	Redis Redis
	Feed  Feed

	ReportWebhookURL string `env:"REPORT_WEBHOOK_URL"`

	ChartInterval     time.Duration `env:"CHART_INTERVAL" envDefault:"1s"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"30s"`
	SummaryInterval   time.Duration `env:"SUMMARY_INTERVAL" envDefault:"30m"`
}

// Redis configures the optional frame mirror. Empty Addr disables it.
type Redis struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Feed selects and parameterizes the tick source.
type Feed struct {
	Provider string `env:"FEED_PROVIDER" envDefault:"sim"`

	SimTickInterval time.Duration `env:"SIM_TICK_INTERVAL" envDefault:"100ms"`

	WSURL      string `env:"FEED_WS_URL"`
	LoginURL   string `env:"FEED_LOGIN_URL"`
	BlotterURL string `env:"FEED_BLOTTER_URL"`
	APIKey     string `env:"FEED_API_KEY"`
	ClientCode string `env:"FEED_CLIENT_CODE"`
	Password   string `env:"FEED_PASSWORD"`
	TOTPSecret string `env:"FEED_TOTP_SECRET"`
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Feed.Provider == "ws" {
		if cfg.Feed.WSURL == "" || cfg.Feed.LoginURL == "" {
			return nil, fmt.Errorf("config: ws feed requires FEED_WS_URL and FEED_LOGIN_URL")
		}
	}
	return cfg, nil
}
