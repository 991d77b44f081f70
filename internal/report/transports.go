package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// LogTransport writes a one-line digest per portfolio to the logger.
type LogTransport struct {
	log *slog.Logger
}

func NewLogTransport(log *slog.Logger) *LogTransport {
	return &LogTransport{log: log}
}

func (t *LogTransport) Send(ctx context.Context, snap Snapshot) error {
	byPort := map[string]float64{}
	for _, row := range snap.Rows {
		byPort[row.Portfolio] += row.PnL
	}
	for name, pnl := range byPort {
		t.log.Info("intraday summary", "portfolio", name, "pnl", pnl,
			"positions", len(snap.Rows), "at", snap.GeneratedAt)
	}
	return nil
}

// WebhookTransport POSTs the snapshot as JSON to an HTTP endpoint.
type WebhookTransport struct {
	url    string
	client *http.Client
}

func NewWebhookTransport(url string) *WebhookTransport {
	return &WebhookTransport{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (t *WebhookTransport) Send(ctx context.Context, snap Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", t.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}
