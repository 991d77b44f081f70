// Package report delivers periodic intraday summary snapshots to
// external channels. Delivery is fire-and-forget: a broken transport
// must never disturb the tick loop.
package report

import (
	"context"
	"log/slog"
	"time"
)

// Row is one position line in a summary.
type Row struct {
	Portfolio string  `json:"portfolio"`
	Ticker    string  `json:"ticker"`
	Quantity  float64 `json:"quantity"`
	Chg       float64 `json:"chg"`
	PctChg    float64 `json:"pct_chg"`
	PnL       float64 `json:"pnl"`
}

// Snapshot is a point-in-time summary of every live position.
type Snapshot struct {
	GeneratedAt time.Time `json:"generated_at"`
	Rows        []Row     `json:"rows"`
}

// Transport delivers a summary to one channel.
type Transport interface {
	Send(ctx context.Context, snap Snapshot) error
}

// Dispatcher fans a snapshot out to its transports asynchronously.
type Dispatcher struct {
	transports []Transport
	timeout    time.Duration
	log        *slog.Logger
}

func NewDispatcher(log *slog.Logger, transports ...Transport) *Dispatcher {
	return &Dispatcher{
		transports: transports,
		timeout:    30 * time.Second,
		log:        log,
	}
}

// Dispatch sends the snapshot on a background goroutine per transport.
// Failures are logged and dropped.
func (d *Dispatcher) Dispatch(snap Snapshot) {
	for _, tr := range d.transports {
		go func(tr Transport) {
			defer func() {
				if r := recover(); r != nil {
					d.log.Error("report transport panicked", "panic", r)
				}
			}()
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()
			if err := tr.Send(ctx, snap); err != nil {
				d.log.Warn("summary report delivery failed", "err", err)
			}
		}(tr)
	}
}
