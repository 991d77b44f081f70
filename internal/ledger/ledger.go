// Package ledger appends intraday portfolio P&L samples to per-day,
// per-portfolio binary files so charts can be rebuilt after a restart.
package ledger

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"portfolio-rtd/internal/wire"
)

// FilePath returns the ledger file path for a session date and portfolio.
func FilePath(dir string, date time.Time, portfolioID int64) string {
	name := fmt.Sprintf("intraday_pnl_%s_%d.bin", date.Format("2006-01-02"), portfolioID)
	return filepath.Join(dir, name)
}

// Writer appends fixed-width P&L records. Files are opened lazily on
// first append and every record is written straight through to the OS,
// so a crash loses at most the record being written.
type Writer struct {
	mu    sync.Mutex
	dir   string
	date  time.Time
	files map[int64]*os.File
	log   *slog.Logger
}

func NewWriter(dir string, date time.Time, log *slog.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ledger dir: %w", err)
	}
	return &Writer{
		dir:   dir,
		date:  date,
		files: make(map[int64]*os.File),
		log:   log,
	}, nil
}

// Append writes one sample for the portfolio. Errors are returned to the
// caller; the file stays open for subsequent attempts.
func (w *Writer) Append(portfolioID int64, tsNano int64, totalPnL float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, ok := w.files[portfolioID]
	if !ok {
		var err error
		path := FilePath(w.dir, w.date, portfolioID)
		f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("ledger open %s: %w", path, err)
		}
		w.files[portfolioID] = f
		w.log.Info("ledger file opened", "path", path)
	}

	buf := make([]byte, 0, wire.LedgerRecordSize)
	buf = wire.AppendLedgerRecord(buf, wire.LedgerRecord{
		PortfolioID:   int32(portfolioID),
		TimestampNano: tsNano,
		TotalPnL:      totalPnL,
	})
	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("ledger write portfolio %d: %w", portfolioID, err)
	}
	return nil
}

// Close closes all open ledger files.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var firstErr error
	for id, f := range w.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(w.files, id)
	}
	return firstErr
}

// ReadFile loads and decodes a full ledger file.
func ReadFile(path string) ([]wire.LedgerRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return wire.DecodeLedger(b)
}
