// Package refstore is the SQLite-backed trade ledger and reference data
// store: portfolios, securities, trades, daily closes, FX rates,
// dividends, stock splits, cash transactions and daily position
// snapshots.
//
// The engine reads from it during INIT and reconciliation only; the two
// writes it performs (provisional fills, provisional daily snapshots)
// use delete-then-reinsert semantics keyed by date and source tag.
package refstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

// Config configures the SQLite store.
type Config struct {
	DBPath string // path to the database file, e.g. "data/portfolio.db"
}

// Store wraps the SQLite connection.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens the database in WAL mode and initializes the schema.
func New(cfg Config, log *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("refstore open: %w", err)
	}

	// Single writer; the engine serializes all access anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("refstore schema: %w", err)
	}

	log.Info("opened reference store", "path", cfg.DBPath)
	return &Store{db: db, log: log}, nil
}

// Ping checks connectivity for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
