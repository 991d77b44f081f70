package model

import (
	"context"
	"time"
)

// ── Port Interfaces ──
// These interfaces decouple the engine from concrete backends
// (SQLite reference store, market-data providers, the publish hub).

// Subscription names one instrument to stream, with its prior close as
// a reference price for providers that need a seed (the simulator).
type Subscription struct {
	Key            string
	ReferencePrice float64
}

// TickStream is a pull-style quote iterator. Next blocks until the next
// quote is available or ctx is cancelled; a Terminal quote signals the
// end or failure of a subscription attempt, not an error.
type TickStream interface {
	Next(ctx context.Context) (Quote, error)
	Close() error
}

// MarketData is the capability interface for a market-data provider.
// One implementation per provider, selected at startup via configuration.
type MarketData interface {
	// Stream opens the live quote stream for the given subscriptions.
	Stream(ctx context.Context, subs []Subscription) (TickStream, error)

	// IntradayFills fetches the provisional same-day blotter for cobDate.
	// An empty (or nil) result means no new fills, not an error.
	IntradayFills(ctx context.Context, cobDate time.Time) ([]Trade, error)
}

// FramePublisher emits binary frames on the conflated publish channel.
// Publish must never block the caller.
type FramePublisher interface {
	Publish(frame []byte)
	Close() error
}

// ReferenceStore is read access to the trade ledger and reference data,
// plus the two writes the engine is allowed during reconciliation.
type ReferenceStore interface {
	Portfolios(ctx context.Context) ([]Portfolio, error)
	Securities(ctx context.Context) ([]Security, error)

	// FetchTrades returns all split-adjusted trades dated on or before
	// asOf, grouped per position, each group in ascending
	// (trade_date, trade_id) order.
	FetchTrades(ctx context.Context, asOf time.Time) (map[PosKey][]Trade, error)

	// FetchCloses returns the last known close on or before asOf per
	// security (carry-forward).
	FetchCloses(ctx context.Context, asOf time.Time) (map[int64]float64, error)

	// FetchFxRates returns the last known rate on or before asOf per
	// currency (carry-forward).
	FetchFxRates(ctx context.Context, asOf time.Time) (map[string]float64, error)

	// FetchDividends returns the cash amount per share for securities
	// whose ex-date equals exDate.
	FetchDividends(ctx context.Context, exDate time.Time) (map[int64]float64, error)

	// CashBalances returns the cumulative cash balance per portfolio as
	// of the given date, in portfolio currency.
	CashBalances(ctx context.Context, asOf time.Time) (map[int64]float64, error)

	// ReplaceProvisionalTrades deletes all intraday-provisional trades
	// for the date and inserts the given fills in their place.
	ReplaceProvisionalTrades(ctx context.Context, date time.Time, fills []Trade) error

	// SaveDailyPositions deletes the provisional snapshot rows for the
	// date and inserts the given rows.
	SaveDailyPositions(ctx context.Context, date time.Time, rows []DailyPosition) error

	Close() error
}
