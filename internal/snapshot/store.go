// Package snapshot maintains the in-memory live position table.
//
// The store is owned exclusively by the tick-ingestion loop: it is built
// (and rebuilt on every reconciliation cycle) from the trade ledger via
// the cost-basis calculator, and mutated in place as ticks arrive. There
// is no locking here — single writer, by design of the engine loop.
package snapshot

import (
	"sort"

	"portfolio-rtd/internal/model"
)

// Store is the live snapshot: all open positions for the current
// session, with a direct index from correlation key to rows.
type Store struct {
	rows  []*model.LiveRow
	byKey map[string][]*model.LiveRow
}

// NewStore builds a store over the given rows and assigns stable row
// identifiers in display order (portfolio, security type, ticker).
func NewStore(rows []*model.LiveRow) *Store {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Portfolio != rows[j].Portfolio {
			return rows[i].Portfolio < rows[j].Portfolio
		}
		if rows[i].SecType != rows[j].SecType {
			return rows[i].SecType < rows[j].SecType
		}
		return rows[i].Ticker < rows[j].Ticker
	})

	byKey := make(map[string][]*model.LiveRow)
	for i, r := range rows {
		r.RowID = int32(i + 1)
		byKey[r.Key] = append(byKey[r.Key], r)
	}
	return &Store{rows: rows, byKey: byKey}
}

// Rows returns the underlying rows in row-id order.
func (s *Store) Rows() []*model.LiveRow { return s.rows }

// Len returns the number of live rows.
func (s *Store) Len() int { return len(s.rows) }

// Lookup returns the rows matching a correlation key. A single
// instrument may appear once per portfolio.
func (s *Store) Lookup(key string) []*model.LiveRow { return s.byKey[key] }

// ApplyQuote updates every row matching the quote's correlation key and
// returns the mutated rows. It returns nil — and mutates nothing — for
// unknown keys and for quotes without a usable last price.
func (s *Store) ApplyQuote(q model.Quote, tsNano int64) []*model.LiveRow {
	rows := s.byKey[q.Key]
	if len(rows) == 0 || !q.HasLast() {
		return nil
	}
	for _, r := range rows {
		r.ApplyQuote(q, tsNano)
	}
	return rows
}

// PnLByPortfolio sums live P&L per portfolio across all rows.
func (s *Store) PnLByPortfolio() map[int64]float64 {
	totals := make(map[int64]float64)
	for _, r := range s.rows {
		totals[r.PortfolioID] += r.PnL
	}
	return totals
}

// PortfolioIDs returns the distinct portfolio ids in the store, sorted.
func (s *Store) PortfolioIDs() []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, r := range s.rows {
		if !seen[r.PortfolioID] {
			seen[r.PortfolioID] = true
			ids = append(ids, r.PortfolioID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Subscriptions returns one subscription per distinct correlation key,
// seeded with the row's prior close.
func (s *Store) Subscriptions() []model.Subscription {
	seen := make(map[string]bool)
	var subs []model.Subscription
	for _, r := range s.rows {
		if seen[r.Key] {
			continue
		}
		seen[r.Key] = true
		subs = append(subs, model.Subscription{Key: r.Key, ReferencePrice: r.ClosePrice})
	}
	return subs
}

// Clone returns a deep copy of the store for handoff to the summary
// report worker. The copy shares nothing with the live rows.
func (s *Store) Clone() *Store {
	rows := make([]*model.LiveRow, len(s.rows))
	byKey := make(map[string][]*model.LiveRow, len(s.byKey))
	for i, r := range s.rows {
		cp := *r
		rows[i] = &cp
		byKey[cp.Key] = append(byKey[cp.Key], &cp)
	}
	return &Store{rows: rows, byKey: byKey}
}
