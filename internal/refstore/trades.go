package refstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"portfolio-rtd/internal/model"
)

// FetchTrades returns all trades dated on or before asOf, split-adjusted,
// grouped per position, each group in ascending (trade_date, trade_id)
// order. Adjustment follows corporate-action convention: a split dated
// after the trade scales quantity by to/from and price and commission by
// the inverse.
func (s *Store) FetchTrades(ctx context.Context, asOf time.Time) (map[model.PosKey][]model.Trade, error) {
	splits, err := s.fetchSplits(ctx, asOf)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT trade_id, portfolio_id, security_id, trade_date, quantity, price, commission, source
		FROM trades
		WHERE trade_date <= ?
		ORDER BY portfolio_id, security_id, trade_date, trade_id`, dateStr(asOf))
	if err != nil {
		return nil, fmt.Errorf("refstore query trades: %w", err)
	}
	defer rows.Close()

	out := make(map[model.PosKey][]model.Trade)
	for rows.Next() {
		var t model.Trade
		var tradeDate string
		if err := rows.Scan(&t.TradeID, &t.PortfolioID, &t.SecurityID, &tradeDate,
			&t.Quantity, &t.Price, &t.Commission, &t.Source); err != nil {
			return nil, fmt.Errorf("refstore scan trade: %w", err)
		}
		t.TradeDate, err = time.Parse(dateLayout, tradeDate)
		if err != nil {
			return nil, fmt.Errorf("refstore trade %d date %q: %w", t.TradeID, tradeDate, err)
		}

		if factor := splitFactor(splits[t.SecurityID], t.TradeDate); factor != 1 {
			t.Quantity *= factor
			t.Price /= factor
			t.Commission /= factor
		}
		key := t.Key()
		out[key] = append(out[key], t)
	}
	return out, rows.Err()
}

func (s *Store) fetchSplits(ctx context.Context, asOf time.Time) (map[int64][]model.StockSplit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT security_id, split_date, split_from, split_to
		FROM stock_splits
		WHERE split_date <= ?
		ORDER BY security_id, split_date`, dateStr(asOf))
	if err != nil {
		return nil, fmt.Errorf("refstore query splits: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]model.StockSplit)
	for rows.Next() {
		var sp model.StockSplit
		var splitDate string
		if err := rows.Scan(&sp.SecurityID, &splitDate, &sp.From, &sp.To); err != nil {
			return nil, fmt.Errorf("refstore scan split: %w", err)
		}
		sp.SplitDate, err = time.Parse(dateLayout, splitDate)
		if err != nil {
			return nil, fmt.Errorf("refstore split date %q: %w", splitDate, err)
		}
		out[sp.SecurityID] = append(out[sp.SecurityID], sp)
	}
	return out, rows.Err()
}

// splitFactor is the cumulative adjustment for a trade: the product of
// all split factors dated strictly after the trade date.
func splitFactor(splits []model.StockSplit, tradeDate time.Time) float64 {
	factor := 1.0
	for _, sp := range splits {
		if sp.SplitDate.After(tradeDate) {
			factor *= sp.Factor()
		}
	}
	return factor
}

// InsertTrades appends confirmed trades to the ledger (blotter/manual
// entry path; trades are never mutated once written).
func (s *Store) InsertTrades(ctx context.Context, trades []model.Trade) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("refstore begin: %w", err)
	}
	if err := insertTrades(ctx, tx, trades); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ReplaceProvisionalTrades deletes all intraday-provisional trades for
// the date and inserts the given fills in their place, atomically.
func (s *Store) ReplaceProvisionalTrades(ctx context.Context, date time.Time, fills []model.Trade) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("refstore begin: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM trades WHERE trade_date = ? AND source = ?`,
		dateStr(date), string(model.SourceIntraday)); err != nil {
		tx.Rollback()
		return fmt.Errorf("refstore delete provisional trades: %w", err)
	}

	for i := range fills {
		fills[i].Source = model.SourceIntraday
	}
	if err := insertTrades(ctx, tx, fills); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insertTrades(ctx context.Context, tx *sql.Tx, trades []model.Trade) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades (portfolio_id, security_id, trade_date, quantity, price, commission, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("refstore prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range trades {
		if _, err := stmt.ExecContext(ctx, t.PortfolioID, t.SecurityID, dateStr(t.TradeDate),
			t.Quantity, t.Price, t.Commission, string(t.Source)); err != nil {
			return fmt.Errorf("refstore insert trade: %w", err)
		}
	}
	return nil
}
