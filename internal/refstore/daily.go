package refstore

import (
	"context"
	"fmt"
	"time"

	"portfolio-rtd/internal/model"
)

// SaveDailyPositions deletes the intraday-provisional snapshot rows for
// the date and inserts the given rows, atomically. EOD-finalized rows
// for the same date are left untouched.
func (s *Store) SaveDailyPositions(ctx context.Context, date time.Time, positions []model.DailyPosition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("refstore begin: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM daily_positions WHERE cob_date = ? AND created_by = ?`,
		dateStr(date), string(model.SourceIntraday)); err != nil {
		tx.Rollback()
		return fmt.Errorf("refstore delete provisional positions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_positions (
			portfolio_id, security_id, cob_date, prev_cob_date,
			net_quantity, multiplier, avg_cost, close_price, prev_close_price, cob_fx_rate,
			intraday_pnl, unrealized_dod_pnl, dividend_pnl, total_dod_pnl, total_dod_pnl_port,
			created_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("refstore prepare daily insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range positions {
		if _, err := stmt.ExecContext(ctx,
			p.PortfolioID, p.SecurityID, dateStr(p.CobDate), dateStr(p.PrevCobDate),
			p.NetQuantity, p.Multiplier, p.AvgCost, p.ClosePrice, p.PrevClose, p.FxRate,
			p.IntradayPnL, p.UnrealizedPnL, p.DividendPnL, p.TotalPnL, p.TotalPnLPort,
			p.CreatedBy); err != nil {
			tx.Rollback()
			return fmt.Errorf("refstore insert daily position: %w", err)
		}
	}
	return tx.Commit()
}

// DailyPositionCount reports how many snapshot rows exist for a date and
// provenance tag. Used by tests and operational tooling.
func (s *Store) DailyPositionCount(ctx context.Context, date time.Time, createdBy string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM daily_positions WHERE cob_date = ? AND created_by = ?`,
		dateStr(date), createdBy).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("refstore count daily positions: %w", err)
	}
	return n, nil
}
