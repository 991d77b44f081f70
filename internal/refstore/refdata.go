package refstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"portfolio-rtd/internal/model"
)

const dateLayout = "2006-01-02"

func dateStr(t time.Time) string { return t.Format(dateLayout) }

// Portfolios returns all configured books.
func (s *Store) Portfolios(ctx context.Context) ([]model.Portfolio, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT portfolio_id, portfolio_name, portfolio_ccy FROM portfolios ORDER BY portfolio_id`)
	if err != nil {
		return nil, fmt.Errorf("refstore query portfolios: %w", err)
	}
	defer rows.Close()

	var out []model.Portfolio
	for rows.Next() {
		var p model.Portfolio
		if err := rows.Scan(&p.PortfolioID, &p.Name, &p.Ccy); err != nil {
			return nil, fmt.Errorf("refstore scan portfolio: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Securities returns the full security master.
func (s *Store) Securities(ctx context.Context) ([]model.Security, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT security_id, figi, ticker, COALESCE(description, ''), COALESCE(name, ''),
		       ccy, COALESCE(exch_code, ''), security_type, multiplier, expiration
		FROM securities ORDER BY security_id`)
	if err != nil {
		return nil, fmt.Errorf("refstore query securities: %w", err)
	}
	defer rows.Close()

	var out []model.Security
	for rows.Next() {
		var sec model.Security
		var expiration sql.NullString
		if err := rows.Scan(&sec.SecurityID, &sec.Figi, &sec.Ticker, &sec.Description,
			&sec.Name, &sec.Ccy, &sec.ExchCode, &sec.SecurityType, &sec.Multiplier, &expiration); err != nil {
			return nil, fmt.Errorf("refstore scan security: %w", err)
		}
		if expiration.Valid && expiration.String != "" {
			exp, err := time.Parse(dateLayout, expiration.String)
			if err != nil {
				return nil, fmt.Errorf("refstore security %d expiration %q: %w", sec.SecurityID, expiration.String, err)
			}
			sec.Expiration = exp
		}
		out = append(out, sec)
	}
	return out, rows.Err()
}

// FetchCloses returns the last non-null close on or before asOf per
// security (carry-forward).
func (s *Store) FetchCloses(ctx context.Context, asOf time.Time) (map[int64]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.security_id, m.close_price
		FROM market_data m
		JOIN (
			SELECT security_id, MAX(trade_date) AS last_date
			FROM market_data
			WHERE trade_date <= ? AND close_price IS NOT NULL
			GROUP BY security_id
		) latest ON latest.security_id = m.security_id AND latest.last_date = m.trade_date
		WHERE m.close_price IS NOT NULL`, dateStr(asOf))
	if err != nil {
		return nil, fmt.Errorf("refstore query closes: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]float64)
	for rows.Next() {
		var id int64
		var px float64
		if err := rows.Scan(&id, &px); err != nil {
			return nil, fmt.Errorf("refstore scan close: %w", err)
		}
		out[id] = px
	}
	return out, rows.Err()
}

// FetchFxRates returns the last known rate on or before asOf per
// currency (carry-forward).
func (s *Store) FetchFxRates(ctx context.Context, asOf time.Time) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.ccy, f.fx_rate
		FROM fx_rates f
		JOIN (
			SELECT ccy, MAX(fx_date) AS last_date
			FROM fx_rates
			WHERE fx_date <= ?
			GROUP BY ccy
		) latest ON latest.ccy = f.ccy AND latest.last_date = f.fx_date`, dateStr(asOf))
	if err != nil {
		return nil, fmt.Errorf("refstore query fx rates: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var ccy string
		var rate float64
		if err := rows.Scan(&ccy, &rate); err != nil {
			return nil, fmt.Errorf("refstore scan fx rate: %w", err)
		}
		out[ccy] = rate
	}
	return out, rows.Err()
}

// FetchDividends returns the cash amount per share for securities whose
// ex-date equals exDate. An empty map means no dividends, not an error.
func (s *Store) FetchDividends(ctx context.Context, exDate time.Time) (map[int64]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT security_id, cash_amount FROM dividends WHERE ex_dividend_date = ?`, dateStr(exDate))
	if err != nil {
		return nil, fmt.Errorf("refstore query dividends: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]float64)
	for rows.Next() {
		var id int64
		var amt float64
		if err := rows.Scan(&id, &amt); err != nil {
			return nil, fmt.Errorf("refstore scan dividend: %w", err)
		}
		out[id] = amt
	}
	return out, rows.Err()
}

// CashBalances returns the cumulative cash balance per portfolio as of
// the given date.
func (s *Store) CashBalances(ctx context.Context, asOf time.Time) (map[int64]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT portfolio_id, SUM(cash_amount)
		FROM cash_transactions
		WHERE txn_date <= ?
		GROUP BY portfolio_id`, dateStr(asOf))
	if err != nil {
		return nil, fmt.Errorf("refstore query cash balances: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]float64)
	for rows.Next() {
		var id int64
		var bal float64
		if err := rows.Scan(&id, &bal); err != nil {
			return nil, fmt.Errorf("refstore scan cash balance: %w", err)
		}
		out[id] = bal
	}
	return out, rows.Err()
}
