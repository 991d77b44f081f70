package refstore

import "database/sql"

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS portfolios (
			portfolio_id   INTEGER PRIMARY KEY,
			portfolio_name TEXT NOT NULL,
			portfolio_ccy  TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS securities (
			security_id   INTEGER PRIMARY KEY,
			figi          TEXT NOT NULL,
			ticker        TEXT NOT NULL,
			description   TEXT,
			name          TEXT,
			ccy           TEXT NOT NULL,
			exch_code     TEXT,
			security_type TEXT NOT NULL DEFAULT 'Equity',
			multiplier    REAL NOT NULL DEFAULT 1,
			expiration    TEXT
		);

		CREATE TABLE IF NOT EXISTS trades (
			trade_id     INTEGER PRIMARY KEY AUTOINCREMENT,
			portfolio_id INTEGER NOT NULL REFERENCES portfolios(portfolio_id),
			security_id  INTEGER NOT NULL REFERENCES securities(security_id),
			trade_date   TEXT NOT NULL,
			quantity     REAL NOT NULL,
			price        REAL NOT NULL,
			commission   REAL NOT NULL DEFAULT 0,
			source       TEXT NOT NULL DEFAULT 'BLOTTER'
		);
		CREATE INDEX IF NOT EXISTS idx_trades_psn ON trades(portfolio_id, security_id, trade_date);
		CREATE INDEX IF NOT EXISTS idx_trades_date_source ON trades(trade_date, source);

		CREATE TABLE IF NOT EXISTS market_data (
			security_id INTEGER NOT NULL REFERENCES securities(security_id),
			trade_date  TEXT NOT NULL,
			close_price REAL,
			PRIMARY KEY (security_id, trade_date)
		);

		CREATE TABLE IF NOT EXISTS fx_rates (
			ccy     TEXT NOT NULL,
			fx_date TEXT NOT NULL,
			fx_rate REAL NOT NULL,
			PRIMARY KEY (ccy, fx_date)
		);

		CREATE TABLE IF NOT EXISTS dividends (
			security_id      INTEGER NOT NULL REFERENCES securities(security_id),
			ex_dividend_date TEXT NOT NULL,
			cash_amount      REAL NOT NULL,
			ccy              TEXT NOT NULL,
			PRIMARY KEY (security_id, ex_dividend_date)
		);

		CREATE TABLE IF NOT EXISTS stock_splits (
			security_id INTEGER NOT NULL REFERENCES securities(security_id),
			split_date  TEXT NOT NULL,
			split_from  INTEGER NOT NULL,
			split_to    INTEGER NOT NULL,
			PRIMARY KEY (security_id, split_date)
		);

		CREATE TABLE IF NOT EXISTS cash_transactions (
			cash_txn_id  INTEGER PRIMARY KEY AUTOINCREMENT,
			portfolio_id INTEGER NOT NULL REFERENCES portfolios(portfolio_id),
			txn_date     TEXT NOT NULL,
			cash_amount  REAL NOT NULL
		);

		CREATE TABLE IF NOT EXISTS daily_positions (
			portfolio_id       INTEGER NOT NULL,
			security_id        INTEGER NOT NULL,
			cob_date           TEXT NOT NULL,
			prev_cob_date      TEXT NOT NULL,
			net_quantity       REAL NOT NULL,
			multiplier         REAL NOT NULL,
			avg_cost           REAL NOT NULL,
			close_price        REAL NOT NULL,
			prev_close_price   REAL NOT NULL,
			cob_fx_rate        REAL NOT NULL,
			intraday_pnl       REAL NOT NULL,
			unrealized_dod_pnl REAL NOT NULL,
			dividend_pnl       REAL NOT NULL,
			total_dod_pnl      REAL NOT NULL,
			total_dod_pnl_port REAL NOT NULL,
			created_by         TEXT NOT NULL,
			PRIMARY KEY (portfolio_id, security_id, cob_date, created_by)
		);
	`)
	return err
}
