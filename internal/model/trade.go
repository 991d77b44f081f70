package model

import "time"

// TradeSource tags the provenance of a trade row.
type TradeSource string

const (
	// SourceBlotter marks trades confirmed by the end-of-day blotter load.
	SourceBlotter TradeSource = "BLOTTER"
	// SourceManual marks manually entered trades.
	SourceManual TradeSource = "MANUAL"
	// SourceIntraday marks same-day provisional fills, subject to
	// delete-and-reinsert on every reconciliation cycle.
	SourceIntraday TradeSource = "INTRADAY"
)

// Trade is one immutable row of the trade ledger.
// Quantity is signed: positive increases a long, negative increases a short.
type Trade struct {
	TradeID     int64       `json:"trade_id"`
	PortfolioID int64       `json:"portfolio_id"`
	SecurityID  int64       `json:"security_id"`
	TradeDate   time.Time   `json:"trade_date"`
	Quantity    float64     `json:"quantity"`
	Price       float64     `json:"price"`
	Commission  float64     `json:"commission"`
	Source      TradeSource `json:"source"`
}

// PosKey identifies a position: one (portfolio, security) pair.
type PosKey struct {
	PortfolioID int64
	SecurityID  int64
}

// Key returns the position key for this trade.
func (t *Trade) Key() PosKey {
	return PosKey{PortfolioID: t.PortfolioID, SecurityID: t.SecurityID}
}
