package model

import "math"

// LiveRow is one open position in the live snapshot, extended with
// mutable quote fields. Rows are built once per reconciliation cycle
// and mutated in place by the tick loop; RowID is stable for the
// lifetime of one snapshot and is the identity broadcast on the wire.
type LiveRow struct {
	RowID       int32
	PortfolioID int64
	SecurityID  int64
	Portfolio   string
	Ticker      string // display ticker; option description for options
	Key         string // correlation key matched against Quote.Key
	Ccy         string
	SecType     string // display grouping within a portfolio

	Quantity   float64
	Multiplier float64
	AvgCost    float64
	ClosePrice float64
	FxRate     float64 // instrument ccy rate / portfolio ccy rate, as-of COB
	AUM        float64 // latest cash balance in portfolio currency

	// Mutable quote state. Price/Bid/Ask start as NaN until the first tick.
	Price       float64
	Bid         float64
	Ask         float64
	QuoteTSNano int64

	// Derived fields, recomputed on every applied tick.
	MktValue float64
	Chg      float64
	PctChg   float64
	PctAUM   float64
	GainLoss float64
	PnL      float64
}

// ResetQuote initializes the mutable fields to their pre-tick state:
// market value marked at the prior close, P&L flat.
func (r *LiveRow) ResetQuote() {
	r.Price = math.NaN()
	r.Bid = math.NaN()
	r.Ask = math.NaN()
	r.QuoteTSNano = 0
	r.MktValue = r.ClosePrice * r.Quantity * r.Multiplier * r.FxRate
	r.Chg = 0
	r.PctChg = 0
	r.PctAUM = 0
	r.GainLoss = 0
	r.PnL = 0
}

// ApplyQuote updates the row from a quote and recomputes the derived
// fields using the multiplier and FX rate cached on the row.
// The caller must have checked q.HasLast().
func (r *LiveRow) ApplyQuote(q Quote, tsNano int64) {
	r.Price = q.Last
	r.Bid = q.Bid
	r.Ask = q.Ask
	r.QuoteTSNano = tsNano

	r.MktValue = r.Price * r.Quantity * r.Multiplier * r.FxRate
	r.Chg = r.Price - r.ClosePrice
	if r.ClosePrice != 0 {
		r.PctChg = r.Price/r.ClosePrice - 1
	} else {
		r.PctChg = 0
	}
	r.PnL = r.Chg * r.Quantity * r.Multiplier * r.FxRate
	if r.AUM != 0 {
		r.PctAUM = r.MktValue / r.AUM
	} else {
		r.PctAUM = 0
	}
	r.GainLoss = r.MktValue - r.AvgCost*r.Quantity
}
