// Package costbasis computes position cost basis and P&L decomposition
// from an ordered trade ledger using a weighted-average-cost lot model.
//
// It is pure computation: no I/O, no shared state. The engine feeds it
// split-adjusted trades plus close/FX/dividend reference values and gets
// back the per-position state broadcast to subscribers.
package costbasis

import (
	"math"
	"time"

	"portfolio-rtd/internal/model"
)

// State is the running lot state carried across trades.
type State struct {
	Quantity    float64
	AvgCost     float64
	RealizedPnL float64
}

// Apply folds one trade into the running state.
//
// Crossing zero realizes the entire pre-crossing quantity at
// (price - avg cost) and reopens the remainder at the trade price.
// Commissions are capitalized into average cost on opens and adds, and
// deducted in full from realized P&L on closes — including partial
// closes, where the full commission is charged against the closed
// portion rather than prorated.
func (s *State) Apply(t model.Trade) {
	oldQty := s.Quantity
	oldCost := s.AvgCost
	newQty := oldQty + t.Quantity

	switch {
	case oldQty*newQty < 0:
		// Crossing zero: close all of oldQty, reopen remainder at trade price.
		s.RealizedPnL += oldQty*(t.Price-oldCost) - t.Commission
		s.Quantity = newQty
		s.AvgCost = t.Price

	case oldQty == 0:
		s.Quantity = newQty
		s.AvgCost = t.Price
		if newQty != 0 {
			s.AvgCost = (s.AvgCost*math.Abs(newQty) + t.Commission) / math.Abs(newQty)
		}

	case newQty == 0:
		// Full close.
		s.RealizedPnL += oldQty*(t.Price-oldCost) - t.Commission
		s.Quantity = 0
		s.AvgCost = 0

	case math.Abs(newQty) > math.Abs(oldQty):
		// Same-side add: new weighted average.
		s.AvgCost = (oldQty*oldCost + t.Quantity*t.Price + t.Commission) / newQty
		s.Quantity = newQty

	default:
		// Same-side partial close: realize the closed portion, cost unchanged.
		closed := oldQty - newQty
		s.RealizedPnL += closed*(t.Price-oldCost) - t.Commission
		s.Quantity = newQty
	}
}

// Inputs are the full trade history of one (portfolio, security) up to
// and including the as-of date, plus the reference values for that date.
// Close and PrevClose are NaN when no value is known.
type Inputs struct {
	Trades []model.Trade // ascending (trade_date, trade_id) order
	AsOf   time.Time

	Close            float64
	PrevClose        float64
	Multiplier       float64
	DividendPerShare float64 // nonzero only when ex-date == AsOf
	FxRate           float64 // instrument ccy rate / portfolio ccy rate
}

// Result is the position state and day-over-day P&L decomposition.
type Result struct {
	NetQuantity float64
	AvgCost     float64
	RealizedPnL float64

	IntradayPnL   float64 // same-day trades: execution price vs close
	UnrealizedPnL float64 // close vs prior close
	DividendPnL   float64
	TotalPnL      float64 // local currency: intraday + unrealized + dividend
	TotalPnLPort  float64 // translated to portfolio currency
}

// Compute replays the trade history and returns the as-of position state.
//
// Reference-data gaps are never fatal: a missing prior close collapses the
// day-over-day term to zero, a missing close suppresses the intraday and
// unrealized terms, and a missing FX rate translates at 1.
func Compute(in Inputs) Result {
	mult := in.Multiplier
	if mult <= 0 {
		mult = 1
	}
	fx := in.FxRate
	if fx == 0 || math.IsNaN(fx) {
		fx = 1
	}

	var st State
	var intraday float64
	for _, t := range in.Trades {
		if sameDate(t.TradeDate, in.AsOf) && !math.IsNaN(in.Close) {
			intraday += mult * t.Quantity * (in.Close - t.Price)
		}
		st.Apply(t)
	}

	closePx := in.Close
	prevPx := in.PrevClose
	if math.IsNaN(prevPx) {
		prevPx = closePx
	}
	var unrealized float64
	if !math.IsNaN(closePx) && !math.IsNaN(prevPx) {
		unrealized = st.Quantity * mult * (closePx - prevPx)
	}
	dividend := mult * st.Quantity * in.DividendPerShare

	total := intraday + unrealized + dividend
	return Result{
		NetQuantity:   st.Quantity,
		AvgCost:       st.AvgCost,
		RealizedPnL:   st.RealizedPnL,
		IntradayPnL:   intraday,
		UnrealizedPnL: unrealized,
		DividendPnL:   dividend,
		TotalPnL:      total,
		TotalPnLPort:  total * fx,
	}
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
