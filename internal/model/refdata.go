package model

import "time"

// SecurityType distinguishes linear instruments from contract-multiplied ones.
const (
	SecurityTypeEquity = "Equity"
	SecurityTypeOption = "Option"
	SecurityTypeFuture = "Future"
)

// Security is one instrument from the reference store.
type Security struct {
	SecurityID   int64
	Figi         string
	Ticker       string
	Description  string // human-readable; used as display ticker for options
	Name         string
	Ccy          string
	ExchCode     string
	SecurityType string
	Multiplier   float64   // shares per contract; 1 for equities
	Expiration   time.Time // zero for non-expiring instruments
}

// CorrelationKey returns the key live quotes are matched on.
func (s *Security) CorrelationKey() string {
	if s.Figi != "" {
		return s.Figi
	}
	return s.Ticker
}

// DisplayTicker returns the ticker shown to subscribers: options display
// their description, everything else its exchange ticker.
func (s *Security) DisplayTicker() string {
	if s.SecurityType == SecurityTypeOption && s.Description != "" {
		return s.Description
	}
	return s.Ticker
}

// Expired reports whether the instrument has expired as of the given date.
func (s *Security) Expired(asOf time.Time) bool {
	return !s.Expiration.IsZero() && s.Expiration.Before(asOf)
}

// Portfolio is one book from the reference store.
type Portfolio struct {
	PortfolioID int64
	Name        string
	Ccy         string
}

// Dividend is one cash dividend; P&L is recognized on the ex-date.
type Dividend struct {
	SecurityID int64
	ExDate     time.Time
	CashAmount float64 // per share, instrument currency
	Ccy        string
}

// StockSplit adjusts historic trades: quantities scale by To/From,
// prices and commissions by the inverse.
type StockSplit struct {
	SecurityID int64
	SplitDate  time.Time
	From       int64
	To         int64
}

// Factor returns the quantity adjustment factor of the split.
func (s *StockSplit) Factor() float64 {
	if s.From == 0 {
		return 1
	}
	return float64(s.To) / float64(s.From)
}

// DailyPosition is one persisted EOD (or intraday-provisional) snapshot row.
type DailyPosition struct {
	PortfolioID int64
	SecurityID  int64
	CobDate     time.Time
	PrevCobDate time.Time

	NetQuantity float64
	Multiplier  float64
	AvgCost     float64
	ClosePrice  float64
	PrevClose   float64
	FxRate      float64

	IntradayPnL   float64
	UnrealizedPnL float64
	DividendPnL   float64
	TotalPnL      float64 // local currency
	TotalPnLPort  float64 // portfolio currency

	CreatedBy string // "EOD" or "INTRADAY"
}
