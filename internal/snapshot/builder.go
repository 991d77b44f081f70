package snapshot

import (
	"context"
	"fmt"
	"math"
	"time"

	"portfolio-rtd/internal/costbasis"
	"portfolio-rtd/internal/model"
)

// BuildResult carries the rebuilt live store plus the daily snapshot
// rows to persist for the session date.
type BuildResult struct {
	Store *Store
	Daily []model.DailyPosition
}

// Build reconstructs the live snapshot from the trade ledger and
// reference data. asOf is the live session date (T+0); markDate is the
// prior close-of-business date whose closes and FX rates anchor the
// day-over-day decomposition.
//
// Zero-quantity positions are kept in the daily snapshot for audit
// continuity but excluded from the live store; expired options are
// excluded from both row sets' live view.
func Build(ctx context.Context, ref model.ReferenceStore, asOf, markDate time.Time) (*BuildResult, error) {
	portfolios, err := ref.Portfolios(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load portfolios: %w", err)
	}
	securities, err := ref.Securities(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load securities: %w", err)
	}
	trades, err := ref.FetchTrades(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load trades: %w", err)
	}
	closes, err := ref.FetchCloses(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load closes: %w", err)
	}
	prevCloses, err := ref.FetchCloses(ctx, markDate)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load prior closes: %w", err)
	}
	fxRates, err := ref.FetchFxRates(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load fx rates: %w", err)
	}
	dividends, err := ref.FetchDividends(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load dividends: %w", err)
	}
	balances, err := ref.CashBalances(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load cash balances: %w", err)
	}

	portByID := make(map[int64]model.Portfolio, len(portfolios))
	for _, p := range portfolios {
		portByID[p.PortfolioID] = p
	}
	secByID := make(map[int64]model.Security, len(securities))
	for _, s := range securities {
		secByID[s.SecurityID] = s
	}

	var rows []*model.LiveRow
	var daily []model.DailyPosition

	for key, group := range trades {
		port, ok := portByID[key.PortfolioID]
		if !ok {
			return nil, fmt.Errorf("snapshot: trade references unknown portfolio %d", key.PortfolioID)
		}
		sec, ok := secByID[key.SecurityID]
		if !ok {
			return nil, fmt.Errorf("snapshot: trade references unknown security %d", key.SecurityID)
		}

		fx := crossRate(fxRates, sec.Ccy, port.Ccy)
		res := costbasis.Compute(costbasis.Inputs{
			Trades:           group,
			AsOf:             asOf,
			Close:            lookupPx(closes, sec.SecurityID),
			PrevClose:        lookupPx(prevCloses, sec.SecurityID),
			Multiplier:       sec.Multiplier,
			DividendPerShare: dividends[sec.SecurityID],
			FxRate:           fx,
		})

		daily = append(daily, model.DailyPosition{
			PortfolioID:   key.PortfolioID,
			SecurityID:    key.SecurityID,
			CobDate:       asOf,
			PrevCobDate:   markDate,
			NetQuantity:   res.NetQuantity,
			Multiplier:    sec.Multiplier,
			AvgCost:       res.AvgCost,
			ClosePrice:    nanToZero(lookupPx(closes, sec.SecurityID)),
			PrevClose:     nanToZero(lookupPx(prevCloses, sec.SecurityID)),
			FxRate:        fx,
			IntradayPnL:   res.IntradayPnL,
			UnrealizedPnL: res.UnrealizedPnL,
			DividendPnL:   res.DividendPnL,
			TotalPnL:      res.TotalPnL,
			TotalPnLPort:  res.TotalPnLPort,
			CreatedBy:     string(model.SourceIntraday),
		})

		if res.NetQuantity == 0 || sec.Expired(asOf) {
			continue
		}

		mult := sec.Multiplier
		if mult <= 0 {
			mult = 1
		}
		row := &model.LiveRow{
			PortfolioID: key.PortfolioID,
			SecurityID:  key.SecurityID,
			Portfolio:   port.Name,
			Ticker:      sec.DisplayTicker(),
			Key:         sec.CorrelationKey(),
			Ccy:         sec.Ccy,
			SecType:     sec.SecurityType,
			Quantity:    res.NetQuantity,
			Multiplier:  mult,
			AvgCost:     res.AvgCost,
			ClosePrice:  nanToZero(lookupPx(closes, sec.SecurityID)),
			FxRate:      fx,
			AUM:         balances[key.PortfolioID],
		}
		row.ResetQuote()
		rows = append(rows, row)
	}

	return &BuildResult{Store: NewStore(rows), Daily: daily}, nil
}

// crossRate resolves instrument-to-portfolio currency translation from
// per-currency rates. Missing rates carry forward to 1 (no-op policy).
func crossRate(rates map[string]float64, secCcy, portCcy string) float64 {
	if secCcy == portCcy {
		return 1
	}
	secRate, okSec := rates[secCcy]
	portRate, okPort := rates[portCcy]
	if !okSec || !okPort || portRate == 0 {
		return 1
	}
	return secRate / portRate
}

func lookupPx(m map[int64]float64, id int64) float64 {
	if px, ok := m[id]; ok {
		return px
	}
	return math.NaN()
}

func nanToZero(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return f
}
