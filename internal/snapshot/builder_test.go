package snapshot

import (
	"context"
	"testing"
	"time"

	"portfolio-rtd/internal/model"
)

// stubRef is an in-memory ReferenceStore for builder tests.
type stubRef struct {
	portfolios []model.Portfolio
	securities []model.Security
	trades     map[model.PosKey][]model.Trade
	closes     map[int64]float64
	prevCloses map[int64]float64
	fx         map[string]float64
	dividends  map[int64]float64
	balances   map[int64]float64

	markDate time.Time
}

func (s *stubRef) Portfolios(context.Context) ([]model.Portfolio, error) { return s.portfolios, nil }
func (s *stubRef) Securities(context.Context) ([]model.Security, error) { return s.securities, nil }
func (s *stubRef) FetchTrades(_ context.Context, _ time.Time) (map[model.PosKey][]model.Trade, error) {
	return s.trades, nil
}
func (s *stubRef) FetchCloses(_ context.Context, asOf time.Time) (map[int64]float64, error) {
	if asOf.Equal(s.markDate) {
		return s.prevCloses, nil
	}
	return s.closes, nil
}
func (s *stubRef) FetchFxRates(_ context.Context, _ time.Time) (map[string]float64, error) {
	return s.fx, nil
}
func (s *stubRef) FetchDividends(_ context.Context, _ time.Time) (map[int64]float64, error) {
	return s.dividends, nil
}
func (s *stubRef) CashBalances(_ context.Context, _ time.Time) (map[int64]float64, error) {
	return s.balances, nil
}
func (s *stubRef) ReplaceProvisionalTrades(context.Context, time.Time, []model.Trade) error {
	return nil
}
func (s *stubRef) SaveDailyPositions(context.Context, time.Time, []model.DailyPosition) error {
	return nil
}
func (s *stubRef) Close() error { return nil }

func newStubRef() *stubRef {
	markDate := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	earlier := markDate.AddDate(0, 0, -3)

	return &stubRef{
		markDate: markDate,
		portfolios: []model.Portfolio{
			{PortfolioID: 1, Name: "Global Macro", Ccy: "USD"},
		},
		securities: []model.Security{
			{SecurityID: 10, Figi: "BBG000AAA", Ticker: "AAA", Ccy: "USD", SecurityType: model.SecurityTypeEquity, Multiplier: 1},
			{SecurityID: 11, Figi: "BBG000BBB", Ticker: "BBB", Ccy: "EUR", SecurityType: model.SecurityTypeEquity, Multiplier: 1},
			{SecurityID: 12, Figi: "BBG000CCC", Ticker: "CCC", Ccy: "USD", SecurityType: model.SecurityTypeEquity, Multiplier: 1},
		},
		trades: map[model.PosKey][]model.Trade{
			{PortfolioID: 1, SecurityID: 10}: {
				{TradeDate: earlier, Quantity: 100, Price: 10, Commission: 1},
			},
			{PortfolioID: 1, SecurityID: 11}: {
				{TradeDate: earlier, Quantity: 50, Price: 20, Commission: 0},
			},
			// Flat position: opened and fully closed.
			{PortfolioID: 1, SecurityID: 12}: {
				{TradeDate: earlier, Quantity: 30, Price: 5, Commission: 0},
				{TradeDate: earlier, Quantity: -30, Price: 6, Commission: 0},
			},
		},
		closes:     map[int64]float64{10: 12, 11: 22, 12: 7},
		prevCloses: map[int64]float64{10: 11, 11: 21, 12: 7},
		fx:         map[string]float64{"USD": 1.0, "EUR": 1.1},
		dividends:  map[int64]float64{},
		balances:   map[int64]float64{1: 1000000},
	}
}

func TestBuild_LiveRowsExcludeFlatPositions(t *testing.T) {
	ref := newStubRef()
	asOf := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	res, err := Build(context.Background(), ref, asOf, ref.markDate)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if res.Store.Len() != 2 {
		t.Fatalf("live rows: got %d, want 2 (flat CCC excluded)", res.Store.Len())
	}
	if len(res.Daily) != 3 {
		t.Fatalf("daily rows: got %d, want 3 (flat retained for audit)", len(res.Daily))
	}

	aaa := res.Store.Lookup("BBG000AAA")
	if len(aaa) != 1 {
		t.Fatalf("AAA rows: got %d", len(aaa))
	}
	if aaa[0].Quantity != 100 || aaa[0].AvgCost != 10.01 {
		t.Errorf("AAA state: qty=%v cost=%v", aaa[0].Quantity, aaa[0].AvgCost)
	}
	if aaa[0].AUM != 1000000 {
		t.Errorf("AAA aum: %v", aaa[0].AUM)
	}
}

func TestBuild_FxCrossRate(t *testing.T) {
	ref := newStubRef()
	asOf := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	res, err := Build(context.Background(), ref, asOf, ref.markDate)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	bbb := res.Store.Lookup("BBG000BBB")[0]
	if bbb.FxRate != 1.1 {
		t.Errorf("EUR/USD cross: got %v, want 1.1", bbb.FxRate)
	}

	usd := res.Store.Lookup("BBG000AAA")[0]
	if usd.FxRate != 1.0 {
		t.Errorf("USD/USD cross: got %v, want 1.0", usd.FxRate)
	}
}

func TestBuild_ExpiredOptionExcluded(t *testing.T) {
	ref := newStubRef()
	asOf := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	ref.securities = append(ref.securities, model.Security{
		SecurityID: 13, Figi: "BBG000DDD", Ticker: "AAA 08/01/26 C100",
		Ccy: "USD", SecurityType: model.SecurityTypeOption, Multiplier: 100,
		Expiration: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	})
	ref.trades[model.PosKey{PortfolioID: 1, SecurityID: 13}] = []model.Trade{
		{TradeDate: ref.markDate.AddDate(0, 0, -10), Quantity: 5, Price: 2, Commission: 0},
	}

	res, err := Build(context.Background(), ref, asOf, ref.markDate)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if rows := res.Store.Lookup("BBG000DDD"); rows != nil {
		t.Errorf("expired option still live: %d rows", len(rows))
	}
}

func TestBuild_Idempotent(t *testing.T) {
	// Rebuilding with no new trades must yield an identical store.
	ref := newStubRef()
	asOf := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	a, err := Build(context.Background(), ref, asOf, ref.markDate)
	if err != nil {
		t.Fatalf("first Build: %v", err)
	}
	b, err := Build(context.Background(), ref, asOf, ref.markDate)
	if err != nil {
		t.Fatalf("second Build: %v", err)
	}

	if a.Store.Len() != b.Store.Len() {
		t.Fatalf("row counts differ: %d vs %d", a.Store.Len(), b.Store.Len())
	}
	for i := range a.Store.Rows() {
		ra, rb := a.Store.Rows()[i], b.Store.Rows()[i]
		// Price/Bid/Ask are NaN before the first tick, so compare the
		// built fields individually.
		if ra.RowID != rb.RowID || ra.Key != rb.Key ||
			ra.Quantity != rb.Quantity || ra.AvgCost != rb.AvgCost ||
			ra.ClosePrice != rb.ClosePrice || ra.FxRate != rb.FxRate ||
			ra.MktValue != rb.MktValue || ra.AUM != rb.AUM {
			t.Errorf("row %d drifted:\n first: %+v\nsecond: %+v", i, *ra, *rb)
		}
	}
}
