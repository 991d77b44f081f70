// Package engine runs the live P&L loop: one goroutine owns the
// snapshot store, applies quotes, publishes conflated frames, and runs
// the periodic tasks (chart ledger, blotter reconciliation, summary
// report) between ticks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"portfolio-rtd/internal/calendar"
	"portfolio-rtd/internal/ledger"
	"portfolio-rtd/internal/metrics"
	"portfolio-rtd/internal/model"
	"portfolio-rtd/internal/ntpclock"
	"portfolio-rtd/internal/publish"
	"portfolio-rtd/internal/report"
	"portfolio-rtd/internal/snapshot"
	"portfolio-rtd/internal/wire"
)

// Options wires the engine's collaborators. Ref, Market, Pub, Ledger,
// Clock and Log are required; the rest are optional.
type Options struct {
	Ref    model.ReferenceStore
	Market model.MarketData
	Pub    model.FramePublisher
	Ledger *ledger.Writer
	Clock  *ntpclock.Clock
	Cal    *calendar.Calendar

	Mirror  *publish.RedisMirror
	Reports *report.Dispatcher
	Metrics *metrics.Metrics
	Health  *metrics.HealthStatus

	Log *slog.Logger

	ChartInterval     time.Duration
	ReconcileInterval time.Duration
	SummaryInterval   time.Duration
}

// Engine is the single writer of the live snapshot.
type Engine struct {
	opts  Options
	store *snapshot.Store

	chart     timer
	reconcile timer
	summary   timer

	feedUp bool
}

// timer is a cooperative deadline checked between ticks. A zero next
// time means the timer is due immediately.
type timer struct {
	interval time.Duration
	next     time.Time
}

func (t *timer) due(now time.Time) bool {
	if now.Before(t.next) {
		return false
	}
	t.next = now.Add(t.interval)
	return true
}

func New(opts Options) (*Engine, error) {
	if opts.Ref == nil || opts.Market == nil || opts.Pub == nil ||
		opts.Ledger == nil || opts.Clock == nil || opts.Log == nil {
		return nil, errors.New("engine: missing required option")
	}
	if opts.Cal == nil {
		opts.Cal = calendar.New()
	}
	if opts.ChartInterval <= 0 {
		opts.ChartInterval = time.Second
	}
	if opts.ReconcileInterval <= 0 {
		opts.ReconcileInterval = 30 * time.Second
	}
	if opts.SummaryInterval <= 0 {
		opts.SummaryInterval = 30 * time.Minute
	}
	e := &Engine{opts: opts}
	e.chart.interval = opts.ChartInterval
	e.reconcile.interval = opts.ReconcileInterval
	e.summary.interval = opts.SummaryInterval
	return e, nil
}

// Run executes the engine until ctx is cancelled or reconciliation
// fails. A reconciliation failure is fatal: the snapshot can no longer
// be trusted, so the error propagates and the process must exit
// non-zero.
func (e *Engine) Run(ctx context.Context) error {
	// INIT: first reconciliation builds the snapshot before any quote.
	if err := e.runReconcile(ctx); err != nil {
		return err
	}
	e.opts.Pub.Publish(wire.EncodeResync())
	now := e.opts.Clock.Now()
	e.reconcile.next = now.Add(e.reconcile.interval)
	e.chart.next = now.Add(e.chart.interval)
	// summary stays due immediately: first loop iteration reports.

	subs := e.store.Subscriptions()
	stream, err := e.opts.Market.Stream(ctx, subs)
	if err != nil {
		return fmt.Errorf("engine: open stream: %w", err)
	}
	defer stream.Close()
	e.setFeedConnected(true)
	e.opts.Log.Info("streaming", "rows", e.store.Len(), "instruments", len(subs))

	for {
		if err := e.runTimers(ctx); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		quoteCtx, cancel := context.WithDeadline(ctx, e.nextDeadline())
		q, err := stream.Next(quoteCtx)
		cancel()
		switch {
		case err == nil && q.Terminal:
			e.onTerminal(q)
			e.waitCycle(ctx)
		case err == nil:
			e.onQuote(q)
		case errors.Is(err, context.DeadlineExceeded):
			// no quote this cycle; timers run on the next pass
		case ctx.Err() != nil:
			return nil
		default:
			return fmt.Errorf("engine: stream: %w", err)
		}
	}
}

func (e *Engine) nextDeadline() time.Time {
	next := e.chart.next
	if e.reconcile.next.Before(next) {
		next = e.reconcile.next
	}
	if e.summary.next.Before(next) {
		next = e.summary.next
	}
	return next
}

// onTerminal records that the stream (or one subscription) has ended.
// Only the transition is logged: a stream that keeps reporting terminal
// must not flood the log.
func (e *Engine) onTerminal(q model.Quote) {
	if e.feedUp {
		e.opts.Log.Warn("subscription ended", "key", q.Key)
	}
	e.setFeedConnected(false)
}

// waitCycle parks until the next timer is due. Used after a terminal
// quote so a stream with nothing left to deliver cannot spin the loop.
func (e *Engine) waitCycle(ctx context.Context) {
	d := time.Until(e.nextDeadline())
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (e *Engine) onQuote(q model.Quote) {
	m := e.opts.Metrics
	if m != nil {
		m.TicksTotal.Inc()
	}

	tsNano := e.opts.Clock.NowNS()
	rows := e.store.ApplyQuote(q, tsNano)
	if rows == nil {
		if m != nil {
			m.TickMisses.Inc()
		}
		return
	}

	if e.opts.Health != nil {
		e.opts.Health.SetLastQuoteTime(e.opts.Clock.Now())
	}
	e.setFeedConnected(true)

	frame := wire.EncodeUpdate(tsNano, rows)
	e.opts.Pub.Publish(frame)
	e.opts.Mirror.MirrorFrame(context.Background(), frame)
	if m != nil {
		m.FramesPublished.Inc()
	}
}

func (e *Engine) runTimers(ctx context.Context) error {
	now := e.opts.Clock.Now()
	if e.reconcile.due(now) {
		if err := e.runReconcile(ctx); err != nil {
			return err
		}
		e.opts.Pub.Publish(wire.EncodeResync())
		if e.opts.Metrics != nil {
			e.opts.Metrics.ResyncsTotal.Inc()
		}
	}
	if e.chart.due(now) {
		e.chartTick(ctx)
	}
	if e.summary.due(now) {
		e.dispatchSummary()
	}
	return nil
}

// runReconcile replaces the day's provisional trades with the current
// blotter, rebuilds the snapshot from the ledger, and persists the
// provisional daily rows. The store swap happens only after everything
// succeeded; the caller publishes the resync strictly afterwards.
func (e *Engine) runReconcile(ctx context.Context) error {
	start := time.Now()
	nowClock := e.opts.Clock.Now()
	cobDate := e.opts.Cal.CurrentCOB(nowClock)
	markDate := e.opts.Cal.PrevCOB(nowClock)

	fills, err := e.opts.Market.IntradayFills(ctx, cobDate)
	if err != nil {
		return fmt.Errorf("engine: intraday blotter: %w", err)
	}
	if err := e.opts.Ref.ReplaceProvisionalTrades(ctx, cobDate, fills); err != nil {
		return fmt.Errorf("engine: replace provisional trades: %w", err)
	}

	res, err := snapshot.Build(ctx, e.opts.Ref, cobDate, markDate)
	if err != nil {
		return fmt.Errorf("engine: rebuild snapshot: %w", err)
	}
	if err := e.opts.Ref.SaveDailyPositions(ctx, cobDate, res.Daily); err != nil {
		return fmt.Errorf("engine: save daily positions: %w", err)
	}
	e.store = res.Store

	if m := e.opts.Metrics; m != nil {
		m.ReconcileDur.Observe(time.Since(start).Seconds())
		m.LiveRows.Set(float64(e.store.Len()))
	}
	if e.opts.Health != nil {
		e.opts.Health.SetLastReconcile(nowClock)
		e.opts.Health.SetStoreOK(true)
	}
	e.opts.Log.Info("reconciled", "cob", cobDate.Format("2006-01-02"),
		"fills", len(fills), "rows", e.store.Len(), "took", time.Since(start))
	return nil
}

// chartTick appends one P&L sample per portfolio to the intraday
// ledger and mirrors the totals into Redis. Write failures are logged,
// not fatal: the chart can tolerate gaps.
func (e *Engine) chartTick(ctx context.Context) {
	tsNano := e.opts.Clock.NowNS()
	start := time.Now()
	for pid, pnl := range e.store.PnLByPortfolio() {
		if err := e.opts.Ledger.Append(pid, tsNano, pnl); err != nil {
			e.opts.Log.Warn("ledger append failed", "portfolio", pid, "err", err)
		}
		e.opts.Mirror.SetPortfolioPnL(ctx, pid, pnl)
	}
	if m := e.opts.Metrics; m != nil {
		m.LedgerWriteDur.Observe(time.Since(start).Seconds())
	}
}

func (e *Engine) dispatchSummary() {
	if e.opts.Reports == nil {
		return
	}
	snap := e.store.Clone()
	out := report.Snapshot{GeneratedAt: e.opts.Clock.Now()}
	for _, r := range snap.Rows() {
		out.Rows = append(out.Rows, report.Row{
			Portfolio: r.Portfolio,
			Ticker:    r.Ticker,
			Quantity:  r.Quantity,
			Chg:       r.Chg,
			PctChg:    r.PctChg,
			PnL:       r.PnL,
		})
	}
	e.opts.Reports.Dispatch(out)
	if e.opts.Metrics != nil {
		e.opts.Metrics.ReportsSent.Inc()
	}
}

func (e *Engine) setFeedConnected(v bool) {
	e.feedUp = v
	if e.opts.Health != nil {
		e.opts.Health.SetFeedConnected(v)
	}
}
