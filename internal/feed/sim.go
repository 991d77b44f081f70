package feed

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"portfolio-rtd/internal/model"
)

const defaultSimInterval = 100 * time.Millisecond

// spread ladder: tight spreads are the most common
var (
	simSpreads       = []float64{0.02, 0.04, 0.06}
	simSpreadWeights = []float64{0.5, 0.3, 0.2}
)

// Sim generates lognormal random-walk quotes seeded from each
// subscription's reference price. One random instrument moves per
// interval, roughly matching the cadence of a quiet live feed.
type Sim struct {
	cfg Config
	log *slog.Logger
}

func NewSim(cfg Config, log *slog.Logger) *Sim {
	if cfg.SimTickInterval <= 0 {
		cfg.SimTickInterval = defaultSimInterval
	}
	return &Sim{cfg: cfg, log: log}
}

func (s *Sim) Stream(ctx context.Context, subs []model.Subscription) (model.TickStream, error) {
	st := &simStream{
		interval: s.cfg.SimTickInterval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		keys:     make([]string, 0, len(subs)),
		last:     make(map[string]float64, len(subs)),
	}
	for _, sub := range subs {
		price := sub.ReferencePrice
		if math.IsNaN(price) || price <= 0 {
			price = 100
		}
		st.keys = append(st.keys, sub.Key)
		st.last[sub.Key] = price
	}
	s.log.Info("sim feed started", "instruments", len(st.keys), "interval", s.cfg.SimTickInterval)
	return st, nil
}

// IntradayFills reports nothing: the simulator quotes prices but never
// trades.
func (s *Sim) IntradayFills(ctx context.Context, cobDate time.Time) ([]model.Trade, error) {
	return nil, nil
}

type simStream struct {
	interval time.Duration
	rng      *rand.Rand
	keys     []string
	last     map[string]float64
	closed   bool
}

func (st *simStream) Next(ctx context.Context) (model.Quote, error) {
	// Always wait out the tick interval, even with nothing to quote:
	// an exhausted stream reports terminal at feed cadence, never in
	// a busy loop.
	select {
	case <-ctx.Done():
		return model.Quote{}, ctx.Err()
	case <-time.After(st.interval):
	}

	if st.closed || len(st.keys) == 0 {
		return model.Quote{Terminal: true}, nil
	}

	key := st.keys[st.rng.Intn(len(st.keys))]
	price := st.last[key] * math.Exp(st.rng.NormFloat64()*0.0005)
	st.last[key] = price

	spread := pickWeighted(st.rng, simSpreads, simSpreadWeights)
	return model.Quote{
		Key:  key,
		Last: price,
		Bid:  price - spread/2,
		Ask:  price + spread/2,
	}, nil
}

func (st *simStream) Close() error {
	st.closed = true
	return nil
}

func pickWeighted(rng *rand.Rand, values, weights []float64) float64 {
	var total float64
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	for i, w := range weights {
		if r < w {
			return values[i]
		}
		r -= w
	}
	return values[len(values)-1]
}
