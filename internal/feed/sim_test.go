package feed

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"testing"
	"time"

	"portfolio-rtd/internal/model"
)

func TestSimQuotesSeededFromReferencePrice(t *testing.T) {
	sim := NewSim(Config{SimTickInterval: time.Millisecond}, slog.Default())
	st, err := sim.Stream(context.Background(), []model.Subscription{
		{Key: "BBG000AAA", ReferencePrice: 50},
		{Key: "BBG000BBB", ReferencePrice: 200},
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	seen := map[string]bool{}
	for i := 0; i < 200 && len(seen) < 2; i++ {
		q, err := st.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if q.Terminal {
			t.Fatal("unexpected terminal quote")
		}
		seen[q.Key] = true

		// A short random walk stays near its seed.
		var ref float64
		switch q.Key {
		case "BBG000AAA":
			ref = 50
		case "BBG000BBB":
			ref = 200
		default:
			t.Fatalf("unknown key %q", q.Key)
		}
		if q.Last < ref*0.8 || q.Last > ref*1.2 {
			t.Errorf("%s drifted to %v from seed %v", q.Key, q.Last, ref)
		}
		if !(q.Bid < q.Last && q.Last < q.Ask) {
			t.Errorf("quote not ordered: bid %v last %v ask %v", q.Bid, q.Last, q.Ask)
		}
		spread := q.Ask - q.Bid
		if spread < 0.019 || spread > 0.061 {
			t.Errorf("spread %v outside ladder", spread)
		}
	}
	if len(seen) != 2 {
		t.Errorf("instruments quoted: got %d, want 2", len(seen))
	}
}

func TestSimBadReferencePriceDefaults(t *testing.T) {
	sim := NewSim(Config{SimTickInterval: time.Millisecond}, slog.Default())
	st, err := sim.Stream(context.Background(), []model.Subscription{
		{Key: "X", ReferencePrice: math.NaN()},
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q, err := st.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if math.IsNaN(q.Last) || q.Last <= 0 {
		t.Errorf("quote from NaN seed: %v", q.Last)
	}
}

func TestSimClosedStreamIsTerminal(t *testing.T) {
	sim := NewSim(Config{SimTickInterval: time.Millisecond}, slog.Default())
	st, _ := sim.Stream(context.Background(), []model.Subscription{{Key: "X", ReferencePrice: 10}})
	st.Close()

	q, err := st.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !q.Terminal {
		t.Error("closed stream should report terminal")
	}
}

func TestSimEmptyBookTerminalIsPaced(t *testing.T) {
	sim := NewSim(Config{SimTickInterval: 20 * time.Millisecond}, slog.Default())
	st, _ := sim.Stream(context.Background(), nil)
	defer st.Close()

	start := time.Now()
	for i := 0; i < 3; i++ {
		q, err := st.Next(context.Background())
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !q.Terminal {
			t.Fatalf("empty book should report terminal, got %+v", q)
		}
	}
	if el := time.Since(start); el < 60*time.Millisecond {
		t.Errorf("3 terminal reads took %v, want one tick interval per read", el)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := st.Next(ctx); err == nil {
		t.Error("cancelled context should abort the wait")
	}
}

func TestSimHasNoFills(t *testing.T) {
	sim := NewSim(Config{}, slog.Default())
	fills, err := sim.IntradayFills(context.Background(), time.Now())
	if err != nil || fills != nil {
		t.Errorf("got fills=%v err=%v", fills, err)
	}
}

func TestPickWeightedCoversAllValues(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	counts := map[float64]int{}
	for i := 0; i < 10000; i++ {
		counts[pickWeighted(rng, simSpreads, simSpreadWeights)]++
	}
	if len(counts) != 3 {
		t.Fatalf("values hit: %v", counts)
	}
	// Heaviest weight should dominate.
	if counts[0.02] < counts[0.04] || counts[0.04] < counts[0.06] {
		t.Errorf("weight ordering not respected: %v", counts)
	}
}

func TestFactoryRejectsUnknownProvider(t *testing.T) {
	if _, err := New(Config{Provider: "carrier-pigeon"}, slog.Default()); err == nil {
		t.Error("expected error for unknown provider")
	}
}
