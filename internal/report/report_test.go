package report

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		GeneratedAt: time.Date(2026, 8, 31, 14, 30, 0, 0, time.UTC),
		Rows: []Row{
			{Portfolio: "Global Macro", Ticker: "AAA", Quantity: 100, Chg: 1.5, PctChg: 0.015, PnL: 150},
			{Portfolio: "Global Macro", Ticker: "BBB", Quantity: -50, Chg: -0.5, PctChg: -0.01, PnL: 25},
		},
	}
}

func TestWebhookTransportPostsJSON(t *testing.T) {
	var mu sync.Mutex
	var got Snapshot
	received := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type: %s", r.Header.Get("Content-Type"))
		}
		mu.Lock()
		json.NewDecoder(r.Body).Decode(&got)
		mu.Unlock()
		close(received)
	}))
	defer srv.Close()

	tr := NewWebhookTransport(srv.URL)
	if err := tr.Send(context.Background(), sampleSnapshot()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	<-received
	mu.Lock()
	defer mu.Unlock()
	if len(got.Rows) != 2 || got.Rows[0].Ticker != "AAA" || got.Rows[1].PnL != 25 {
		t.Errorf("delivered snapshot: %+v", got)
	}
}

func TestWebhookTransportReportsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	tr := NewWebhookTransport(srv.URL)
	if err := tr.Send(context.Background(), sampleSnapshot()); err == nil {
		t.Error("expected error on 502")
	}
}

type failingTransport struct{ calls chan struct{} }

func (f *failingTransport) Send(ctx context.Context, snap Snapshot) error {
	f.calls <- struct{}{}
	return errors.New("boom")
}

func TestDispatcherSwallowsFailures(t *testing.T) {
	failing := &failingTransport{calls: make(chan struct{}, 1)}
	d := NewDispatcher(slog.Default(), failing)

	d.Dispatch(sampleSnapshot())

	select {
	case <-failing.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("transport never invoked")
	}
	// Nothing to assert beyond "no panic, no propagation": Dispatch has
	// no error path by construction.
}

func TestLogTransportAggregatesPerPortfolio(t *testing.T) {
	tr := NewLogTransport(slog.Default())
	if err := tr.Send(context.Background(), sampleSnapshot()); err != nil {
		t.Fatalf("Send: %v", err)
	}
}
