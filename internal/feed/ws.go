package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/pquerna/otp/totp"

	"portfolio-rtd/internal/model"
)

// WSFeed attaches to a vendor WebSocket quote feed. Login is an HTTP
// session exchange (API key + password + TOTP); the returned token
// authorizes both the stream and the intraday blotter endpoint.
type WSFeed struct {
	cfg  Config
	log  *slog.Logger
	http *resty.Client

	mu           sync.Mutex
	sessionToken string
}

func (f *WSFeed) setToken(tok string) {
	f.mu.Lock()
	f.sessionToken = tok
	f.mu.Unlock()
}

func (f *WSFeed) token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessionToken
}

func NewWSFeed(cfg Config, log *slog.Logger) (*WSFeed, error) {
	if cfg.WSURL == "" {
		return nil, fmt.Errorf("feed: ws provider requires a stream URL")
	}
	if _, err := url.Parse(cfg.WSURL); err != nil {
		return nil, fmt.Errorf("feed: bad stream URL: %w", err)
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 2 * time.Second
	}
	if cfg.MaxReconnectDelay <= 0 {
		cfg.MaxReconnectDelay = 30 * time.Second
	}
	client := resty.New().
		SetTimeout(15 * time.Second).
		SetRetryCount(2)
	return &WSFeed{cfg: cfg, log: log, http: client}, nil
}

type loginRequest struct {
	ClientCode string `json:"client_code"`
	Password   string `json:"password"`
	TOTP       string `json:"totp"`
}

type loginResponse struct {
	Status bool   `json:"status"`
	Token  string `json:"token"`
	Error  string `json:"error"`
}

func (f *WSFeed) login(ctx context.Context) (string, error) {
	code, err := totp.GenerateCode(f.cfg.TOTPSecret, time.Now())
	if err != nil {
		return "", fmt.Errorf("feed: totp: %w", err)
	}

	var out loginResponse
	resp, err := f.http.R().
		SetContext(ctx).
		SetHeader("X-API-Key", f.cfg.APIKey).
		SetBody(loginRequest{ClientCode: f.cfg.ClientCode, Password: f.cfg.Password, TOTP: code}).
		SetResult(&out).
		Post(f.cfg.LoginURL)
	if err != nil {
		return "", fmt.Errorf("feed: login request: %w", err)
	}
	if resp.IsError() || !out.Status || out.Token == "" {
		return "", fmt.Errorf("feed: login rejected: http %d %s", resp.StatusCode(), out.Error)
	}
	return out.Token, nil
}

func (f *WSFeed) Stream(ctx context.Context, subs []model.Subscription) (model.TickStream, error) {
	keys := make([]string, len(subs))
	for i, s := range subs {
		keys[i] = s.Key
	}
	st := &wsStream{
		feed:   f,
		keys:   keys,
		quotes: make(chan model.Quote, 256),
	}
	streamCtx, cancel := context.WithCancel(ctx)
	st.cancel = cancel
	go st.run(streamCtx)
	return st, nil
}

type blotterFill struct {
	PortfolioID int64   `json:"portfolio_id"`
	SecurityID  int64   `json:"security_id"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
	Commission  float64 `json:"commission"`
}

// IntradayFills pulls the day's executed blotter. An empty blotter is
// a normal result, not an error.
func (f *WSFeed) IntradayFills(ctx context.Context, cobDate time.Time) ([]model.Trade, error) {
	if f.cfg.BlotterURL == "" {
		return nil, nil
	}

	var fills []blotterFill
	resp, err := f.http.R().
		SetContext(ctx).
		SetHeader("X-API-Key", f.cfg.APIKey).
		SetAuthToken(f.token()).
		SetQueryParam("date", cobDate.Format("2006-01-02")).
		SetResult(&fills).
		Get(f.cfg.BlotterURL)
	if err != nil {
		return nil, fmt.Errorf("feed: blotter fetch: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("feed: blotter fetch: http %d", resp.StatusCode())
	}

	trades := make([]model.Trade, 0, len(fills))
	for _, fill := range fills {
		trades = append(trades, model.Trade{
			PortfolioID: fill.PortfolioID,
			SecurityID:  fill.SecurityID,
			TradeDate:   cobDate,
			Quantity:    fill.Quantity,
			Price:       fill.Price,
			Commission:  fill.Commission,
			Source:      model.SourceIntraday,
		})
	}
	return trades, nil
}

type wsStream struct {
	feed   *WSFeed
	keys   []string
	quotes chan model.Quote
	cancel context.CancelFunc
}

// wireQuote tolerates nulls: a missing side or last simply carries no
// price for that field this update.
type wireQuote struct {
	Key  string   `json:"key"`
	Last *float64 `json:"last"`
	Bid  *float64 `json:"bid"`
	Ask  *float64 `json:"ask"`
	End  bool     `json:"subscription_end"`
}

func (st *wsStream) run(ctx context.Context) {
	defer close(st.quotes)

	delay := st.feed.cfg.ReconnectDelay
	for {
		if ctx.Err() != nil {
			return
		}

		err := st.runOnce(ctx)
		if err == nil {
			return
		}
		st.feed.log.Warn("feed disconnected, reconnecting", "err", err, "delay", delay)
		if st.feed.cfg.OnReconnect != nil {
			st.feed.cfg.OnReconnect()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > st.feed.cfg.MaxReconnectDelay {
			delay = st.feed.cfg.MaxReconnectDelay
		}
	}
}

func (st *wsStream) runOnce(ctx context.Context) error {
	token, err := st.feed.login(ctx)
	if err != nil {
		return err
	}
	st.feed.setToken(token)

	hdr := make(map[string][]string)
	hdr["Authorization"] = []string{"Bearer " + token}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, st.feed.cfg.WSURL, hdr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"action": "subscribe", "keys": st.keys}); err != nil {
		return err
	}
	st.feed.log.Info("feed connected", "url", st.feed.cfg.WSURL, "instruments", len(st.keys))

	go func() {
		<-ctx.Done()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var wq wireQuote
		if err := json.Unmarshal(raw, &wq); err != nil {
			st.feed.log.Warn("feed parse error", "err", err)
			continue
		}
		if wq.End {
			st.deliver(ctx, model.Quote{Key: wq.Key, Terminal: true})
			continue
		}
		if wq.Key == "" {
			continue
		}
		st.deliver(ctx, model.Quote{
			Key:  wq.Key,
			Last: deref(wq.Last),
			Bid:  deref(wq.Bid),
			Ask:  deref(wq.Ask),
		})
	}
}

func (st *wsStream) deliver(ctx context.Context, q model.Quote) {
	select {
	case st.quotes <- q:
	case <-ctx.Done():
	}
}

func (st *wsStream) Next(ctx context.Context) (model.Quote, error) {
	select {
	case q, ok := <-st.quotes:
		if !ok {
			return model.Quote{Terminal: true}, nil
		}
		return q, nil
	case <-ctx.Done():
		return model.Quote{}, ctx.Err()
	}
}

func (st *wsStream) Close() error {
	st.cancel()
	return nil
}

func deref(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
