package model

import "math"

// Quote is a single update pulled from the tick feed.
// Last, Bid and Ask are NaN when the feed had no value this cycle;
// a NaN Last must not mutate any live row.
type Quote struct {
	Key  string  `json:"key"` // correlation key: figi or ticker
	Last float64 `json:"last"`
	Bid  float64 `json:"bid"`
	Ask  float64 `json:"ask"`

	// Terminal signals the end (or failure) of a subscription attempt.
	// A terminal quote carries no price data.
	Terminal bool `json:"-"`
}

// HasLast reports whether the quote carries a tradeable last price.
func (q Quote) HasLast() bool {
	return !math.IsNaN(q.Last)
}
