package model

import (
	"fmt"
	"strings"
	"time"
)

// Instrument 交易对，base/quote 形式（如 BTC/USD）
type Instrument struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

// ParseInstrument parses "BTC/USD" style keys. Case-normalized to upper.
func ParseInstrument(s string) (Instrument, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return Instrument{}, fmt.Errorf("invalid instrument %q: want BASE/QUOTE", s)
	}
	base := strings.ToUpper(strings.TrimSpace(parts[0]))
	quote := strings.ToUpper(strings.TrimSpace(parts[1]))
	if base == "" || quote == "" || base == quote {
		return Instrument{}, fmt.Errorf("invalid instrument %q", s)
	}
	return Instrument{Base: base, Quote: quote}, nil
}

func (i Instrument) Key() string { return i.Base + "/" + i.Quote }

// Quote 单个交易对的行情快照
type Quote struct {
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Last      float64 `json:"last"`
	Volume24h float64 `json:"volume24h"`
	BidDepth  float64 `json:"bid_depth"` // top-N 买盘深度
	AskDepth  float64 `json:"ask_depth"` // top-N 卖盘深度
}

// Valid reports whether the quote carries usable prices.
func (q Quote) Valid() bool {
	return q.Bid > 0 && q.Ask > 0
}

// MarketSnapshot is the per-cycle market state: one Quote per instrument key.
// Produced once per cycle and read-only afterward; a new cycle gets a new
// snapshot, the old one is never patched in place.
type MarketSnapshot struct {
	Quotes map[string]Quote `json:"quotes"`
	Ts     time.Time        `json:"ts"`
}

// Quote returns the quote for an instrument, if present and valid.
func (s *MarketSnapshot) Quote(inst Instrument) (Quote, bool) {
	q, ok := s.Quotes[inst.Key()]
	if !ok || !q.Valid() {
		return Quote{}, false
	}
	return q, true
}

// Order sides and types at the exchange boundary.
const (
	SideBuy  = "buy"
	SideSell = "sell"

	OrderTypeLimit  = "limit"
	OrderTypeMarket = "market"
)

// OrderRequest 下单请求
type OrderRequest struct {
	Instrument Instrument `json:"instrument"`
	Side       string     `json:"side"`       // buy / sell
	Type       string     `json:"type"`       // limit / market
	Volume     float64    `json:"volume"`     // base 数量
	Price      float64    `json:"price"`      // limit 价格，market 时为 0
}
