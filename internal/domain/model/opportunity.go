package model

import (
	"strings"
	"time"
)

// Hop 套利环路中的一跳：在 Instrument 上把 From 换成 To
type Hop struct {
	From       string     `json:"from"`
	To         string     `json:"to"`
	Instrument Instrument `json:"instrument"`
	Side       string     `json:"side"`  // sell: base->quote, buy: quote->base
	Price      float64    `json:"price"` // bid for sell hops, ask for buy hops
}

// ArbitrageOpportunity 检测到的套利环路。创建后不可变。
// Path 首尾货币相同（闭合环路）。
type ArbitrageOpportunity struct {
	ID            string    `json:"id"`
	Path          []Hop     `json:"path"`
	Profit        float64   `json:"profit"` // implied profit fraction, fee-adjusted
	StartCurrency string    `json:"start_currency"`
	Liquidity     float64   `json:"liquidity"` // quote volume available on the thinnest hop
	DetectedAt    time.Time `json:"detected_at"`
}

// Signature returns a path identity independent of which cycle node detection
// happened to start from: the hop sequence rotated so the lexicographically
// smallest currency comes first.
func (o *ArbitrageOpportunity) Signature() string {
	n := len(o.Path)
	if n == 0 {
		return ""
	}
	best := 0
	for i := 1; i < n; i++ {
		if o.Path[i].From < o.Path[best].From {
			best = i
		}
	}
	var sb strings.Builder
	for i := 0; i < n; i++ {
		h := o.Path[(best+i)%n]
		sb.WriteString(h.From)
		sb.WriteByte('>')
	}
	sb.WriteString(o.Path[best].From)
	return sb.String()
}

// ScoredOpportunity wraps an opportunity with its confidence in [0.1, 0.95].
type ScoredOpportunity struct {
	ArbitrageOpportunity
	Confidence float64 `json:"confidence"`
}
