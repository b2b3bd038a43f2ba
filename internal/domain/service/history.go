package service

import (
	"math"
	"sync"

	"triarb/internal/domain/model"
)

// MarketHistory 滚动行情历史：每个 instrument 保留最近 N 个价格/成交量样本
// 快照观察与 ws tick 都会喂入；读取方（置信打分）只读。
type MarketHistory struct {
	mu      sync.Mutex
	window  int
	prices  map[string][]float64
	volumes map[string][]float64
}

const defaultHistoryWindow = 100

func NewMarketHistory(window int) *MarketHistory {
	if window <= 0 {
		window = defaultHistoryWindow
	}
	return &MarketHistory{
		window:  window,
		prices:  make(map[string][]float64),
		volumes: make(map[string][]float64),
	}
}

// Observe records one sample per instrument from a snapshot.
func (h *MarketHistory) Observe(snap *model.MarketSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, q := range snap.Quotes {
		if q.Last <= 0 {
			continue
		}
		h.prices[key] = appendBounded(h.prices[key], q.Last, h.window)
		h.volumes[key] = appendBounded(h.volumes[key], q.Volume24h, h.window)
	}
}

// ObserveTick records a single price observed out of band (ws feed).
func (h *MarketHistory) ObserveTick(instrumentKey string, price float64) {
	if price <= 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.prices[instrumentKey] = appendBounded(h.prices[instrumentKey], price, h.window)
}

// Momentum returns the recent-mean-vs-prior-mean trend of the last 2n samples
// as a percentage. Returns 0 when the history is too short.
func (h *MarketHistory) Momentum(instrumentKey string, n int) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	ps := h.prices[instrumentKey]
	if n <= 0 || len(ps) < 2*n {
		return 0
	}
	recent := mean(ps[len(ps)-n:])
	prior := mean(ps[len(ps)-2*n : len(ps)-n])
	if prior <= 0 {
		return 0
	}
	return (recent - prior) / prior * 100
}

// Volatility returns the standard deviation of the last n samples, or 0 when
// fewer than 5 samples exist.
func (h *MarketHistory) Volatility(instrumentKey string, n int) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	ps := h.prices[instrumentKey]
	if n > 0 && len(ps) > n {
		ps = ps[len(ps)-n:]
	}
	if len(ps) < 5 {
		return 0
	}
	m := mean(ps)
	var ss float64
	for _, p := range ps {
		d := p - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(ps)))
}

// LastVolume returns the most recent 24h volume sample for an instrument.
func (h *MarketHistory) LastVolume(instrumentKey string) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	vs := h.volumes[instrumentKey]
	if len(vs) == 0 {
		return 0
	}
	return vs[len(vs)-1]
}

func appendBounded(s []float64, v float64, window int) []float64 {
	s = append(s, v)
	if len(s) > window {
		s = s[len(s)-window:]
	}
	return s
}

func mean(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s {
		sum += v
	}
	return sum / float64(len(s))
}
