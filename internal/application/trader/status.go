package trader

import (
	"sync"
	"time"
)

// Loop states. Interrupted and ShuttingDown are terminal.
const (
	StateInitializing = "initializing"
	StateActive       = "active"
	StateInterrupted  = "interrupted"
	StateShuttingDown = "shutting_down"
)

// Status 控制面的只读视图
type Status struct {
	State       string    `json:"state"`
	TradeCount  int       `json:"trade_count"`
	RealizedPnL float64   `json:"realized_pnl"`
	LastTradeAt time.Time `json:"last_trade_at"`
}

// tracker owns the mutable loop counters; Status() may be called from other
// goroutines, the loop itself is the only writer.
type tracker struct {
	mu          sync.Mutex
	state       string
	tradeCount  int
	realizedPnL float64
	lastTradeAt time.Time
}

func newTracker() *tracker {
	return &tracker{
		state:       StateInitializing,
		lastTradeAt: time.Now(), // idle is measured from loop start
	}
}

func (t *tracker) setState(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
}

func (t *tracker) markTrade(ts time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tradeCount++
	t.lastTradeAt = ts
}

func (t *tracker) addPnL(p float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.realizedPnL += p
}

func (t *tracker) lastTrade() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastTradeAt
}

func (t *tracker) status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{
		State:       t.state,
		TradeCount:  t.tradeCount,
		RealizedPnL: t.realizedPnL,
		LastTradeAt: t.lastTradeAt,
	}
}
