package service

import (
	"fmt"
	"math"
	"time"

	"triarb/internal/domain/model"
)

// RiskConfig 风控限额
type RiskConfig struct {
	MaxDailyTrades     int
	MaxDailyLoss       float64 // positive number of currency units
	MinLiquidity       float64
	MinConfidence      float64
	MaxPositionSize    float64
	MaxBalanceFraction float64 // e.g. 0.1 = at most 10% of balance per trade
}

// lotStep is the smallest tradable unit; position sizes are truncated to it,
// never rounded up.
const lotStep = 1e-8

// Decision 风控裁决：要么批准并给出仓位，要么拒绝并给出原因
type Decision struct {
	Approved bool
	Amount   float64 // sized amount in start currency, set when approved
	Reason   string  // set when denied
}

func approve(amount float64) Decision { return Decision{Approved: true, Amount: amount} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// RiskManager 持有当日风控状态并裁决每笔交易。
// 状态只在 Apply（执行结果回报）时变更，批准本身不改变计数器。
type RiskManager struct {
	cfg   RiskConfig
	state model.RiskState

	now func() time.Time // injectable clock for day-boundary tests
}

func NewRiskManager(cfg RiskConfig) *RiskManager {
	rm := &RiskManager{cfg: cfg, now: time.Now}
	rm.state.LastReset = dateOf(rm.now())
	return rm
}

// Evaluate checks the opportunity against the hard limits in fixed order;
// the first failing rule wins. On approval the position is sized by balance,
// position cap and opportunity liquidity, scaled by confidence.
func (rm *RiskManager) Evaluate(op *model.ScoredOpportunity, availableBalance float64) Decision {
	rm.resetIfNewDay()

	if rm.state.TradesToday >= rm.cfg.MaxDailyTrades {
		return deny("daily trade limit")
	}
	if rm.state.PnLToday <= -rm.cfg.MaxDailyLoss {
		return deny("daily loss limit")
	}
	if op.Liquidity < rm.cfg.MinLiquidity {
		return deny(fmt.Sprintf("insufficient liquidity: %.2f", op.Liquidity))
	}
	if op.Confidence < rm.cfg.MinConfidence {
		return deny(fmt.Sprintf("low confidence: %.3f", op.Confidence))
	}

	size := math.Min(availableBalance*rm.cfg.MaxBalanceFraction, rm.cfg.MaxPositionSize)
	size = math.Min(size, op.Liquidity)
	size *= op.Confidence
	size = truncateToLot(size)

	if size <= 0 {
		return deny("zero size")
	}
	return approve(size)
}

// Apply folds a reported execution outcome into the day counters. Rejected
// orders count against the daily trade budget as well.
func (rm *RiskManager) Apply(res *model.TradeResult) {
	rm.resetIfNewDay()
	rm.state.TradesToday++
	rm.state.PnLToday += res.Profit
}

// State returns a copy of the current counters.
func (rm *RiskManager) State() model.RiskState {
	rm.resetIfNewDay()
	return rm.state
}

// Restore resumes counters from a checkpoint; a checkpoint from a previous
// calendar day is discarded so a restart never carries stale counters over.
func (rm *RiskManager) Restore(st model.RiskState) {
	if dateOf(st.LastReset).Equal(dateOf(rm.now())) {
		rm.state = st
	}
}

// resetIfNewDay resets the counters exactly once per day-boundary crossing.
// Pure function of the wall-clock date.
func (rm *RiskManager) resetIfNewDay() {
	today := dateOf(rm.now())
	if today.After(dateOf(rm.state.LastReset)) {
		rm.state = model.RiskState{LastReset: today}
	}
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func truncateToLot(v float64) float64 {
	return math.Floor(v/lotStep) * lotStep
}
