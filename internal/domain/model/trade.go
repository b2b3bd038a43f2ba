package model

import "time"

// TradeResult 一次执行的最终结果
type TradeResult struct {
	ID            string    `json:"id"`
	OpportunityID string    `json:"opportunity_id"`
	Success       bool      `json:"success"`
	Partial       bool      `json:"partial"` // 第一腿成交但后续腿失败，需要外部对账
	LegOrderIDs   []string  `json:"leg_order_ids"`
	Amount        float64   `json:"amount"` // sized amount in start currency
	Profit        float64   `json:"profit"` // realized or estimated
	FailReason    string    `json:"fail_reason,omitempty"`
	Ts            time.Time `json:"ts"`
}

// RiskState 以日为界的风控计数器，仅由 RiskManager 持有和变更
type RiskState struct {
	TradesToday int       `json:"trades_today"`
	PnLToday    float64   `json:"pnl_today"`
	LastReset   time.Time `json:"last_reset"` // date of the last counter reset
}

// TradeOutcome is one entry of the bounded outcome ring used for the
// decay-weighted Bayesian base rate.
type TradeOutcome struct {
	Success bool      `json:"success"`
	Profit  float64   `json:"profit"`
	Ts      time.Time `json:"ts"`
}

// ConfidenceState 置信引擎的可持久化状态：贝叶斯先验与结果环
type ConfidenceState struct {
	Alpha    float64        `json:"alpha"` // prior successes
	Beta     float64        `json:"beta"`  // prior failures
	Outcomes []TradeOutcome `json:"outcomes"`
}
