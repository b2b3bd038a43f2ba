package port

import "context"

// OpportunitySummary 提供给外部顾问的机会摘要
type OpportunitySummary struct {
	Path       []string `json:"path"` // currency sequence, closed
	Profit     float64  `json:"profit"`
	Confidence float64  `json:"confidence"` // local score
}

// Advice 顾问意见：仅作为一个额外的置信输入，本地打分始终有效
type Advice struct {
	Action     string  `json:"action"` // "trade" or "skip"
	Confidence float64 `json:"confidence"`
}

// Advisor is an optional external decision side-channel. The trading loop
// must work correctly with no Advisor configured.
type Advisor interface {
	Advise(ctx context.Context, s OpportunitySummary) (Advice, error)
}
