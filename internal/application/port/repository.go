package port

import (
	"context"

	"triarb/internal/domain/model"
)

// Repository 持久化端口：机会与成交记录、以及跨进程续跑所需的检查点
// 实现可以是 sqlite（默认）、postgres、redis 或它们的组合。
type Repository interface {
	// Trade and opportunity records
	SaveOpportunity(ctx context.Context, op *model.ScoredOpportunity) error
	SaveTradeResult(ctx context.Context, res *model.TradeResult) error
	ListRecentTrades(ctx context.Context, limit int) ([]*model.TradeResult, error)

	// Checkpoints: risk counters resume within the current calendar day,
	// confidence priors and outcome ring resume rather than reset.
	SaveRiskState(ctx context.Context, st model.RiskState) error
	LoadRiskState(ctx context.Context) (model.RiskState, bool, error)
	SaveConfidenceState(ctx context.Context, st model.ConfidenceState) error
	LoadConfidenceState(ctx context.Context) (model.ConfidenceState, bool, error)

	Close() error
}
