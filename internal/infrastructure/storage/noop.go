package storage

import (
	"context"

	"triarb/internal/application/port"
	"triarb/internal/domain/model"
)

// Noop discards everything. Used when storage.driver is "none" and in
// tests where persistence is irrelevant.
type Noop struct{}

var _ port.Repository = (*Noop)(nil)

func NewNoop() *Noop { return &Noop{} }

func (*Noop) SaveOpportunity(ctx context.Context, op *model.ScoredOpportunity) error { return nil }

func (*Noop) SaveTradeResult(ctx context.Context, res *model.TradeResult) error { return nil }

func (*Noop) ListRecentTrades(ctx context.Context, limit int) ([]*model.TradeResult, error) {
	return nil, nil
}

func (*Noop) SaveRiskState(ctx context.Context, st model.RiskState) error { return nil }

func (*Noop) LoadRiskState(ctx context.Context) (model.RiskState, bool, error) {
	return model.RiskState{}, false, nil
}

func (*Noop) SaveConfidenceState(ctx context.Context, st model.ConfidenceState) error { return nil }

func (*Noop) LoadConfidenceState(ctx context.Context) (model.ConfidenceState, bool, error) {
	return model.ConfidenceState{}, false, nil
}

func (*Noop) Close() error { return nil }
