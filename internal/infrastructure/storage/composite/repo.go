package composite

import (
	"context"

	"triarb/internal/application/port"
	"triarb/internal/domain/model"
)

// Repo fans writes out to every backend and reads from the first one.
// The first repo is the primary store; the rest are best-effort mirrors.
type Repo struct {
	repos []port.Repository
}

var _ port.Repository = (*Repo)(nil)

func New(repos ...port.Repository) *Repo {
	// nil repos are allowed; filter in constructor for safety
	out := make([]port.Repository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

func (r *Repo) SaveOpportunity(ctx context.Context, op *model.ScoredOpportunity) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.SaveOpportunity(ctx, op); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) SaveTradeResult(ctx context.Context, res *model.TradeResult) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.SaveTradeResult(ctx, res); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) ListRecentTrades(ctx context.Context, limit int) ([]*model.TradeResult, error) {
	if len(r.repos) == 0 {
		return nil, nil
	}
	return r.repos[0].ListRecentTrades(ctx, limit)
}

func (r *Repo) SaveRiskState(ctx context.Context, st model.RiskState) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.SaveRiskState(ctx, st); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) LoadRiskState(ctx context.Context) (model.RiskState, bool, error) {
	if len(r.repos) == 0 {
		return model.RiskState{}, false, nil
	}
	return r.repos[0].LoadRiskState(ctx)
}

func (r *Repo) SaveConfidenceState(ctx context.Context, st model.ConfidenceState) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.SaveConfidenceState(ctx, st); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) LoadConfidenceState(ctx context.Context) (model.ConfidenceState, bool, error) {
	if len(r.repos) == 0 {
		return model.ConfidenceState{}, false, nil
	}
	return r.repos[0].LoadConfidenceState(ctx)
}

func (r *Repo) Close() error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
