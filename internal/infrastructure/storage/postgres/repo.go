package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"triarb/internal/application/port"
	"triarb/internal/domain/model"
)

type Repo struct {
	db *sql.DB
}

var _ port.Repository = (*Repo)(nil)

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS opportunities (
  id TEXT PRIMARY KEY,
  signature TEXT NOT NULL,
  start_currency TEXT NOT NULL,
  profit DOUBLE PRECISION NOT NULL,
  confidence DOUBLE PRECISION NOT NULL,
  liquidity DOUBLE PRECISION NOT NULL,
  path TEXT NOT NULL,
  detected_at BIGINT NOT NULL,
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_opps_sig ON opportunities(signature);
CREATE INDEX IF NOT EXISTS idx_opps_ts ON opportunities(detected_at);

CREATE TABLE IF NOT EXISTS trades (
  id TEXT PRIMARY KEY,
  opportunity_id TEXT NOT NULL,
  success BOOLEAN NOT NULL,
  partial BOOLEAN NOT NULL,
  leg_order_ids TEXT NOT NULL,
  amount DOUBLE PRECISION NOT NULL,
  profit DOUBLE PRECISION NOT NULL,
  fail_reason TEXT NOT NULL DEFAULT '',
  ts_ms BIGINT NOT NULL,
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(ts_ms);

CREATE TABLE IF NOT EXISTS checkpoints (
  name TEXT PRIMARY KEY,
  payload TEXT NOT NULL,
  updated_at BIGINT NOT NULL
);
`)
	return err
}

func (r *Repo) SaveOpportunity(ctx context.Context, op *model.ScoredOpportunity) error {
	path, err := json.Marshal(op.Path)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO opportunities(id, signature, start_currency, profit, confidence, liquidity, path, detected_at, created_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT(id) DO NOTHING
	`, op.ID, op.Signature(), op.StartCurrency, op.Profit, op.Confidence, op.Liquidity,
		string(path), op.DetectedAt.UnixMilli(), time.Now().UnixMilli())
	return err
}

func (r *Repo) SaveTradeResult(ctx context.Context, res *model.TradeResult) error {
	legIDs, err := json.Marshal(res.LegOrderIDs)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO trades(id, opportunity_id, success, partial, leg_order_ids, amount, profit, fail_reason, ts_ms, created_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, res.ID, res.OpportunityID, res.Success, res.Partial, string(legIDs),
		res.Amount, res.Profit, res.FailReason, res.Ts.UnixMilli(), time.Now().UnixMilli())
	return err
}

func (r *Repo) ListRecentTrades(ctx context.Context, limit int) ([]*model.TradeResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, opportunity_id, success, partial, leg_order_ids, amount, profit, fail_reason, ts_ms
		FROM trades ORDER BY ts_ms DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*model.TradeResult
	for rows.Next() {
		var res model.TradeResult
		var legIDs string
		var tsMs int64
		if err := rows.Scan(&res.ID, &res.OpportunityID, &res.Success, &res.Partial, &legIDs,
			&res.Amount, &res.Profit, &res.FailReason, &tsMs); err != nil {
			return nil, err
		}
		res.Ts = time.UnixMilli(tsMs)
		if err := json.Unmarshal([]byte(legIDs), &res.LegOrderIDs); err != nil {
			return nil, err
		}
		trades = append(trades, &res)
	}
	return trades, rows.Err()
}

const (
	checkpointRisk       = "risk_state"
	checkpointConfidence = "confidence_state"
)

func (r *Repo) SaveRiskState(ctx context.Context, st model.RiskState) error {
	return r.saveCheckpoint(ctx, checkpointRisk, st)
}

func (r *Repo) LoadRiskState(ctx context.Context) (model.RiskState, bool, error) {
	var st model.RiskState
	ok, err := r.loadCheckpoint(ctx, checkpointRisk, &st)
	return st, ok, err
}

func (r *Repo) SaveConfidenceState(ctx context.Context, st model.ConfidenceState) error {
	return r.saveCheckpoint(ctx, checkpointConfidence, st)
}

func (r *Repo) LoadConfidenceState(ctx context.Context) (model.ConfidenceState, bool, error) {
	var st model.ConfidenceState
	ok, err := r.loadCheckpoint(ctx, checkpointConfidence, &st)
	return st, ok, err
}

func (r *Repo) saveCheckpoint(ctx context.Context, name string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO checkpoints(name, payload, updated_at) VALUES($1, $2, $3)
		ON CONFLICT(name) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at
	`, name, string(payload), time.Now().UnixMilli())
	return err
}

func (r *Repo) loadCheckpoint(ctx context.Context, name string, v any) (bool, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM checkpoints WHERE name=$1`, name).Scan(&payload)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return false, err
	}
	return true, nil
}
