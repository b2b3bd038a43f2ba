package redis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"triarb/internal/application/port"
	"triarb/internal/domain/model"
)

// Repo publishes opportunities and trade results to Redis streams for
// external consumers, and keeps checkpoints in plain keys. Trade listing
// reads back from the trade stream.
type Repo struct {
	rdb         *redis.Client
	prefix      string
	ttl         time.Duration
	oppStream   string
	tradeStream string
	tradeChan   string
}

var _ port.Repository = (*Repo)(nil)

func New(rdb *redis.Client, prefix string, ttl time.Duration, oppStream, tradeStream string) *Repo {
	if strings.TrimSpace(prefix) == "" {
		prefix = "triarb"
	}
	if strings.TrimSpace(oppStream) == "" {
		oppStream = prefix + ":opportunities"
	}
	if strings.TrimSpace(tradeStream) == "" {
		tradeStream = prefix + ":trades"
	}
	return &Repo{
		rdb:         rdb,
		prefix:      prefix,
		ttl:         ttl,
		oppStream:   oppStream,
		tradeStream: tradeStream,
		tradeChan:   tradeStream + ":pub",
	}
}

func (r *Repo) Close() error { return r.rdb.Close() }

func (r *Repo) SaveOpportunity(ctx context.Context, op *model.ScoredOpportunity) error {
	payload, err := json.Marshal(op)
	if err != nil {
		return err
	}
	// Stream: XADD <stream> * id signature profit confidence payload
	_, err = r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.oppStream,
		MaxLen: 10000,
		Approx: true,
		Values: map[string]any{
			"id":         op.ID,
			"signature":  op.Signature(),
			"profit":     op.Profit,
			"confidence": op.Confidence,
			"payload":    string(payload),
		},
	}).Result()
	return err
}

func (r *Repo) SaveTradeResult(ctx context.Context, res *model.TradeResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	_, err = r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.tradeStream,
		MaxLen: 10000,
		Approx: true,
		Values: map[string]any{
			"id":      res.ID,
			"success": res.Success,
			"profit":  res.Profit,
			"payload": string(payload),
		},
	}).Result()
	if err != nil {
		return err
	}
	// PubSub: PUBLISH <channel> json
	return r.rdb.Publish(ctx, r.tradeChan, string(payload)).Err()
}

func (r *Repo) ListRecentTrades(ctx context.Context, limit int) ([]*model.TradeResult, error) {
	if limit <= 0 {
		limit = 50
	}
	msgs, err := r.rdb.XRevRangeN(ctx, r.tradeStream, "+", "-", int64(limit)).Result()
	if err != nil {
		return nil, err
	}
	trades := make([]*model.TradeResult, 0, len(msgs))
	for _, msg := range msgs {
		payload, ok := msg.Values["payload"].(string)
		if !ok {
			continue
		}
		var res model.TradeResult
		if err := json.Unmarshal([]byte(payload), &res); err != nil {
			continue
		}
		trades = append(trades, &res)
	}
	return trades, nil
}

func (r *Repo) SaveRiskState(ctx context.Context, st model.RiskState) error {
	return r.saveCheckpoint(ctx, r.prefix+":risk_state", st)
}

func (r *Repo) LoadRiskState(ctx context.Context) (model.RiskState, bool, error) {
	var st model.RiskState
	ok, err := r.loadCheckpoint(ctx, r.prefix+":risk_state", &st)
	return st, ok, err
}

func (r *Repo) SaveConfidenceState(ctx context.Context, st model.ConfidenceState) error {
	return r.saveCheckpoint(ctx, r.prefix+":confidence_state", st)
}

func (r *Repo) LoadConfidenceState(ctx context.Context) (model.ConfidenceState, bool, error) {
	var st model.ConfidenceState
	ok, err := r.loadCheckpoint(ctx, r.prefix+":confidence_state", &st)
	return st, ok, err
}

func (r *Repo) saveCheckpoint(ctx context.Context, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, key, string(payload), r.ttl).Err()
}

func (r *Repo) loadCheckpoint(ctx context.Context, key string, v any) (bool, error) {
	payload, err := r.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
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
