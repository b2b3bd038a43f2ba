package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"triarb/internal/domain/model"
)

// OrderPlacer is the slice of the exchange boundary the executor needs.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req model.OrderRequest) (string, error)
}

// execState 单次执行的状态机
type execState int

const (
	execPending execState = iota
	execLegPlaced
	execPartial
	execFailed
	execSettled
)

func (s execState) String() string {
	switch s {
	case execPending:
		return "pending"
	case execLegPlaced:
		return "leg_placed"
	case execPartial:
		return "partial"
	case execFailed:
		return "failed"
	case execSettled:
		return "settled"
	}
	return "unknown"
}

// TradeExecutor 按腿顺序执行套利环路。
// 每腿恰好一次下单请求，不做内部重试；重试是上层的策略决定。
// 第一腿失败即整单失败；后续腿失败报告为部分成交，留待外部对账。
type TradeExecutor struct {
	exchange OrderPlacer
	scorer   *ConfidenceScorer
	risk     *RiskManager
	feeRate  float64
}

func NewTradeExecutor(exchange OrderPlacer, scorer *ConfidenceScorer, risk *RiskManager, feeRate float64) *TradeExecutor {
	return &TradeExecutor{
		exchange: exchange,
		scorer:   scorer,
		risk:     risk,
		feeRate:  feeRate,
	}
}

// Execute runs the sized opportunity through its legs. A started execution
// always runs to a terminal state: cancellation of ctx does not abandon an
// in-flight sequence, so no order is ever left in an unknown state.
func (e *TradeExecutor) Execute(ctx context.Context, op *model.ScoredOpportunity, amount float64) *model.TradeResult {
	ctx = context.WithoutCancel(ctx)

	res := &model.TradeResult{
		ID:            uuid.NewString(),
		OpportunityID: op.ID,
		Amount:        amount,
		Ts:            time.Now(),
	}

	state := execPending
	running := amount // value carried through the cycle, in the hop's From currency

	for i, hop := range op.Path {
		req, next := legOrder(hop, running, e.feeRate)

		orderID, err := e.exchange.PlaceOrder(ctx, req)
		state = execLegPlaced
		if err != nil {
			if i == 0 {
				state = execFailed
			} else {
				state = execPartial
				res.Partial = true
			}
			res.FailReason = err.Error()
			log.Warn().
				Str("trade", res.ID).
				Str("instrument", hop.Instrument.Key()).
				Int("leg", i+1).
				Str("state", state.String()).
				Err(err).
				Msg("leg placement failed")
			e.settle(res, false, 0)
			return res
		}

		res.LegOrderIDs = append(res.LegOrderIDs, orderID)
		running = next
		log.Debug().
			Str("trade", res.ID).
			Str("instrument", hop.Instrument.Key()).
			Str("side", hop.Side).
			Int("leg", i+1).
			Str("order", orderID).
			Msg("leg placed")
	}

	state = execSettled
	res.Success = true
	res.Profit = amount * op.Profit
	log.Info().
		Str("trade", res.ID).
		Str("state", state.String()).
		Float64("amount", amount).
		Float64("profit", res.Profit).
		Msg("execution settled")
	e.settle(res, true, res.Profit)
	return res
}

// settle reports the terminal outcome to the confidence engine and the risk
// counters. This is the only place either gets mutated by an execution.
func (e *TradeExecutor) settle(res *model.TradeResult, success bool, profit float64) {
	e.scorer.RecordOutcome(success, profit)
	e.risk.Apply(res)
}

// legOrder builds the order for one hop and the value carried into the next
// hop. Sell hops spend the running amount as base volume at the bid; buy hops
// convert the running quote amount into base volume at the ask.
func legOrder(hop model.Hop, running, feeRate float64) (model.OrderRequest, float64) {
	req := model.OrderRequest{
		Instrument: hop.Instrument,
		Side:       hop.Side,
		Type:       model.OrderTypeLimit,
		Price:      hop.Price,
	}
	fee := 1 - feeRate
	if hop.Side == model.SideSell {
		req.Volume = running
		return req, running * hop.Price * fee
	}
	req.Volume = running / hop.Price * fee
	return req, req.Volume
}
