package service

import (
	"time"

	"triarb/internal/domain/model"
)

// Confidence output is always clamped inside (0, 1): never exactly 0 or 1.
const (
	ConfidenceFloor   = 0.10
	ConfidenceCeiling = 0.95
)

// ConfidenceConfig 打分参数
type ConfidenceConfig struct {
	DecayFactor      float64 // geometric decay for historical outcomes
	VolumeCeiling    float64 // notional volume at which the volume score saturates
	MomentumWindow   int     // samples per half-window of the trend
	VolatilityWindow int     // samples for the stddev window
	OutcomeWindow    int     // bounded ring of recorded trade outcomes
}

func (c ConfidenceConfig) withDefaults() ConfidenceConfig {
	if c.DecayFactor <= 0 || c.DecayFactor >= 1 {
		c.DecayFactor = 0.95
	}
	if c.VolumeCeiling <= 0 {
		c.VolumeCeiling = 1000
	}
	if c.MomentumWindow <= 0 {
		c.MomentumWindow = 5
	}
	if c.VolatilityWindow <= 0 {
		c.VolatilityWindow = 15
	}
	if c.OutcomeWindow <= 0 {
		c.OutcomeWindow = 100
	}
	return c
}

// ConfidenceScorer 置信引擎：利润、流动性、动量、波动率四个子分相加归一，
// 再叠加衰减加权的历史胜率，最后乘以盘口失衡惩罚。
// 贝叶斯先验只通过 RecordOutcome 变更。
type ConfidenceScorer struct {
	cfg      ConfidenceConfig
	alpha    float64 // prior successes
	beta     float64 // prior failures
	outcomes []model.TradeOutcome
}

func NewConfidenceScorer(cfg ConfidenceConfig) *ConfidenceScorer {
	return &ConfidenceScorer{
		cfg:   cfg.withDefaults(),
		alpha: 1,
		beta:  1,
	}
}

// Score rates an opportunity against rolling history and the current order
// book. Output is always within [ConfidenceFloor, ConfidenceCeiling], for any
// finite input including an empty history.
func (s *ConfidenceScorer) Score(op *model.ArbitrageOpportunity, hist *MarketHistory, snap *model.MarketSnapshot) float64 {
	lead := ""
	if len(op.Path) > 0 {
		lead = op.Path[0].Instrument.Key()
	}

	// Profit magnitude, diminishing past 4%.
	profitScore := capAt(op.Profit*100*10, 40)

	// Liquidity: 24h notional volume of the lead instrument, saturating at
	// the configured ceiling.
	volumeScore := capAt(hist.LastVolume(lead)/s.cfg.VolumeCeiling*20, 20)

	// Momentum from the rolling trend of the lead instrument.
	momentumScore := capAt(abs(hist.Momentum(lead, s.cfg.MomentumWindow))*2, 20)

	// Volatility penalty.
	volPenalty := capAt(hist.Volatility(lead, s.cfg.VolatilityWindow)*2, 15)

	// Decay-weighted historical base rate: recent outcomes weigh more.
	bayesScore := s.baseRate() * 20

	score := (profitScore + volumeScore + momentumScore + bayesScore - volPenalty) / 100

	// Final multiplicative penalty from order-book depth imbalance across the
	// path; the thinnest-sided hop dominates.
	score *= 1 - 0.3*pathImbalance(op, snap)

	return clampConfidence(score)
}

// RecordOutcome is the only mutator of the Bayesian priors and the bounded
// outcome ring.
func (s *ConfidenceScorer) RecordOutcome(success bool, profit float64) {
	if success {
		s.alpha++
	} else {
		s.beta++
	}
	s.outcomes = append(s.outcomes, model.TradeOutcome{
		Success: success,
		Profit:  profit,
		Ts:      time.Now(),
	})
	if len(s.outcomes) > s.cfg.OutcomeWindow {
		s.outcomes = s.outcomes[len(s.outcomes)-s.cfg.OutcomeWindow:]
	}
}

// State exports priors and the outcome ring for checkpointing.
func (s *ConfidenceScorer) State() model.ConfidenceState {
	out := make([]model.TradeOutcome, len(s.outcomes))
	copy(out, s.outcomes)
	return model.ConfidenceState{Alpha: s.alpha, Beta: s.beta, Outcomes: out}
}

// Restore resumes priors and decay history from a checkpoint.
func (s *ConfidenceScorer) Restore(st model.ConfidenceState) {
	if st.Alpha >= 1 {
		s.alpha = st.Alpha
	}
	if st.Beta >= 1 {
		s.beta = st.Beta
	}
	s.outcomes = append(s.outcomes[:0], st.Outcomes...)
	if len(s.outcomes) > s.cfg.OutcomeWindow {
		s.outcomes = s.outcomes[len(s.outcomes)-s.cfg.OutcomeWindow:]
	}
}

// baseRate is the geometrically decay-weighted success rate over the recorded
// outcomes; 0.5 when no history exists.
func (s *ConfidenceScorer) baseRate() float64 {
	n := len(s.outcomes)
	if n == 0 {
		return 0.5
	}
	var weighted, total float64
	w := 1.0
	for i := n - 1; i >= 0; i-- { // newest outcome carries weight 1
		if s.outcomes[i].Success {
			weighted += w
		}
		total += w
		w *= s.cfg.DecayFactor
	}
	if total <= 0 {
		return 0.5
	}
	return weighted / total
}

// pathImbalance returns the worst |bidDepth-askDepth|/total across the path.
func pathImbalance(op *model.ArbitrageOpportunity, snap *model.MarketSnapshot) float64 {
	var worst float64
	for _, hop := range op.Path {
		q, ok := snap.Quote(hop.Instrument)
		if !ok {
			continue
		}
		total := q.BidDepth + q.AskDepth
		if total <= 0 {
			continue
		}
		if imb := abs(q.BidDepth-q.AskDepth) / total; imb > worst {
			worst = imb
		}
	}
	return worst
}

func clampConfidence(v float64) float64 {
	if v != v { // NaN
		return ConfidenceFloor
	}
	if v < ConfidenceFloor {
		return ConfidenceFloor
	}
	if v > ConfidenceCeiling {
		return ConfidenceCeiling
	}
	return v
}

func capAt(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < 0 {
		return 0
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
