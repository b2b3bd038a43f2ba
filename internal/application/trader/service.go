package trader

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"triarb/internal/application/port"
	"triarb/internal/domain/model"
	"triarb/internal/domain/service"
)

// Deps 交易循环的全部依赖
type Deps struct {
	Exchange port.Exchange
	Repo     port.Repository
	Feeds    []port.PriceFeed // optional ws ticker feeds
	Advisor  port.Advisor     // optional decision side-channel

	Detector *service.CycleDetector
	Scorer   *service.ConfidenceScorer
	Risk     *service.RiskManager
	Executor *service.TradeExecutor
	History  *service.MarketHistory
	Guard    *service.ExecutionGuard // optional per-path cooldown

	Instruments     []model.Instrument
	FeeRate         float64
	BalanceCurrency string

	ScanInterval time.Duration
	MaxIdle      time.Duration
}

// Service 调度器：单循环驱动 快照→检测→打分→风控→执行，
// 并用空闲看门狗保证不会无声空转。
type Service struct {
	deps Deps
	st   *tracker

	statusEvery time.Duration
}

func NewService(deps Deps) *Service {
	return &Service{
		deps:        deps,
		st:          newTracker(),
		statusEvery: time.Minute,
	}
}

// Status returns the current control-surface view of the loop.
func (s *Service) Status() Status { return s.st.status() }

// Run drives trading cycles until the context is cancelled (ShuttingDown) or
// the idle watchdog fires (Interrupted). Exactly one cycle is in flight at a
// time; the stop signal is honored between cycle phases, never mid-leg.
func (s *Service) Run(ctx context.Context) error {
	s.restore(ctx)
	s.startFeeds(ctx)
	s.st.setState(StateActive)
	log.Info().
		Int("instruments", len(s.deps.Instruments)).
		Dur("scan_interval", s.deps.ScanInterval).
		Dur("max_idle", s.deps.MaxIdle).
		Msg("trading loop started")

	lastStatus := time.Now()
	for {
		select {
		case <-ctx.Done():
			s.st.setState(StateShuttingDown)
			log.Info().Msg("stop requested, trading loop ended")
			return ctx.Err()
		default:
		}

		cycleStart := time.Now()
		executed, reason := s.cycle(ctx)
		if executed {
			s.st.markTrade(cycleStart)
		} else if reason != "" {
			log.Debug().Str("reason", reason).Msg("no trade this cycle")
		}

		if idle := time.Since(s.st.lastTrade()); idle > s.deps.MaxIdle {
			s.st.setState(StateInterrupted)
			log.Warn().
				Dur("idle", idle).
				Str("last_reason", reason).
				Msg("idle watchdog fired, trading loop interrupted")
			return model.ErrIdleTimeout
		}

		if time.Since(lastStatus) >= s.statusEvery {
			lastStatus = time.Now()
			st := s.st.status()
			log.Info().
				Str("state", st.State).
				Int("trades", st.TradeCount).
				Float64("pnl", st.RealizedPnL).
				Msg("status")
		}

		// Pace the loop: cycle work time counts against the interval.
		if remaining := s.deps.ScanInterval - time.Since(cycleStart); remaining > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(remaining):
			}
		}
	}
}

// cycle runs one full trading cycle. Any single-cycle data or network failure
// is swallowed into a "no trade, with reason" outcome and the loop continues.
func (s *Service) cycle(ctx context.Context) (executed bool, reason string) {
	snap, err := s.deps.Exchange.GetSnapshot(ctx, s.deps.Instruments)
	if err != nil {
		return false, fmt.Sprintf("market data unavailable: %v", err)
	}
	s.deps.History.Observe(snap)

	ops := s.deps.Detector.Detect(snap, s.deps.Instruments, s.deps.FeeRate)
	if len(ops) == 0 {
		return false, "no profitable opportunities found"
	}

	scored := make([]model.ScoredOpportunity, 0, len(ops))
	for i := range ops {
		scored = append(scored, model.ScoredOpportunity{
			ArbitrageOpportunity: ops[i],
			Confidence:           s.deps.Scorer.Score(&ops[i], s.deps.History, snap),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Confidence != scored[j].Confidence {
			return scored[i].Confidence > scored[j].Confidence
		}
		return scored[i].Profit > scored[j].Profit
	})

	best := scored[0]
	s.advise(ctx, &best)
	_ = s.deps.Repo.SaveOpportunity(ctx, &best)

	balance, err := s.deps.Exchange.GetBalance(ctx, s.deps.BalanceCurrency)
	if err != nil {
		return false, fmt.Sprintf("balance unavailable: %v", err)
	}

	decision := s.deps.Risk.Evaluate(&best, balance)
	if !decision.Approved {
		return false, decision.Reason
	}
	if s.deps.Guard != nil {
		if ok, why := s.deps.Guard.Allow(best.Signature()); !ok {
			return false, why
		}
	}
	log.Info().
		Str("opportunity", best.ID).
		Str("path", best.Signature()).
		Float64("profit", best.Profit).
		Float64("confidence", best.Confidence).
		Float64("amount", decision.Amount).
		Msg("trade approved")

	res := s.deps.Executor.Execute(ctx, &best, decision.Amount)
	s.persist(ctx, res)

	if res.Partial {
		log.Error().
			Str("trade", res.ID).
			Strs("leg_orders", res.LegOrderIDs).
			Str("reason", res.FailReason).
			Msg("PARTIAL EXECUTION: completed legs need external reconciliation")
		return false, "partial execution"
	}
	if !res.Success {
		return false, res.FailReason
	}
	s.st.addPnL(res.Profit)
	return true, ""
}

// advise blends the optional external opinion into the local score. Local
// scoring stays authoritative: advisor errors are ignored.
func (s *Service) advise(ctx context.Context, op *model.ScoredOpportunity) {
	if s.deps.Advisor == nil {
		return
	}
	summary := port.OpportunitySummary{
		Profit:     op.Profit,
		Confidence: op.Confidence,
	}
	for _, hop := range op.Path {
		summary.Path = append(summary.Path, hop.From)
	}
	summary.Path = append(summary.Path, op.StartCurrency)

	advice, err := s.deps.Advisor.Advise(ctx, summary)
	if err != nil {
		log.Debug().Err(err).Msg("advisor unavailable, keeping local score")
		return
	}
	if advice.Confidence > 0 && advice.Confidence <= 1 {
		blended := (op.Confidence + advice.Confidence) / 2
		if blended < service.ConfidenceFloor {
			blended = service.ConfidenceFloor
		}
		if blended > service.ConfidenceCeiling {
			blended = service.ConfidenceCeiling
		}
		op.Confidence = blended
	}
}

// persist checkpoints the trade result and the resumable engine state.
func (s *Service) persist(ctx context.Context, res *model.TradeResult) {
	if err := s.deps.Repo.SaveTradeResult(ctx, res); err != nil {
		log.Warn().Err(err).Msg("trade result not persisted")
	}
	if err := s.deps.Repo.SaveRiskState(ctx, s.deps.Risk.State()); err != nil {
		log.Warn().Err(err).Msg("risk state not persisted")
	}
	if err := s.deps.Repo.SaveConfidenceState(ctx, s.deps.Scorer.State()); err != nil {
		log.Warn().Err(err).Msg("confidence state not persisted")
	}
}

// restore resumes risk counters and confidence priors from the repository.
func (s *Service) restore(ctx context.Context) {
	if st, ok, err := s.deps.Repo.LoadRiskState(ctx); err == nil && ok {
		s.deps.Risk.Restore(st)
		log.Info().Int("trades_today", st.TradesToday).Float64("pnl_today", st.PnLToday).Msg("risk state restored")
	}
	if st, ok, err := s.deps.Repo.LoadConfidenceState(ctx); err == nil && ok {
		s.deps.Scorer.Restore(st)
		log.Info().Float64("alpha", st.Alpha).Float64("beta", st.Beta).Msg("confidence state restored")
	}
}

// startFeeds wires optional ws ticker feeds into the rolling market history.
func (s *Service) startFeeds(ctx context.Context) {
	for _, feed := range s.deps.Feeds {
		ch, err := feed.Subscribe(ctx, s.deps.Instruments)
		if err != nil {
			log.Warn().Str("feed", feed.Name()).Err(err).Msg("feed subscribe failed")
			continue
		}
		go func(name string, in <-chan port.Tick) {
			for {
				select {
				case <-ctx.Done():
					return
				case t, ok := <-in:
					if !ok {
						return
					}
					s.deps.History.ObserveTick(t.Instrument, t.Price)
				}
			}
		}(feed.Name(), ch)
		log.Info().Str("feed", feed.Name()).Msg("feed started")
	}
}
