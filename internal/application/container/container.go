package container

import (
	"time"

	"triarb/internal/application/port"
	"triarb/internal/application/trader"
	"triarb/internal/domain/service"
	"triarb/internal/infrastructure/config"
)

// Container wires the service graph lazily from config, repository and
// exchange. Getters build each service on first use.
type Container struct {
	cfg      *config.Config
	repo     port.Repository
	exchange port.Exchange
	feeds    []port.PriceFeed
	advisor  port.Advisor

	detector *service.CycleDetector
	scorer   *service.ConfidenceScorer
	risk     *service.RiskManager
	executor *service.TradeExecutor
	history  *service.MarketHistory
	guard    *service.ExecutionGuard
	trader   *trader.Service
}

func New(cfg *config.Config, repo port.Repository, exchange port.Exchange) *Container {
	return &Container{
		cfg:      cfg,
		repo:     repo,
		exchange: exchange,
	}
}

// SetFeeds registers optional ws price feeds. Must be called before Trader().
func (c *Container) SetFeeds(feeds []port.PriceFeed) { c.feeds = feeds }

// SetAdvisor registers the optional external advisor. Must be called before Trader().
func (c *Container) SetAdvisor(a port.Advisor) { c.advisor = a }

func (c *Container) Repository() port.Repository { return c.repo }

func (c *Container) Detector() *service.CycleDetector {
	if c.detector == nil {
		c.detector = service.NewCycleDetector(c.cfg.Trading.MinProfitPercent / 100)
	}
	return c.detector
}

func (c *Container) Scorer() *service.ConfidenceScorer {
	if c.scorer == nil {
		c.scorer = service.NewConfidenceScorer(service.ConfidenceConfig{
			DecayFactor:      c.cfg.Confidence.DecayFactor,
			VolumeCeiling:    c.cfg.Confidence.VolumeCeiling,
			MomentumWindow:   c.cfg.Confidence.MomentumWindow,
			VolatilityWindow: c.cfg.Confidence.VolatilityWindow,
			OutcomeWindow:    c.cfg.Confidence.OutcomeWindow,
		})
	}
	return c.scorer
}

func (c *Container) Risk() *service.RiskManager {
	if c.risk == nil {
		c.risk = service.NewRiskManager(service.RiskConfig{
			MaxDailyTrades:     c.cfg.Trading.MaxDailyTrades,
			MaxDailyLoss:       c.cfg.Trading.MaxDailyLoss,
			MinLiquidity:       c.cfg.Trading.MinLiquidity,
			MinConfidence:      c.cfg.Trading.MinConfidence,
			MaxPositionSize:    c.cfg.Trading.MaxPositionSize,
			MaxBalanceFraction: c.cfg.Trading.MaxBalanceFraction,
		})
	}
	return c.risk
}

func (c *Container) Executor() *service.TradeExecutor {
	if c.executor == nil {
		c.executor = service.NewTradeExecutor(c.exchange, c.Scorer(), c.Risk(), c.cfg.Trading.FeeRate)
	}
	return c.executor
}

func (c *Container) History() *service.MarketHistory {
	if c.history == nil {
		c.history = service.NewMarketHistory(c.cfg.Confidence.VolatilityWindow * 4)
	}
	return c.history
}

func (c *Container) Guard() *service.ExecutionGuard {
	if c.guard == nil {
		c.guard = service.NewExecutionGuard(10 * time.Second)
	}
	return c.guard
}

func (c *Container) Trader() *trader.Service {
	if c.trader == nil {
		c.trader = trader.NewService(trader.Deps{
			Exchange:        c.exchange,
			Repo:            c.repo,
			Feeds:           c.feeds,
			Advisor:         c.advisor,
			Detector:        c.Detector(),
			Scorer:          c.Scorer(),
			Risk:            c.Risk(),
			Executor:        c.Executor(),
			History:         c.History(),
			Guard:           c.Guard(),
			Instruments:     c.cfg.Instruments(),
			FeeRate:         c.cfg.Trading.FeeRate,
			BalanceCurrency: c.cfg.App.BalanceCurrency,
			ScanInterval:    time.Duration(c.cfg.App.ScanIntervalSecs * float64(time.Second)),
			MaxIdle:         time.Duration(c.cfg.App.MaxIdleMinutes) * time.Minute,
		})
	}
	return c.trader
}

func (c *Container) Close() error {
	return c.repo.Close()
}
