package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"triarb/internal/application/container"
	"triarb/internal/infrastructure/advisor"
	"triarb/internal/infrastructure/config"
	"triarb/internal/infrastructure/exchange/kraken"
	"triarb/internal/infrastructure/logger"
	"triarb/internal/infrastructure/storage"
	"triarb/internal/infrastructure/websocket"
	"triarb/internal/interfaces/console"

	"triarb/internal/domain/model"
)

func main() {
	os.Exit(run())
}

// run holds the real entrypoint so deferred cleanup (storage close, signal
// teardown) fires before the process exits with a status code.
func run() int {
	logger.Setup()
	_ = godotenv.Load() // optional .env; real env wins

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	log.Info().Interface("config", cfg.Redacted()).Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := storage.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open storage failed")
	}

	client := kraken.NewClient(cfg.Exchange.Kraken.RestURL, cfg.Exchange.Kraken.APIKey, cfg.Exchange.Kraken.APISecret)
	exchange := kraken.NewAdapter(client)

	c := container.New(cfg, repo, exchange)
	defer func() {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("storage close failed")
		}
	}()

	c.SetFeeds(websocket.BuildFeeds(cfg))
	if cfg.Advisor.Enabled {
		c.SetAdvisor(advisor.NewHTTPAdvisor(cfg.Advisor.URL, time.Duration(cfg.Advisor.TimeoutSecs)*time.Second))
		log.Info().Str("url", cfg.Advisor.URL).Msg("external advisor enabled")
	}

	svc := c.Trader()
	log.Info().
		Str("config", *configPath).
		Int("instruments", len(cfg.Trading.Instruments)).
		Float64("min_profit_percent", cfg.Trading.MinProfitPercent).
		Msg("triarb started")

	err = svc.Run(ctx)
	switch {
	case errors.Is(err, model.ErrIdleTimeout):
		log.Error().Err(err).Msg("trading loop idle too long, exiting for external restart")
	case errors.Is(err, context.Canceled):
		log.Info().Msg("shutdown complete")
	case err != nil:
		log.Error().Err(err).Msg("trading loop exited")
	}

	sink := console.NewSink()
	sink.WriteStatus(svc.Status())
	if trades, err := repo.ListRecentTrades(context.Background(), 10); err == nil {
		sink.WriteTrades(trades)
	}

	return exitCode(err)
}

// exitCode maps the loop's terminal error to the process status. Idle
// timeouts exit nonzero so a supervisor restarts the process.
func exitCode(err error) int {
	if errors.Is(err, model.ErrIdleTimeout) {
		return 1
	}
	return 0
}
