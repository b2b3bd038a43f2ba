package websocket

import (
	"github.com/rs/zerolog/log"

	"triarb/internal/application/port"
	"triarb/internal/infrastructure/config"
	"triarb/internal/infrastructure/exchange/kraken"
)

// BuildFeeds constructs the enabled ws price feeds from config. Feeds are
// optional: the trading loop polls REST snapshots either way, ws ticks only
// densify the rolling history between polls.
func BuildFeeds(cfg *config.Config) []port.PriceFeed {
	var feeds []port.PriceFeed
	if cfg.Exchange.Kraken.WsEnabled {
		feeds = append(feeds, kraken.NewTickerFeed(cfg.Exchange.Kraken.WsURL))
		log.Info().Str("url", cfg.Exchange.Kraken.WsURL).Msg("kraken ticker feed enabled")
	} else {
		log.Info().Msg("ws feeds disabled by config")
	}
	return feeds
}
