package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"triarb/internal/domain/model"
)

type Config struct {
	App struct {
		ScanIntervalSecs float64 `toml:"scan_interval_secs"`
		MaxIdleMinutes   int     `toml:"max_idle_minutes"`
		BalanceCurrency  string  `toml:"balance_currency"`
	} `toml:"app"`

	Trading struct {
		Instruments        []string `toml:"instruments"`
		FeeRate            float64  `toml:"fee_rate"`
		MinProfitPercent   float64  `toml:"min_profit_percent"`
		MinConfidence      float64  `toml:"min_confidence"`
		MaxPositionSize    float64  `toml:"max_position_size"`
		MinLiquidity       float64  `toml:"min_liquidity"`
		MaxBalanceFraction float64  `toml:"max_balance_fraction"`
		MaxDailyTrades     int      `toml:"max_daily_trades"`
		MaxDailyLoss       float64  `toml:"max_daily_loss"`
	} `toml:"trading"`

	Confidence struct {
		DecayFactor      float64 `toml:"decay_factor"`
		VolumeCeiling    float64 `toml:"volume_ceiling"`
		MomentumWindow   int     `toml:"momentum_window"`
		VolatilityWindow int     `toml:"volatility_window"`
		OutcomeWindow    int     `toml:"outcome_window"`
	} `toml:"confidence"`

	Exchange struct {
		Kraken struct {
			RestURL   string `toml:"rest_url"`
			WsURL     string `toml:"ws_url"`
			WsEnabled bool   `toml:"ws_enabled"`
			APIKey    string `toml:"-"` // from env, never from file
			APISecret string `toml:"-"`
		} `toml:"kraken"`
	} `toml:"exchange"`

	Storage struct {
		Driver      string `toml:"driver"` // sqlite | postgres | none
		SQLitePath  string `toml:"sqlite_path"`
		PostgresDSN string `toml:"postgres_dsn"`

		Redis struct {
			Enabled  bool   `toml:"enabled"`
			Addr     string `toml:"addr"`
			Password string `toml:"password"`
			DB       int    `toml:"db"`
			Prefix   string `toml:"prefix"`
		} `toml:"redis"`
	} `toml:"storage"`

	Advisor struct {
		Enabled     bool   `toml:"enabled"`
		URL         string `toml:"url"`
		TimeoutSecs int    `toml:"timeout_secs"`
	} `toml:"advisor"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrConfigInvalid, err)
	}
	applyDefaults(&cfg)
	loadEnv(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.ScanIntervalSecs <= 0 {
		cfg.App.ScanIntervalSecs = 1.0
	}
	if cfg.App.MaxIdleMinutes <= 0 {
		cfg.App.MaxIdleMinutes = 10
	}
	if cfg.App.BalanceCurrency == "" {
		cfg.App.BalanceCurrency = "USD"
	}

	if cfg.Trading.FeeRate <= 0 {
		cfg.Trading.FeeRate = 0.0026 // taker fee
	}
	if cfg.Trading.MinProfitPercent <= 0 {
		cfg.Trading.MinProfitPercent = 0.8
	}
	if cfg.Trading.MinConfidence <= 0 {
		cfg.Trading.MinConfidence = 0.7
	}
	if cfg.Trading.MaxPositionSize <= 0 {
		cfg.Trading.MaxPositionSize = 1000
	}
	if cfg.Trading.MinLiquidity <= 0 {
		cfg.Trading.MinLiquidity = 500
	}
	if cfg.Trading.MaxBalanceFraction <= 0 || cfg.Trading.MaxBalanceFraction > 1 {
		cfg.Trading.MaxBalanceFraction = 0.1
	}
	if cfg.Trading.MaxDailyTrades <= 0 {
		cfg.Trading.MaxDailyTrades = 100
	}
	if cfg.Trading.MaxDailyLoss <= 0 {
		cfg.Trading.MaxDailyLoss = 500
	}

	if cfg.Confidence.DecayFactor <= 0 || cfg.Confidence.DecayFactor >= 1 {
		cfg.Confidence.DecayFactor = 0.95
	}
	if cfg.Confidence.VolumeCeiling <= 0 {
		cfg.Confidence.VolumeCeiling = 1000
	}
	if cfg.Confidence.MomentumWindow <= 0 {
		cfg.Confidence.MomentumWindow = 5
	}
	if cfg.Confidence.VolatilityWindow <= 0 {
		cfg.Confidence.VolatilityWindow = 15
	}
	if cfg.Confidence.OutcomeWindow <= 0 {
		cfg.Confidence.OutcomeWindow = 100
	}

	if cfg.Exchange.Kraken.RestURL == "" {
		cfg.Exchange.Kraken.RestURL = "https://api.kraken.com"
	}
	if cfg.Exchange.Kraken.WsURL == "" {
		cfg.Exchange.Kraken.WsURL = "wss://ws.kraken.com"
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/triarb.db"
	}
	if cfg.Storage.Redis.Prefix == "" {
		cfg.Storage.Redis.Prefix = "triarb"
	}

	if cfg.Advisor.TimeoutSecs <= 0 {
		cfg.Advisor.TimeoutSecs = 5
	}
}

// loadEnv pulls credentials from the environment (a .env file is loaded by
// main before this runs). Keys never live in the config file.
func loadEnv(cfg *Config) {
	cfg.Exchange.Kraken.APIKey = os.Getenv("KRAKEN_API_KEY")
	cfg.Exchange.Kraken.APISecret = os.Getenv("KRAKEN_API_SECRET")
}

func validate(cfg *Config) error {
	cfg.Trading.Instruments = normalizeInstruments(cfg.Trading.Instruments)
	if len(cfg.Trading.Instruments) == 0 {
		return fmt.Errorf("%w: trading.instruments is empty", model.ErrConfigInvalid)
	}
	for _, s := range cfg.Trading.Instruments {
		if _, err := model.ParseInstrument(s); err != nil {
			return fmt.Errorf("%w: %v", model.ErrConfigInvalid, err)
		}
	}
	if cfg.Trading.FeeRate >= 1 {
		return fmt.Errorf("%w: trading.fee_rate must be below 1", model.ErrConfigInvalid)
	}
	if cfg.Trading.MinConfidence >= 1 {
		return fmt.Errorf("%w: trading.min_confidence must be below 1", model.ErrConfigInvalid)
	}
	switch cfg.Storage.Driver {
	case "sqlite", "postgres", "none":
	default:
		return fmt.Errorf("%w: unknown storage.driver %q", model.ErrConfigInvalid, cfg.Storage.Driver)
	}
	if cfg.Storage.Driver == "postgres" && cfg.Storage.PostgresDSN == "" {
		return fmt.Errorf("%w: storage.postgres_dsn required for postgres driver", model.ErrConfigInvalid)
	}
	if cfg.Advisor.Enabled && cfg.Advisor.URL == "" {
		return fmt.Errorf("%w: advisor.url required when advisor.enabled", model.ErrConfigInvalid)
	}
	return nil
}

func normalizeInstruments(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// Instruments returns the parsed, ordered instrument set.
func (c *Config) Instruments() []model.Instrument {
	out := make([]model.Instrument, 0, len(c.Trading.Instruments))
	for _, s := range c.Trading.Instruments {
		inst, err := model.ParseInstrument(s)
		if err != nil {
			continue // validate already rejected bad entries
		}
		out = append(out, inst)
	}
	return out
}

// Redacted returns a copy safe for logging: secrets replaced with "***".
func (c *Config) Redacted() Config {
	out := *c
	redact(&out.Exchange.Kraken.APIKey)
	redact(&out.Exchange.Kraken.APISecret)
	redact(&out.Storage.PostgresDSN)
	redact(&out.Storage.Redis.Password)
	return out
}

func redact(s *string) {
	if *s != "" {
		*s = "***"
	}
}
