package storage

import (
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"triarb/internal/application/port"
	"triarb/internal/infrastructure/config"
	"triarb/internal/infrastructure/storage/composite"
	"triarb/internal/infrastructure/storage/postgres"
	"triarb/internal/infrastructure/storage/redis"
	"triarb/internal/infrastructure/storage/sqlite"
)

// Open builds the repository stack from config: a primary store (sqlite by
// default, postgres, or none) plus an optional Redis mirror for stream
// consumers. With a mirror the result is a composite repo that writes to
// both and reads from the primary.
func Open(cfg *config.Config) (port.Repository, error) {
	primary, err := openPrimary(cfg)
	if err != nil {
		return nil, err
	}

	if !cfg.Storage.Redis.Enabled {
		return primary, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Storage.Redis.Addr,
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})
	mirror := redis.New(rdb, cfg.Storage.Redis.Prefix, 24*time.Hour, "", "")
	log.Info().Str("addr", cfg.Storage.Redis.Addr).Msg("redis mirror enabled")
	return composite.New(primary, mirror), nil
}

func openPrimary(cfg *config.Config) (port.Repository, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		repo, err := sqlite.New(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.Storage.SQLitePath, err)
		}
		log.Info().Str("path", cfg.Storage.SQLitePath).Msg("sqlite storage ready")
		return repo, nil
	case "postgres":
		repo, err := postgres.New(cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		log.Info().Msg("postgres storage ready")
		return repo, nil
	case "none":
		return NewNoop(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
