package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/authsvc/internal/dbx"
	"github.com/dmitrijs2005/authsvc/internal/logging"
	"github.com/dmitrijs2005/authsvc/internal/server/config"
	"github.com/dmitrijs2005/authsvc/internal/server/repositories/users"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

// Connections are opened through these seams so Open can be tested
// without a live server.
var (
	openDB   = dbx.OpenWithRetry
	newRedis = func(o *redis.Options) redis.UniversalClient { return redis.NewClient(o) }
)

// backoff is the startup retry policy for both Postgres and Redis.
var backoff = dbx.DefaultBackoff

func pingRedis(ctx context.Context, c redis.UniversalClient, b retry.Backoff) error {
	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := c.Ping(ctx).Err(); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// Open connects to whatever backends cfg requires, waiting for each with
// retry, and returns the composed Manager.
func Open(ctx context.Context, cfg *config.Config, hasher users.PasswordHasher, logger logging.Logger) (*Manager, error) {
	opts := Options{
		UsersStore:   cfg.UsersStore,
		TokensStore:  cfg.TokensStore,
		CodesStore:   cfg.CodesStore,
		TwoFACodeTTL: cfg.TwoFACodeTTL,
		Hasher:       hasher,
		Logger:       logger,
	}

	if cfg.NeedsPostgres() || cfg.MigrateOnly {
		db, err := openDB(ctx, "pgx", cfg.DatabaseDSN, backoff())
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		opts.DB = db
		if logger != nil {
			logger.Info(ctx, "connected to postgres")
		}
	}

	if cfg.NeedsRedis() {
		rc := newRedis(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := pingRedis(ctx, rc, backoff()); err != nil {
			_ = rc.Close()
			if opts.DB != nil {
				_ = opts.DB.Close()
			}
			return nil, fmt.Errorf("redis: %w", err)
		}
		opts.Redis = rc
		if logger != nil {
			logger.Info(ctx, "connected to redis", "addr", cfg.RedisAddr)
		}
	}

	m, err := New(opts)
	if err != nil {
		_ = (&Manager{db: opts.DB, redis: opts.Redis}).Close()
		return nil, err
	}
	return m, nil
}
