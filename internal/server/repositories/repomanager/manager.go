// Package repomanager composes the credential, revocation and challenge
// stores from configuration, owns their connections and runs schema
// migrations and periodic maintenance.
package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authsvc/internal/logging"
	"github.com/dmitrijs2005/authsvc/internal/server/repositories/bannedtokens"
	"github.com/dmitrijs2005/authsvc/internal/server/repositories/twofacodes"
	"github.com/dmitrijs2005/authsvc/internal/server/repositories/users"
	"github.com/redis/go-redis/v9"
	"github.com/thejerf/abtime"
)

// Backend names accepted in Options.
const (
	Memory   = "memory"
	Postgres = "postgres"
	Redis    = "redis"
)

// PurgeTickerID identifies the Postgres purge ticker on an abtime clock.
const PurgeTickerID = 2

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Users() users.Repository
	BannedTokens() bannedtokens.Repository
	TwoFACodes() twofacodes.Repository
	StartMaintenance(ctx context.Context, interval time.Duration) <-chan struct{}
	Close() error
}

// Options selects a backend per store. DB is required when any store is
// Postgres-backed and Redis when any store is Redis-backed.
type Options struct {
	UsersStore   string
	TokensStore  string
	CodesStore   string
	TwoFACodeTTL time.Duration

	DB     *sql.DB
	Redis  redis.UniversalClient
	Hasher users.PasswordHasher
	Clock  abtime.AbstractTime
	Logger logging.Logger
}

type janitor interface {
	StartJanitor(ctx context.Context, interval time.Duration) <-chan struct{}
}

type purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Manager is the RepositoryManager used by the server.
type Manager struct {
	db     *sql.DB
	redis  redis.UniversalClient
	clock  abtime.AbstractTime
	logger logging.Logger

	users  users.Repository
	tokens bannedtokens.Repository
	codes  twofacodes.Repository
}

var _ RepositoryManager = (*Manager)(nil)

// New builds the stores described by opts. The manager takes ownership of
// opts.DB and opts.Redis and closes them in Close.
func New(opts Options) (*Manager, error) {
	if opts.Clock == nil {
		opts.Clock = abtime.NewRealTime()
	}
	if opts.TwoFACodeTTL <= 0 {
		opts.TwoFACodeTTL = twofacodes.DefaultTTL
	}

	m := &Manager{db: opts.DB, redis: opts.Redis, clock: opts.Clock, logger: opts.Logger}

	needDB := func(store string) error {
		if opts.DB == nil {
			return fmt.Errorf("%s store: postgres backend needs a database", store)
		}
		return nil
	}
	needRedis := func(store string) error {
		if opts.Redis == nil {
			return fmt.Errorf("%s store: redis backend needs a redis client", store)
		}
		return nil
	}

	switch opts.UsersStore {
	case Memory, "":
		m.users = users.NewMemoryRepository(opts.Hasher)
	case Postgres:
		if err := needDB("users"); err != nil {
			return nil, err
		}
		m.users = users.NewPostgresRepository(opts.DB, opts.Hasher)
	default:
		return nil, fmt.Errorf("users store: unknown backend %q", opts.UsersStore)
	}

	switch opts.TokensStore {
	case Memory, "":
		m.tokens = bannedtokens.NewMemoryRepository(opts.Clock)
	case Postgres:
		if err := needDB("tokens"); err != nil {
			return nil, err
		}
		m.tokens = bannedtokens.NewPostgresRepository(opts.DB)
	case Redis:
		if err := needRedis("tokens"); err != nil {
			return nil, err
		}
		m.tokens = bannedtokens.NewRedisRepository(opts.Redis)
	default:
		return nil, fmt.Errorf("tokens store: unknown backend %q", opts.TokensStore)
	}

	switch opts.CodesStore {
	case Memory, "":
		m.codes = twofacodes.NewMemoryRepository(opts.TwoFACodeTTL, opts.Clock)
	case Redis:
		if err := needRedis("codes"); err != nil {
			return nil, err
		}
		m.codes = twofacodes.NewRedisRepository(opts.Redis, opts.TwoFACodeTTL)
	default:
		return nil, fmt.Errorf("codes store: unknown backend %q", opts.CodesStore)
	}

	return m, nil
}

func (m *Manager) Users() users.Repository               { return m.users }
func (m *Manager) BannedTokens() bannedtokens.Repository { return m.tokens }
func (m *Manager) TwoFACodes() twofacodes.Repository     { return m.codes }

// RunMigrations applies the embedded goose migrations. It is a no-op when
// no store uses Postgres.
func (m *Manager) RunMigrations(ctx context.Context) error {
	if m.db == nil {
		return nil
	}
	return runMigrations(ctx, m.db)
}

// StartMaintenance starts janitors for the in-memory TTL stores and a
// periodic purge of expired Postgres revocations. The returned channel is
// closed once every maintenance goroutine has exited.
func (m *Manager) StartMaintenance(ctx context.Context, interval time.Duration) <-chan struct{} {
	var waits []<-chan struct{}

	for _, s := range []any{m.tokens, m.codes} {
		if j, ok := s.(janitor); ok {
			waits = append(waits, j.StartJanitor(ctx, interval))
		}
		if p, ok := s.(purger); ok {
			waits = append(waits, m.startPurge(ctx, p, interval))
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, w := range waits {
			<-w
		}
	}()
	return done
}

func (m *Manager) startPurge(ctx context.Context, p purger, interval time.Duration) <-chan struct{} {
	ticker := m.clock.NewTicker(interval, PurgeTickerID)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Channel():
				n, err := p.PurgeExpired(ctx)
				if err != nil {
					if m.logger != nil && ctx.Err() == nil {
						logging.LogError(ctx, m.logger, "purge expired revocations failed", err)
					}
					continue
				}
				if n > 0 && m.logger != nil {
					m.logger.Info(ctx, "purged expired revocations", "count", n)
				}
			}
		}
	}()

	return done
}

// Close releases the database pool and the redis client.
func (m *Manager) Close() error {
	var errs []error
	if m.db != nil {
		if err := m.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	if m.redis != nil {
		if err := m.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
