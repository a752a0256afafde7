// Package server wires configuration, stores, the session service and the
// gRPC and observability endpoints into a runnable application.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/authsvc/internal/cryptox"
	"github.com/dmitrijs2005/authsvc/internal/logging"
	"github.com/dmitrijs2005/authsvc/internal/server/auth"
	"github.com/dmitrijs2005/authsvc/internal/server/config"
	"github.com/dmitrijs2005/authsvc/internal/server/email"
	"github.com/dmitrijs2005/authsvc/internal/server/observability"
	"github.com/dmitrijs2005/authsvc/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authsvc/internal/server/services"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/authsvc/internal/server/grpc"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	pool     *cryptox.Pool
	stores   *repomanager.Manager
	mailer   email.Client
	sessions *services.SessionService
	grpc     *gs.GRPCServer
	obs      *observability.Server
}

// NewApp connects to the configured backends and builds every component.
// Logs go to w, or stdout when w is nil.
func NewApp(ctx context.Context, c *config.Config, w io.Writer) (*App, error) {
	if w == nil {
		w = os.Stdout
	}
	logger := logging.New("authsvc", c.LogFormat, w)
	pool := cryptox.NewPool(c.HasherWorkers)

	stores, err := repomanager.Open(ctx, c, cryptox.NewArgon2idHasher(cryptox.DefaultParams, pool), logger)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	app := &App{config: c, logger: logger, pool: pool, stores: stores}
	if c.MigrateOnly {
		return app, nil
	}

	tokens, err := auth.NewTokenService([]byte(c.SecretKey), c.TokenTTL)
	if err != nil {
		_ = stores.Close()
		return nil, err
	}

	app.mailer, err = newMailer(ctx, c, logger)
	if err != nil {
		_ = stores.Close()
		return nil, fmt.Errorf("email init error: %w", err)
	}

	var (
		opts []services.Option
		rpcs gs.RPCRecorder
	)
	if c.MetricsAddr != "" {
		app.obs = observability.NewServer(c.MetricsAddr, app.ready, app.hasherInFlight, logger)
		opts = append(opts, services.WithMetrics(app.obs.Metrics()))
		rpcs = app.obs.Metrics()
	}

	app.sessions = services.NewSessionService(stores, tokens, app.mailer, logger, opts...)
	app.grpc = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, app.sessions, rpcs)

	return app, nil
}

func newMailer(ctx context.Context, c *config.Config, logger logging.Logger) (email.Client, error) {
	if c.EmailBackend != config.EmailS3 {
		var opts []email.LogOption
		if c.EmailLogCodes {
			logger.Warn(ctx, "email log backend prints 2FA codes; do not use in production")
			opts = append(opts, email.WithUnmaskedBody())
		}
		return email.NewLogClient(logger, opts...), nil
	}
	return email.NewS3OutboxClient(ctx, email.S3Options{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		Bucket:       c.S3Bucket,
		BaseEndpoint: c.S3BaseEndpoint,
	})
}

func (app *App) ready() bool {
	return app.grpc != nil && app.grpc.Serving()
}

func (app *App) hasherInFlight() float64 {
	return float64(app.pool.InFlight())
}

// Run applies migrations and serves until ctx is cancelled or SIGINT,
// SIGTERM or SIGQUIT arrives. With MigrateOnly it returns after migrating.
func (app *App) Run(ctx context.Context) error {
	defer func() {
		if err := app.stores.Close(); err != nil {
			logging.LogError(ctx, app.logger, "close stores", err)
		}
	}()

	if err := app.stores.RunMigrations(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if app.config.MigrateOnly {
		app.logger.Info(ctx, "migrations applied")
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	g, ctx := errgroup.WithContext(ctx)

	maintenance := app.stores.StartMaintenance(ctx, app.config.MaintenanceInterval)

	if app.obs != nil {
		obsErrs, err := app.obs.Start(ctx)
		if err != nil {
			return fmt.Errorf("observability: %w", err)
		}
		g.Go(func() error {
			select {
			case err, ok := <-obsErrs:
				if ok && err != nil {
					return err
				}
				return nil
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
				defer cancel()
				return app.obs.Stop(shutdownCtx)
			}
		})
	}

	g.Go(func() error {
		return app.grpc.Run(ctx)
	})

	err := g.Wait()
	<-maintenance

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	app.logger.Info(context.WithoutCancel(ctx), "app stopped")
	return nil
}
