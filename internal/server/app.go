// Package server wires the Echo auth server together: it opens and migrates
// the database, builds the services, and runs the gRPC API, the HTTP API and
// the expired-token purge loop until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/echo/internal/logging"
	"github.com/dmitrijs2005/echo/internal/server/auth"
	"github.com/dmitrijs2005/echo/internal/server/config"
	"github.com/dmitrijs2005/echo/internal/server/httpapi"
	"github.com/dmitrijs2005/echo/internal/server/metrics"
	"github.com/dmitrijs2005/echo/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/echo/internal/server/services"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/echo/internal/server/grpc"
)

// startupTimeout bounds connecting to and migrating the database.
const startupTimeout = 30 * time.Second

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	metrics      *metrics.Metrics
	userService  *services.UserService
	tokenService *services.TokenService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.New(c.Env)

	signing, err := c.SigningConfig()
	if err != nil {
		return nil, err
	}

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	db, err := repomanager.Open(startCtx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(startCtx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	ts := services.NewTokenService(db, rm, signing, logger)
	us := services.NewUserService(db, rm, ts, auth.NewPasswordHasher(), logger)

	logger.Info(ctx, "Signing access tokens", "alg", signing.SigningMethod().Alg(), "issuer", signing.Issuer)

	return &App{
		config:       c,
		logger:       logger.With("module", "app"),
		db:           db,
		metrics:      metrics.New(),
		userService:  us,
		tokenService: ts,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run blocks until a signal arrives or one of the components fails. The
// first failure stops the others.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, app.metrics)
		if err := s.Run(ctx); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger, app.userService, app.metrics)
		if err := s.Run(ctx); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if app.config.ExpiredTokenPurgeInterval > 0 {
		g.Go(func() error {
			runPurgeLoop(ctx, app.config.ExpiredTokenPurgeInterval, app.tokenService, app.metrics, app.logger)
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "app stopped with error", "error", err)
	}

	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(ctx, "closing db failed", "error", cerr)
	}

	app.logger.Info(ctx, "App stopped")
	return err
}

type expiredTokenPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// runPurgeLoop deletes expired refresh tokens every interval until ctx is
// done. Failures are logged and retried on the next tick.
func runPurgeLoop(ctx context.Context, interval time.Duration, p expiredTokenPurger, m *metrics.Metrics, l logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PurgeExpired(ctx)
			if err != nil {
				if ctx.Err() == nil {
					l.Warn(ctx, "purging expired refresh tokens failed", "error", err)
				}
				continue
			}
			if m != nil {
				m.AddPurgedRefreshTokens(n)
			}
			if n > 0 {
				l.Debug(ctx, "purged expired refresh tokens", "count", n)
			}
		}
	}
}
