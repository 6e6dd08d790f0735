// Package server initializes and runs the Dovol backend. It opens the
// configured store, builds the OTP engine, token manager and auth gate,
// wires them into the gRPC transport, and handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/dovol/internal/logging"
	"github.com/dmitrijs2005/dovol/internal/server/auth"
	"github.com/dmitrijs2005/dovol/internal/server/config"
	"github.com/dmitrijs2005/dovol/internal/server/metrics"
	"github.com/dmitrijs2005/dovol/internal/server/notify"
	"github.com/dmitrijs2005/dovol/internal/server/ratelimit"
	"github.com/dmitrijs2005/dovol/internal/server/services"
	"github.com/dmitrijs2005/dovol/internal/timex"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/dovol/internal/server/grpc"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	store   *Store
	metrics *metrics.Metrics
	otp     *services.OTPService
	server  *gs.GRPCServer
	closers []func() error
}

func NewApp(c *config.Config) (*App, error) {

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger, err := NewLogger(c)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	ctx := context.Background()

	store, err := OpenStore(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app := &App{config: c, logger: logger, store: store, closers: []func() error{store.Close}}

	dispatcher, err := newDispatcher(c, logger)
	if err != nil {
		_ = app.close()
		return nil, fmt.Errorf("mail init error: %w", err)
	}

	clock := timex.SystemClock{}
	app.metrics = metrics.New()

	limiter := app.newLimiter(clock)
	tokens := auth.NewTokenManager(c.SecretKey, c.AccessTokenValidity(), clock)

	app.otp = services.NewOTPService(store.Repos, store.Tx, dispatcher, clock, app.metrics, logger, c.OTPValidity)

	svc := gs.Services{
		Gate:         services.NewGate(tokens, store.Repos, store.Tx, app.metrics),
		Accounts:     services.NewAccountService(store.Repos, store.Tx, app.otp, tokens, limiter, clock, logger),
		Admin:        services.NewAdminService(store.Repos, store.Tx, clock, logger),
		Tasks:        services.NewTaskService(store.Repos, store.Tx, clock, logger),
		Applications: services.NewApplicationService(store.Repos, store.Tx, clock, logger),
		Skills:       services.NewSkillService(store.Repos, store.Tx),
	}
	app.server = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, svc)

	return app, nil
}

// newDispatcher mails codes when an SMTP host is configured and only logs
// them otherwise.
func newDispatcher(c *config.Config, logger logging.Logger) (notify.Dispatcher, error) {
	if c.SMTPHost == "" {
		logger.Warn(context.Background(), "SMTP host not set, OTP codes will be logged instead of mailed")
		return notify.NewLogDispatcher(logger), nil
	}
	return notify.NewSMTPDispatcher(c, logger)
}

func (app *App) newLimiter(clock timex.Clock) ratelimit.Limiter {
	switch {
	case app.config.ThrottleMax <= 0:
		return ratelimit.Unlimited{}
	case app.config.RedisAddr != "":
		client := redis.NewClient(&redis.Options{Addr: app.config.RedisAddr})
		app.closers = append(app.closers, client.Close)
		return ratelimit.NewRedisLimiter(client, app.config.ThrottleWindow, app.config.ThrottleMax)
	default:
		return ratelimit.NewLocalLimiter(app.config.ThrottleWindow, app.config.ThrottleMax, clock)
	}
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

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startMetricsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	app.logger.Info(ctx, "Starting metrics server", "address", app.config.MetricsAddr)
	if err := app.metrics.Serve(ctx, app.config.MetricsAddr); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) close() error {
	var firstErr error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if app.config.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startMetricsServer(ctx, cancelFunc)
		}()
	}

	if app.config.OTPSweepInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.otp.RunSweeper(ctx, app.config.OTPSweepInterval)
		}()
	}

	wg.Wait()

	if err := app.close(); err != nil {
		app.logger.Error(context.Background(), "shutdown", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
