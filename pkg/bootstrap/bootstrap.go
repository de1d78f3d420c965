// Package bootstrap performs the startup shared by every binary: .env,
// config, logger, database, optional Redis, and ordered shutdown.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/vendorledger-backend/pkg/config"
	"github.com/angelmondragon/vendorledger-backend/pkg/db"
	"github.com/angelmondragon/vendorledger-backend/pkg/instance"
	"github.com/angelmondragon/vendorledger-backend/pkg/logger"
	"github.com/angelmondragon/vendorledger-backend/pkg/migrate"
	"github.com/angelmondragon/vendorledger-backend/pkg/redis"
)

type Options struct {
	Service string
	Redis   bool
}

type closer struct {
	name string
	fn   func() error
}

// Runtime owns the shared clients of one process.
type Runtime struct {
	Service string
	Config  *config.Config
	Logger  *logger.Logger
	DB      *db.Client
	Redis   *redis.Client

	closers []closer
}

// Start loads configuration and dials dependencies. On failure the error is
// already logged and everything opened so far is closed.
func Start(ctx context.Context, opts Options) (*Runtime, error) {
	rt := &Runtime{Service: opts.Service, Logger: logger.New(logger.Options{ServiceName: opts.Service})}
	if err := godotenv.Load(); err != nil {
		rt.Logger.Warn(ctx, ".env file not found, relying on environment")
	}

	if err := rt.start(ctx, opts); err != nil {
		rt.Logger.Error(ctx, "startup failed", err)
		_ = rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) start(ctx context.Context, opts Options) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = opts.Service
	rt.Config = cfg
	rt.Logger = logger.New(logger.Options{
		ServiceName: opts.Service,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	rt.DB, err = db.New(ctx, cfg.DB, rt.Logger)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	rt.OnClose("database", rt.DB.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, rt.Logger, rt.DB); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	if opts.Redis {
		rt.Redis, err = redis.New(ctx, cfg.Redis, rt.Logger)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		rt.OnClose("redis", rt.Redis.Close)
	}
	return nil
}

// OnClose registers fn to run on Close. Closers run last-registered first.
func (rt *Runtime) OnClose(name string, fn func() error) {
	rt.closers = append(rt.closers, closer{name: name, fn: fn})
}

func (rt *Runtime) Close() error {
	var errs error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		c := rt.closers[i]
		if err := c.fn(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	rt.closers = nil
	return errs
}

// SignalContext is cancelled on SIGINT or SIGTERM and carries the process
// log fields.
func (rt *Runtime) SignalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	fields := map[string]any{
		"serviceKind": rt.Service,
		"instance":    instance.GetID(),
	}
	if rt.Config != nil {
		fields["env"] = rt.Config.App.Env
	}
	return rt.Logger.WithFields(ctx, fields), stop
}

// Exit closes the runtime and terminates the process. A context.Canceled
// run error counts as a clean shutdown.
func (rt *Runtime) Exit(runErr error) {
	os.Exit(rt.finish(runErr))
}

func (rt *Runtime) finish(runErr error) int {
	ctx := context.Background()
	code := 0
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		rt.Logger.Error(ctx, rt.Service+" stopped unexpectedly", runErr)
		code = 1
	}
	if err := rt.Close(); err != nil {
		rt.Logger.Error(ctx, "shutdown cleanup failed", err)
	}
	if code == 0 {
		rt.Logger.Info(ctx, rt.Service+" shut down gracefully")
	}
	return code
}
