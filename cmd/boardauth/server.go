package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lborres/boardauth"
	fiberadapter "github.com/lborres/boardauth/adapters/fiber"
	"github.com/lborres/boardauth/adapters/memory"
	pgxadapter "github.com/lborres/boardauth/adapters/pgx"
	sqliteadapter "github.com/lborres/boardauth/adapters/sqlite"
	"github.com/lborres/boardauth/core"
	"github.com/lborres/boardauth/internal/config"
	"github.com/lborres/boardauth/pkg/logger"
	"github.com/lborres/boardauth/pkg/statestore"
	"github.com/lborres/boardauth/provider"
	"github.com/lborres/boardauth/provider/kakao"
)

const shutdownTimeout = 10 * time.Second

func serve(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.Named("server")

	directory, closeDirectory, err := openDirectory(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeDirectory()

	states, err := statestore.New(statestore.Config{
		Driver:    cfg.State.Driver,
		TTL:       cfg.State.TTL,
		RedisAddr: cfg.State.RedisAddr,
		RedisDB:   cfg.State.RedisDB,
		RedisPass: cfg.State.RedisPass,
		KeyPrefix: cfg.State.KeyPrefix,
	})
	if err != nil {
		return err
	}
	if c, ok := states.(io.Closer); ok {
		defer c.Close()
	}

	providers, err := buildProviders(cfg.Kakao)
	if err != nil {
		return err
	}

	app := newApp()

	opts := []boardauth.Option{boardauth.WithLogger(logger.L())}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, boardauth.WithMetrics(reg))
		app.Get(cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	http := fiberadapter.New(app,
		fiberadapter.WithStateStore(states, cfg.State.TTL),
		fiberadapter.WithSecureCookies(cfg.HTTP.SecureCookies),
		fiberadapter.WithLogger(logger.L()),
	)

	if _, err := boardauth.New(boardauth.Config{
		Directory: directory,
		HTTP:      http,
		Providers: providers,
		BasePath:  cfg.HTTP.BasePath,
	}, opts...); err != nil {
		return fmt.Errorf("failed to configure boardauth: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening",
			zap.String("addr", cfg.HTTP.Addr),
			zap.String("db_driver", cfg.Database.Driver),
			zap.Strings("providers", providers.IDs()),
		)
		errCh <- app.Listen(cfg.HTTP.Addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	}
}

// newApp returns the fiber app with a handler panic turned into a 500
// instead of a crashed process.
func newApp() *fiber.App {
	app := fiber.New(fiber.Config{AppName: "boardauth " + version})
	app.Use(recoverer.New())
	return app
}

// openDirectory returns the account store selected by the database driver
// and a func that releases it.
func openDirectory(ctx context.Context, db config.Database) (core.AccountStore, func(), error) {
	switch db.Driver {
	case config.DriverPostgres:
		pool, err := pgxadapter.Connect(ctx, db.DSN)
		if err != nil {
			return nil, nil, err
		}
		return pgxadapter.New(pool), pool.Close, nil

	case config.DriverSQLite:
		store, err := sqliteadapter.Open(db.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil

	case config.DriverMemory:
		return memory.New(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", db.Driver)
	}
}

// buildProviders registers Kakao with a full OAuth2 client when credentials
// are configured, and parser-only otherwise.
func buildProviders(k config.Kakao) (*provider.Registry, error) {
	reg := provider.NewRegistry()
	if !k.Enabled() {
		return reg, reg.RegisterParser(kakao.RegistrationID, kakao.Parser{})
	}
	if err := reg.Register(kakao.Registration(k.ClientID, k.ClientSecret, k.RedirectURL, k.Scopes...)); err != nil {
		return nil, err
	}
	return reg, nil
}

func migrateUp(cfg config.Config) error {
	log := logger.Named("migrate")

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		if err := pgxadapter.RunMigrations(cfg.Database.DSN); err != nil {
			return err
		}
	case config.DriverSQLite:
		// Open applies the embedded migrations.
		store, err := sqliteadapter.Open(cfg.Database.DSN)
		if err != nil {
			return err
		}
		if err := store.Close(); err != nil {
			return err
		}
	case config.DriverMemory:
		log.Info("memory driver has no schema")
		return nil
	default:
		return errors.New("unknown database driver " + cfg.Database.Driver)
	}

	log.Info("migrations applied", zap.String("db_driver", cfg.Database.Driver))
	return nil
}
