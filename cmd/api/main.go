package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cimillas/eventapi/internal/app"
	"github.com/cimillas/eventapi/internal/auth"
	"github.com/cimillas/eventapi/internal/clock"
	"github.com/cimillas/eventapi/internal/config"
	"github.com/cimillas/eventapi/internal/messaging/kafka"
	"github.com/cimillas/eventapi/internal/observability"
	"github.com/cimillas/eventapi/internal/storage/memory"
	"github.com/cimillas/eventapi/internal/storage/postgres"
	transporthttp "github.com/cimillas/eventapi/internal/transport/http"
	"github.com/cimillas/eventapi/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const startupTimeout = 5 * time.Second

type eventStore interface {
	app.LedgerRepository
	app.EventRepository
}

type userStore interface {
	app.UserRepository
	auth.UserLookup
}

func main() {
	fs := pflag.NewFlagSet("eventapi", pflag.ExitOnError)
	flags := config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	// Bootstrap logger until the configured one exists.
	boot, _ := zap.NewProduction()
	config.LoadEnvFile(boot)

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		boot.Fatal("load config", zap.Error(err))
	}
	flags.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		boot.Fatal("invalid config", zap.Error(err))
	}
	_ = boot.Sync()

	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		boot.Fatal("build logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	startupCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	shutdownTracing, err := observability.SetupTracing(startupCtx, observability.TracingConfig{
		Endpoint:   cfg.Otel.Endpoint,
		URLPath:    cfg.Otel.URLPath,
		Insecure:   cfg.Otel.Insecure,
		AuthHeader: cfg.Otel.AuthHeader,
	})
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	var (
		events eventStore
		users  userStore
	)
	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		store := memory.NewStore()
		events, users = store, store
	case config.StoragePostgres:
		pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to db: %w", err)
		}
		defer pool.Close()

		if err := pool.Ping(startupCtx); err != nil {
			return fmt.Errorf("db ping: %w", err)
		}
		applied, err := migrations.Apply(startupCtx, pool)
		if err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		for _, name := range applied {
			logger.Info("applied migration", zap.String("name", name))
		}
		events, users = postgres.NewEventRepository(pool), postgres.NewUserRepository(pool)
	default:
		return fmt.Errorf("unknown storage %q", cfg.Storage)
	}

	clk := clock.NewSystem()
	tokens := auth.NewTokens(cfg.JWT.Secret, clk,
		auth.WithAccessTTL(cfg.JWT.AccessTTL),
		auth.WithRefreshTTL(cfg.JWT.RefreshTTL),
	)

	purchaseOpts := []app.PurchaseServiceOption{app.WithPurchaseLogger(logger)}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := kafka.NewPublisher(kafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), logger)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("close kafka publisher", zap.Error(err))
			}
		}()
		purchaseOpts = append(purchaseOpts, app.WithPublisher(publisher))
		logger.Info("publishing purchases to kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	ledger := app.NewLedger(events, clk, app.WithLedgerLogger(logger))
	handler := transporthttp.NewRouter(transporthttp.RouterDeps{
		ServiceName: observability.ServiceName,
		Accounts:    app.NewUserService(users, tokens, clk),
		Events:      app.NewEventService(events, clk),
		Purchases:   app.NewPurchaseService(ledger, purchaseOpts...),
		Resolver:    auth.NewAuthenticator(tokens, users),
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: cfg.RequestTimeout,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout,
	}

	logger.Info("api listening",
		zap.String("port", cfg.Port),
		zap.String("storage", cfg.Storage),
	)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}
