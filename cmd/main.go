package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "crowdfund-escrow/internal/adapter/http"
	"crowdfund-escrow/internal/adapter/memory"
	"crowdfund-escrow/internal/adapter/postgres"
	"crowdfund-escrow/internal/adapter/rabbitmq"
	"crowdfund-escrow/internal/adapter/usecase"
	"crowdfund-escrow/internal/config"
	"crowdfund-escrow/internal/core/port"
	"crowdfund-escrow/internal/db"
)

// main is the entry point of the escrow service. It loads configuration,
// picks a campaign store, optionally runs database migrations, connects the
// event publisher and starts the HTTP server. On receiving a termination
// signal it gracefully shuts down the server.
func main() {
	exitCode := 1
	defer func() {
		if r := recover(); r != nil {
			panic(r)
		} else {
			os.Exit(exitCode)
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		return
	}

	logger := slog.New(cfg.Log.Handler(os.Stdout)).With(slog.String("env", cfg.Env))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var repo port.CampaignRepository
	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("using in-memory storage; state is lost on restart")
		repo = memory.NewCampaignRepository()
	default:
		if cfg.Psql.RunMigrations {
			if err = db.Migrate(cfg.Psql.Addr.String()); err != nil {
				logger.Error("migration error", slog.Any("error", err))
				return
			}
			logger.Info("migrations applied successfully")
		}

		pool, err := db.NewPostgresPool(ctx, cfg.Psql)
		if err != nil {
			logger.Error("database connection error", slog.Any("error", err))
			return
		}
		defer pool.Close()
		repo = postgres.NewCampaignRepository(pool)
	}

	if cfg.Seed {
		id, err := db.Seed(ctx, repo)
		if err != nil {
			logger.Error("seed error", slog.Any("error", err))
			return
		}
		logger.Info("demo campaign seeded", slog.String("campaign_id", id.String()))
	}

	var events port.EventPublisher = rabbitmq.NopPublisher{Logger: logger}
	if cfg.AMQP.URL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			logger.Warn("rabbitmq unavailable, events will be dropped", slog.Any("error", err))
		} else {
			events = pub
		}
	}
	defer events.Close()

	svc := usecase.NewCampaignUseCase(repo, events, logger)
	handler := httpadapter.NewHandler(svc, logger, httpadapter.Options{
		AuthSecret:     []byte(cfg.Auth.Secret),
		AuthIssuer:     cfg.Auth.Issuer,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: handler.Router(),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.Int("port", int(cfg.HTTP.Port)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err = <-serveErr:
		logger.Error("server error", slog.Any("error", err))
		return
	case <-ctx.Done():
		exitCode = 0
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer stop()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		exitCode = 1
	} else {
		logger.Info("server gracefully stopped")
	}
}
