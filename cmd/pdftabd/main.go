package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pdftablepro/pdftab/internal/auth"
	"github.com/pdftablepro/pdftab/internal/common"
	"github.com/pdftablepro/pdftab/internal/extract"
	"github.com/pdftablepro/pdftab/internal/repository"
	"github.com/pdftablepro/pdftab/internal/security"
	"github.com/pdftablepro/pdftab/internal/server"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := common.LoadConfig()
	logger, closeLog := common.SetupLogger(cfg.Logging.File, cfg.Logging.Level)
	defer func() { _ = closeLog() }()

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := extract.NewClient(cfg.Extraction.Endpoint, logger,
		extract.WithTimeout(cfg.Extraction.Timeout),
		extract.WithResponseValidation(cfg.Extraction.ValidateResponse),
	)
	if err != nil {
		logger.Error("failed to build extraction client", "error", err)
		os.Exit(1)
	}

	store, err := security.NewFileStore(cfg.Storage.UploadDir, cfg.Storage.FileExpiry, logger)
	if err != nil {
		logger.Error("failed to open upload store", "error", err)
		os.Exit(1)
	}
	store.StartJanitor(ctx, 5*time.Minute)

	opts := []server.Option{
		server.WithAllowedOrigins(cfg.Server.AllowedOrigins),
	}

	if cfg.Auth.JWTSecret != "" {
		verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret)
		if err != nil {
			logger.Error("failed to build verifier", "error", err)
			os.Exit(1)
		}
		opts = append(opts, server.WithVerifier(verifier))
	}

	if cfg.Database.DSN != "" {
		pool, err := repository.Open(ctx, repository.Config{
			DSN:             cfg.Database.DSN,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
			DialTimeout:     cfg.Database.DialTimeout,
		}, logger)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer repository.Close(pool, logger)

		if err := repository.HealthCheck(ctx, pool, 5*time.Second, logger); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
		opts = append(opts, server.WithProfiles(repository.NewProfileRepository(pool, logger)))
	}

	if cfg.Storage.FeedbackDB != "" {
		feedback, err := repository.NewFeedbackRepository(cfg.Storage.FeedbackDB, logger)
		if err != nil {
			logger.Error("failed to open feedback store", "error", err)
			os.Exit(1)
		}
		defer func() { _ = feedback.Close() }()
		opts = append(opts, server.WithFeedback(feedback))
	}

	srv := server.New(cfg.Server.Addr, client, store, logger, opts...)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
			os.Exit(1)
		}
	}
}
