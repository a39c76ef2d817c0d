// Package main is the entry point for the settlement engine's governor
// server: the signer-only M-of-N governance surface, run as a separate
// process behind its own IP allowlist and port (spec §4.6).
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/streetconsensus/settlement/internal/config"
	"github.com/streetconsensus/settlement/internal/governor"
	"github.com/streetconsensus/settlement/internal/repository"
	"github.com/streetconsensus/settlement/internal/service"
)

func main() {
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting settlement engine governor server",
		"env", cfg.Server.Env, "port", cfg.Server.GovernorPort)

	db, err := sqlx.Connect("postgres", cfg.DB.DSN)
	if err != nil {
		logger.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	if err = db.Ping(); err != nil {
		logger.Error("database ping failed", "err", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	accountRepo := repository.NewAccountRepository(db)
	governanceRepo := repository.NewGovernanceRepository(db)
	paramsRepo := repository.NewParamsRepository(db)
	marketRepo := repository.NewMarketRepository(db)

	authSvc := service.NewAuthService(accountRepo, cfg)
	govSvc := service.NewGovernanceService(db, governanceRepo, paramsRepo, accountRepo, cfg.Governance.Quorum, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router := governor.SetupRouter(governor.Deps{
		AuthSvc:        authSvc,
		GovSvc:         govSvc,
		GovernanceRepo: governanceRepo,
		MarketRepo:     marketRepo,
		Cfg:            cfg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.GovernorPort,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("governor http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("governor server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("governor shutdown error", "err", err)
	}

	db.Close()
	logger.Info("governor server stopped cleanly")
}
