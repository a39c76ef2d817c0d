// Package main is the entry point for the settlement engine's public API
// server. It wires together every repository and service and starts the
// HTTP server alongside the WebSocket hub and background scheduler.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/streetconsensus/settlement/internal/api"
	"github.com/streetconsensus/settlement/internal/config"
	"github.com/streetconsensus/settlement/internal/events"
	"github.com/streetconsensus/settlement/internal/repository"
	"github.com/streetconsensus/settlement/internal/scheduler"
	"github.com/streetconsensus/settlement/internal/service"
	"github.com/streetconsensus/settlement/internal/ws"
)

func main() {
	// ── 1. Config + logger ──────────────────────────────────────────────────
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting settlement engine server", "env", cfg.Server.Env, "port", cfg.Server.Port)

	// ── 2. Database ──────────────────────────────────────────────────────────
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

	// ── 3. Migrations ────────────────────────────────────────────────────────
	if err = runMigrations(db, "migrations"); err != nil {
		logger.Error("migrations failed", "err", err)
		os.Exit(1)
	}
	logger.Info("migrations applied")

	// ── 4. Repositories ──────────────────────────────────────────────────────
	accountRepo := repository.NewAccountRepository(db)
	marketRepo := repository.NewMarketRepository(db)
	positionRepo := repository.NewPositionRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	paramsRepo := repository.NewParamsRepository(db)
	eventsStore := events.NewStore(db)

	// ── 5. Services (order matters for injection) ────────────────────────────
	authSvc := service.NewAuthService(accountRepo, cfg)

	marketSvc := service.NewMarketService(db, marketRepo, positionRepo, ledgerRepo, paramsRepo, logger)
	resolutionSvc := service.NewResolutionService(db, marketRepo, positionRepo, ledgerRepo, paramsRepo, logger)
	ledgerSvc := service.NewLedgerService(db.DB, ledgerRepo, logger)
	viewSvc := service.NewViewService(db, marketRepo, paramsRepo)

	// ── 6. WebSocket hub ──────────────────────────────────────────────────────
	jwtSecret := []byte(cfg.JWT.AccessSecret)
	hub := ws.NewHub(jwtSecret, cfg.Server.AllowedOrigins)

	// Wire the hub into every service that broadcasts settlement events.
	// GovernanceService runs in cmd/governor, which has no hub; its events
	// reach WS clients only through the scheduler's event-log tail.
	marketSvc.SetBroadcaster(hub)
	resolutionSvc.SetBroadcaster(hub)

	// ── 7. Root context + signal handling ────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 8. Start WS hub ───────────────────────────────────────────────────────
	go hub.Run()
	logger.Info("websocket hub started")

	// ── 9. Scheduler ──────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(marketRepo, eventsStore, hub, logger)
	sched.Start(ctx)

	// ── 10. HTTP router ───────────────────────────────────────────────────────
	router := api.SetupRouter(api.RouterDeps{
		AuthSvc:       authSvc,
		MarketSvc:     marketSvc,
		ResolutionSvc: resolutionSvc,
		LedgerSvc:     ledgerSvc,
		ViewSvc:       viewSvc,
		Hub:           hub,
		Cfg:           cfg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── 11. Start server ──────────────────────────────────────────────────────
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			stop() // trigger graceful shutdown
		}
	}()

	// ── 12. Graceful shutdown ─────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutdown signal received, draining connections…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "err", err)
	}

	db.Close()
	logger.Info("server stopped cleanly")
}

// runMigrations reads all *.sql files from dir, sorted by name, and executes
// them sequentially. Idempotent: SQL files should use IF NOT EXISTS / ON CONFLICT.
func runMigrations(db *sqlx.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("runMigrations: read dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("runMigrations: read %q: %w", f, err)
		}
		if _, err = db.Exec(string(data)); err != nil {
			return fmt.Errorf("runMigrations: exec %q: %w", f, err)
		}
		slog.Info("migration applied", "file", filepath.Base(f))
	}
	return nil
}
