package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/finbridge/payment-gateway/internal/config"
	"github.com/finbridge/payment-gateway/internal/handler"
	"github.com/finbridge/payment-gateway/internal/ledger"
	"github.com/finbridge/payment-gateway/internal/logging"
	"github.com/finbridge/payment-gateway/internal/notify"
	"github.com/finbridge/payment-gateway/internal/server"
	"github.com/finbridge/payment-gateway/internal/service"
	"github.com/finbridge/payment-gateway/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("payment-gateway", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, db, err := buildStore(cfg)
	if err != nil {
		slog.Error("failed to initialize ledger store", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	deduper, err := buildDeduper(ctx, cfg, db)
	if err != nil {
		slog.Error("failed to initialize event deduper", "error", err)
		os.Exit(1)
	}

	notifier := notify.New(cfg.CallbackWorkers, cfg.CallbackBufferSize,
		time.Duration(cfg.CallbackTimeoutMs)*time.Millisecond, logger)
	notifier.Start(ctx)

	led := ledger.New(store, logger)
	led.OnTransition(notifier.Enqueue)

	payins := service.NewPayinService(led)
	payouts := service.NewPayoutService(led)
	refunds := service.NewRefundService(led)

	verifier := webhook.NewVerifier(cfg.WebhookSecret)
	applier := webhook.NewApplier(led, logger)

	srv := server.New(cfg,
		handler.NewPayinHandler(payins, refunds),
		handler.NewPayoutHandler(payouts),
		handler.NewWebhookHandler(verifier, deduper, applier),
	)

	go func() {
		if err := srv.Run(); err != nil {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// buildStore picks the ledger backend: postgres when DATABASE_URL is
// set, otherwise the in-memory arena.
func buildStore(cfg *config.Config) (ledger.Store, *sql.DB, error) {
	if cfg.DatabaseURL == "" {
		slog.Info("using in-memory ledger store")
		return ledger.NewMemoryStore(), nil, nil
	}

	db, err := connectDB(cfg)
	if err != nil {
		return nil, nil, err
	}

	if err := ledger.Migrate(db); err != nil {
		db.Close()
		return nil, nil, err
	}

	slog.Info("using postgres ledger store")
	return ledger.NewPostgresStore(db), db, nil
}

// buildDeduper prefers redis, then postgres, then process memory.
func buildDeduper(ctx context.Context, cfg *config.Config, db *sql.DB) (webhook.Deduper, error) {
	window := time.Duration(cfg.EventReplayWindowS) * time.Second

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("buildDeduper: redis ping: %w", err)
		}
		slog.Info("using redis event deduper", "addr", cfg.RedisAddr)
		return webhook.NewRedisDeduper(client, window), nil
	}

	if db != nil {
		slog.Info("using postgres event deduper")
		return webhook.NewPostgresDeduper(db), nil
	}

	slog.Info("using in-memory event deduper")
	return webhook.NewMemoryDeduper(window), nil
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connectDB: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeS) * time.Second)

	for i := range 30 {
		if err = db.Ping(); err == nil {
			return db, nil
		}
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}

	db.Close()
	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", err)
}
