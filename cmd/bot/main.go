// Package main is the entry point of the LRO swing trading bot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/your-org/lro-swing-bot/internal/alert"
	"github.com/your-org/lro-swing-bot/internal/config"
	"github.com/your-org/lro-swing-bot/internal/csvwriter"
	"github.com/your-org/lro-swing-bot/internal/dbwriter"
	"github.com/your-org/lro-swing-bot/internal/engine"
	"github.com/your-org/lro-swing-bot/internal/http/handler"
	"github.com/your-org/lro-swing-bot/internal/metrics"
	"github.com/your-org/lro-swing-bot/pkg/logger"
)

// sweepInterval paces the background safety sweep that catches stale
// feeds and expired holds between ticks.
const sweepInterval = 30 * time.Second

func main() {
	// --- Configuration ---
	configPath := flag.String("config", "config/config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		// Sync flushes to stderr, which itself can fail on exit.
		_ = log.Sync()
	}()

	log.Info("swing bot starting",
		zap.String("config", *configPath),
		zap.String("pair", cfg.Pair),
		zap.String("mode", cfg.ExecutionMode),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Audit recorder ---
	recorder, err := buildRecorder(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize audit recorder", zap.Error(err))
	}
	defer recorder.Close()

	// --- Alerting ---
	var notifier alert.Notifier = alert.NewNoOpNotifier()
	if cfg.Alert.Enabled.Bool() {
		notifier = alert.NewLogNotifier(log)
	}
	defer func() { _ = notifier.Close() }()

	// --- Engine ---
	bot, err := engine.NewBot(cfg, recorder, notifier, metrics.New(prometheus.DefaultRegisterer), log)
	if err != nil {
		log.Fatal("failed to assemble bot", zap.Error(err))
	}

	// --- HTTP server ---
	var hub *handler.Hub
	if cfg.Server.EnableWS.Bool() {
		hub = handler.NewHub(log)
	}
	h := handler.NewBotHandler(bot, cfg.Server, hub, log)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.Server.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Background safety sweep ---
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				bot.Sweep(now)
			}
		}
	}()

	// --- Graceful shutdown ---
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.Info("shutdown signal received", zap.String("signal", sig.String()))

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
	if hub != nil {
		hub.Close()
	}
	log.Info("swing bot shut down")
}

// buildRecorder picks the audit sink: the TimescaleDB writer when
// recording is enabled and a database is configured, CSV files when a
// directory is set, otherwise the no-op recorder.
func buildRecorder(ctx context.Context, cfg *config.Config, log *zap.Logger) (dbwriter.Recorder, error) {
	if cfg.Recorder.Enabled.Bool() && cfg.Database.Host != "" {
		dsn := cfg.Database.DSN()
		if err := dbwriter.RunMigrations(dsn, cfg.Recorder.MigrationsDir, log); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect to audit database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping audit database: %w", err)
		}
		w, err := dbwriter.NewWriter(pool, cfg.Recorder, log)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return w, nil
	}
	if cfg.Recorder.CSVDir != "" {
		rec, err := csvwriter.NewRecorder(cfg.Recorder.CSVDir, log)
		if err != nil {
			return nil, fmt.Errorf("open csv recorder: %w", err)
		}
		return rec, nil
	}
	return dbwriter.NewDummy(log), nil
}
