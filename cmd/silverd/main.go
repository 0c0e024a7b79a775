// Command silverd keeps a silver ledger database migrated and backed up. It
// serves Prometheus metrics and a health check, and exports every ledger
// table to CSV on a cron schedule.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/silverledger/internal/config"
	"github.com/mmynk/silverledger/internal/export"
	"github.com/mmynk/silverledger/internal/metrics"
	"github.com/mmynk/silverledger/internal/storage/backend"
	"github.com/mmynk/silverledger/pkg/logging"
)

const shutdownTimeout = 30 * time.Second

// pinger is the store's health check.
type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, err := backend.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	logger.Info("Storage initialized", "driver", cfg.DBDriver, "database", cfg.DBPath)

	reg := metrics.NewRegistry()
	m := metrics.New(reg)

	var scheduler *export.Scheduler
	if cfg.ExportSchedule != "" {
		exporter := export.NewExporter(store, cfg.ExportDir, export.WithLogger(logger))
		scheduler, err = export.NewScheduler(exporter, cfg.ExportSchedule, m, logger)
		if err != nil {
			return err
		}
		scheduler.Start()
		logger.Info("Export schedule started", "schedule", cfg.ExportSchedule, "dir", cfg.ExportDir)
	}

	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           loggingMiddleware(logger, m.InstrumentHandler(newMux(store, reg))),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Metrics server starting", "address", cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Metrics server shutdown", "error", err)
	}
	if scheduler != nil {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			logger.Warn("Export still running at shutdown", "error", err)
		}
	}
	return nil
}

func newMux(store pinger, reg prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler(reg))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok\n"))
	})
	return mux
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		logger.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
