/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the agency ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (flags > environment > .env > defaults)
  2. Build the zap logger
  3. Initialize SQLite store
  4. Wire metrics, ledger, billing service and API handler
  5. Optionally seed the agency-demo scenario
  6. Start the AMC sweeper and the HTTP server

COMMAND-LINE FLAGS:
  -port       HTTP server port (default: 8080)
  -db         SQLite database path (default: agency.db)
              Use ":memory:" for in-memory database
  -log-level  debug, info, warn, error (default: info)
  -seed-demo  Load the agency-demo scenario on startup
  -env-file   .env file to read (default: .env, missing is fine)

ENVIRONMENT:
  AGENCY_PORT, AGENCY_DB_PATH, AGENCY_LOG_LEVEL, AGENCY_LOG_FORMAT,
  AGENCY_CORS_ORIGINS, AGENCY_SEED_DEMO, AGENCY_AMC_SWEEP_INTERVAL.
  See config/config.go.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the AMC sweeper
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  # Run with file database
  ./server -db="./data/agency.db"

  # Throwaway demo instance
  ./server -db=":memory:" -seed-demo

SEE ALSO:
  - config/config.go: Configuration sources
  - api/server.go: Router configuration
  - api/scheduler.go: AMC sweeper
  - store/sqlite/sqlite.go: Database implementation
*/
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/warp/agency-ledger/api"
	"github.com/warp/agency-ledger/billing"
	"github.com/warp/agency-ledger/config"
	"github.com/warp/agency-ledger/ledger"
	"github.com/warp/agency-ledger/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := api.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	l := ledger.NewLedger(store, ledger.WithObserver(metrics.LedgerObserver()))
	svc := billing.NewService(store, l, billing.WithLogger(logger.Named("billing")))
	handler := api.NewHandler(svc, store, logger, metrics)

	if cfg.SeedDemo {
		if err := handler.ApplyScenario(context.Background(), "agency-demo"); err != nil {
			logger.Warn("failed to seed demo data", zap.Error(err))
		}
	}

	sweeper := api.NewAmcScheduler(svc, logger, metrics)
	sweeper.CheckInterval = cfg.AmcSweepInterval
	sweeper.Start()
	defer sweeper.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(handler, cfg.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("db", cfg.DBPath),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
