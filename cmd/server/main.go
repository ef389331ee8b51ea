/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the fuel tax engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, then flags)
  2. Initialize logger
  3. Initialize store (Postgres when a DSN is set, otherwise SQLite)
  4. Load the active rate table (file or built-in)
  5. Create API handler and router
  6. Start the rate table reloader and the server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides TAXENGINE_PORT)
  -db      SQLite database path (overrides TAXENGINE_DB)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  TAXENGINE_PORT, TAXENGINE_DB, TAXENGINE_DATABASE_URL, TAXENGINE_ENV,
  TAXENGINE_RATE_TABLE, TAXENGINE_RATE_RELOAD_INTERVAL,
  TAXENGINE_UNKNOWN_JURISDICTION, TAXENGINE_BATCH_CONCURRENCY,
  TAXENGINE_ALLOWED_ORIGINS (see config/config.go)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the rate table reloader
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  # Run with in-memory database
  ./server -db=":memory:"

  # Run against Postgres with a quarterly rate file
  TAXENGINE_DATABASE_URL=postgres://localhost/tax \
  TAXENGINE_RATE_TABLE=./rates/2025Q1.yaml ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go, store/postgres/postgres.go: Store implementations
*/
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

	"github.com/haulfile/tax-engine/api"
	"github.com/haulfile/tax-engine/config"
	"github.com/haulfile/tax-engine/factory"
	"github.com/haulfile/tax-engine/generic"
	"github.com/haulfile/tax-engine/ifta"
	"github.com/haulfile/tax-engine/logging"
	"github.com/haulfile/tax-engine/store/postgres"
	"github.com/haulfile/tax-engine/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Flags
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()
	cfg.Port, cfg.DBPath = *port, *dbPath

	logger := logging.Must(cfg.IsProduction())
	defer logger.Sync()

	ctx := context.Background()

	// Initialize store
	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	// Active rate table
	active := ifta.DefaultRateTable(cfg.UnknownPolicy)
	var fileTable *generic.StaticRateTable
	if cfg.RateTablePath != "" {
		rf := factory.NewRateTableFactory()
		rf.DefaultPolicy = cfg.UnknownPolicy
		fileTable, err = rf.LoadFile(cfg.RateTablePath)
		if err != nil {
			logger.Fatal("failed to load rate table", zap.String("path", cfg.RateTablePath), zap.Error(err))
		}
	}

	handler := api.NewHandler(store, active, logger)
	handler.BatchConcurrency = cfg.BatchConcurrency

	if err := handler.LoadRateTables(ctx); err != nil {
		logger.Warn("failed to load stored rate tables", zap.Error(err))
	}
	if fileTable != nil {
		if err := handler.PublishRateTable(ctx, fileTable); err != nil {
			logger.Fatal("failed to store rate table", zap.Error(err))
		}
		handler.SetActive(fileTable)
	}

	reloader := api.NewRateTableReloader(handler, cfg.RateTablePath)
	reloader.CheckInterval = cfg.RateReload
	reloader.Start()

	router := api.NewRouter(handler, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("rate_table_id", string(handler.Active().ID())),
			zap.String("unknown_policy", string(handler.Active().Policy())),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	reloader.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("server stopped")
}

func openStore(ctx context.Context, cfg config.Config) (generic.Store, error) {
	if cfg.DatabaseURL != "" {
		return postgres.New(ctx, cfg.DatabaseURL)
	}
	return sqlite.New(cfg.DBPath)
}
