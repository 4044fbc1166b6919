/*
main.go - Overtime engine HTTP service

PURPOSE:
  Loads configuration, wires the ledger, the employee directory, the holiday
  provider and the engine, and serves the JSON API until SIGINT/SIGTERM.

STARTUP SEQUENCE:
  1. Load configuration (.env, config/overtime-server.yaml, OVERTIME_* env)
  2. Initialize the logger
  3. Open the SQLite database shared by ledger and directory
  4. Build the engine and the router
  5. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (server.shutdown_timeout)
  3. Close database connection

EXAMPLES:
  OVERTIME_DATABASE_PATH=./data/overtime.db \
  OVERTIME_HOLIDAYS_REGION=BY \
  OVERTIME_HOLIDAYS_FEED_URL=https://feiertage-api.de/api/ \
  ./server

SEE ALSO:
  - api/server.go: Router configuration
  - app/app.go: Dependency wiring
  - config/config.go: Configuration keys
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

	"github.com/warp/overtime-engine/api"
	"github.com/warp/overtime-engine/app"
	"github.com/warp/overtime-engine/config"
	"github.com/warp/overtime-engine/logger"
)

const serviceName = "overtime-server"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment, cfg.Log.Level)
	log.Info().Str("environment", cfg.Server.Environment).Msg("starting overtime server")

	a, err := app.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize engine")
	}
	defer a.Close()

	var refresher api.HolidayRefresher
	if a.HasFeed {
		refresher = a.Holidays
	}
	handler := api.NewHandler(a.Engine, a.Directory, refresher, log)
	router := api.NewRouter(handler, cfg.Server.AllowedOrigins)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  2 * cfg.Server.ReadTimeout,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
