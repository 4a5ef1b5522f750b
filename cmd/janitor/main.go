// janitor permanently removes users that were soft-deleted longer ago than
// PURGE_RETENTION_DAYS, on the PURGE_SCHEDULE cron schedule.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ErlanBelekov/authgate/config"
	"github.com/ErlanBelekov/authgate/internal/health"
	"github.com/ErlanBelekov/authgate/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/authgate/internal/log"
	"github.com/ErlanBelekov/authgate/internal/maintenance"
	"github.com/ErlanBelekov/authgate/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.UserStore != "postgres" {
		log.Fatalf("config: janitor needs USER_STORE=postgres, got %q", cfg.UserStore)
	}

	logger := ctxlog.New(os.Stdout, cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	logger.Info("db connected")

	metrics.Register()
	checker := health.NewChecker(map[string]health.Pinger{"postgres": pool}, logger, prometheus.DefaultRegisterer)

	purger, err := maintenance.NewPurger(postgres.NewUserRepository(pool), cfg.PurgeSchedule, cfg.PurgeRetention(), logger)
	if err != nil {
		stop()
		log.Fatalf("purger: %v", err)
	}
	go purger.Start(ctx)

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	logger.Info("janitor shut down")
}
