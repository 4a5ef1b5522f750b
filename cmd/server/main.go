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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ErlanBelekov/authgate/config"
	"github.com/ErlanBelekov/authgate/internal/email"
	"github.com/ErlanBelekov/authgate/internal/health"
	"github.com/ErlanBelekov/authgate/internal/infrastructure/memory"
	"github.com/ErlanBelekov/authgate/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/authgate/internal/infrastructure/redisstore"
	ctxlog "github.com/ErlanBelekov/authgate/internal/log"
	"github.com/ErlanBelekov/authgate/internal/maintenance"
	"github.com/ErlanBelekov/authgate/internal/metrics"
	"github.com/ErlanBelekov/authgate/internal/password"
	"github.com/ErlanBelekov/authgate/internal/ratelimit"
	"github.com/ErlanBelekov/authgate/internal/repository"
	"github.com/ErlanBelekov/authgate/internal/token"
	httptransport "github.com/ErlanBelekov/authgate/internal/transport/http"
	"github.com/ErlanBelekov/authgate/internal/transport/http/handler"
	"github.com/ErlanBelekov/authgate/internal/transport/http/middleware"
	"github.com/ErlanBelekov/authgate/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := ctxlog.New(os.Stdout, cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	deps := map[string]health.Pinger{}

	// Users
	var users repository.UserRepository
	switch cfg.UserStore {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			stop()
			log.Fatalf("db: %v", err)
		}
		defer pool.Close()
		users = postgres.NewUserRepository(pool)
		deps["postgres"] = pool
	default:
		logger.Warn("using in-memory user store; users are lost on restart")
		memUsers := memory.NewUserRepository()
		users = memUsers

		// No other process can reach this store, so purge in-process.
		purger, err := maintenance.NewPurger(memUsers, cfg.PurgeSchedule, cfg.PurgeRetention(), logger)
		if err != nil {
			stop()
			log.Fatalf("purger: %v", err)
		}
		go purger.Start(ctx)
	}

	// Rate limiting
	var store ratelimit.Store
	switch cfg.RateLimitBackend {
	case "redis":
		rdb, err := redisstore.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			stop()
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		store = redisstore.NewWindowStore(rdb)
		deps["redis"] = redisstore.NewPinger(rdb)
	default:
		memStore := ratelimit.NewMemoryStore()
		defer memStore.Close()
		store = memStore
	}

	limiter, err := ratelimit.New(store, cfg.RateLimitRequests, cfg.RateLimitWindow())
	if err != nil {
		stop()
		log.Fatalf("rate limiter: %v", err)
	}
	limitKey := middleware.GlobalKey
	if cfg.RateLimitScope == "client" {
		limitKey = middleware.ClientIPKey
	}

	// Credentials
	tokens, err := token.NewService([]byte(cfg.JWTSecret))
	if err != nil {
		stop()
		log.Fatalf("token service: %v", err)
	}
	policy := password.NewPolicy()
	hasher := password.NewHasher(cfg.BcryptCost, cfg.HashWorkers)

	sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
	mailer := email.NewVerificationMailer(sender, cfg.EmailVerifyBaseURL)

	authUsecase := usecase.NewAuthUsecase(users, policy, hasher, tokens, mailer, logger)
	authHandler := handler.NewAuthHandler(authUsecase, logger)

	userUsecase := usecase.NewUserUsecase(users, policy, hasher, tokens, mailer, logger)
	userHandler := handler.NewUserHandler(userUsecase, logger)

	metrics.Register()
	checker := health.NewChecker(deps, logger, prometheus.DefaultRegisterer)

	srv := http.Server{
		Addr: ":" + cfg.Port,
		Handler: httptransport.NewRouter(
			logger,
			authHandler,
			userHandler,
			tokens,
			httptransport.RateLimit{Limiter: limiter, Key: limitKey},
			cfg.CORSAllowedOrigins,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port,
			"user_store", cfg.UserStore,
			"rate_limit", cfg.RateLimitRequests,
			"rate_limit_window", cfg.RateLimitWindow(),
			"rate_limit_scope", cfg.RateLimitScope,
			"rate_limit_backend", cfg.RateLimitBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}
