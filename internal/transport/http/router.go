package httptransport

import (
	"log/slog"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"

	"github.com/ErlanBelekov/authgate/internal/ratelimit"
	"github.com/ErlanBelekov/authgate/internal/token"
	"github.com/ErlanBelekov/authgate/internal/transport/http/handler"
	"github.com/ErlanBelekov/authgate/internal/transport/http/middleware"
)

// RateLimit selects the limiter and how requests are bucketed.
type RateLimit struct {
	Limiter *ratelimit.Limiter
	Key     middleware.KeyFunc
}

func NewRouter(
	logger *slog.Logger,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	tokens *token.Service,
	limit RateLimit,
	corsOrigins []string,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(cors.New(corsConfig(corsOrigins)))
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.RateLimit(limit.Limiter, limit.Key, logger))

	r.GET("/health", handler.Health)

	auth := r.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/register", authHandler.Register)
	auth.GET("/verify-email", authHandler.VerifyEmail)

	authMW := middleware.Auth(tokens)

	r.GET("/protected", authMW, handler.Protected)

	users := r.Group("/users", authMW)
	users.GET("", userHandler.List)
	users.GET("/:id", userHandler.Get)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	cfg.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"}
	return cfg
}
