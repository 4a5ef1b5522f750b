package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	Env      string `env:"ENV"       envDefault:"local" validate:"required,oneof=local staging production"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"  validate:"oneof=debug info warn error"`
	Port     string `env:"PORT"      envDefault:"3000"  validate:"required"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	JWTSecret string `env:"JWT_SECRET,required" validate:"required,min=32"`

	RateLimitRequests    int    `env:"RATE_LIMIT_REQUEST"  envDefault:"100"    validate:"min=1"`
	RateLimitDurationSec int    `env:"RATE_LIMIT_DURATION" envDefault:"60"     validate:"min=1"`
	RateLimitScope       string `env:"RATE_LIMIT_SCOPE"    envDefault:"global" validate:"oneof=global client"`
	RateLimitBackend     string `env:"RATE_LIMIT_BACKEND"  envDefault:"memory" validate:"oneof=memory redis"`
	RedisURL             string `env:"REDIS_URL"                               validate:"required_if=RateLimitBackend redis"`

	UserStore   string `env:"USER_STORE"   envDefault:"postgres" validate:"oneof=postgres memory"`
	DatabaseURL string `env:"DATABASE_URL"                       validate:"required_if=UserStore postgres"`

	BcryptCost  int `env:"BCRYPT_COST"  envDefault:"10" validate:"min=4,max=31"`
	HashWorkers int `env:"HASH_WORKERS" envDefault:"0"  validate:"min=0"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	ResendAPIKey       string `env:"RESEND_API_KEY"        validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom         string `env:"RESEND_FROM"           validate:"required_if=Env production,required_if=Env staging"`
	EmailVerifyBaseURL string `env:"EMAIL_VERIFY_BASE_URL" envDefault:"http://localhost:3000" validate:"url"`

	PurgeSchedule      string `env:"PURGE_SCHEDULE"       envDefault:"0 3 * * *" validate:"required,cron"`
	PurgeRetentionDays int    `env:"PURGE_RETENTION_DAYS" envDefault:"30"        validate:"min=1"`
}

// Load reads an optional .env file, then the process environment. A missing
// .env file is fine; a malformed one is not.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	v := validator.New()
	if err := v.RegisterValidation("cron", validateCron); err != nil {
		return nil, fmt.Errorf("register cron validation: %w", err)
	}
	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func validateCron(fl validator.FieldLevel) bool {
	_, err := cron.ParseStandard(fl.Field().String())
	return err == nil
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitDurationSec) * time.Second
}

func (c *Config) PurgeRetention() time.Duration {
	return time.Duration(c.PurgeRetentionDays) * 24 * time.Hour
}
