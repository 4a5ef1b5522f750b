package main

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/ErlanBelekov/authgate/config"
	"github.com/ErlanBelekov/authgate/internal/domain"
	"github.com/ErlanBelekov/authgate/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/authgate/internal/password"
	"github.com/ErlanBelekov/authgate/internal/repository"
)

const seedEmail = "seed@test.local"

type seedConfig struct {
	email    string
	password string
	role     string
	timeout  time.Duration
}

// NewSeedCmd creates the seed command.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a user for local testing",
		Long: `Create a user directly in the database, bypassing registration and the
verification email. Re-running with an existing email is a no-op.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appCfg, err := config.Load()
			if err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
			defer cancel()

			pool, err := postgres.NewPool(ctx, appCfg.DatabaseURL, newLogger(cmd, appCfg))
			if err != nil {
				return oops.Code("DB_CONNECT_FAILED").Wrap(err)
			}
			defer pool.Close()

			return runSeed(ctx, cmd.OutOrStdout(),
				postgres.NewUserRepository(pool),
				password.NewPolicy(),
				password.NewHasher(appCfg.BcryptCost, 1),
				cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.email, "email", seedEmail, "email of the seed user")
	cmd.Flags().StringVar(&cfg.password, "password", "Seed1234!", "password of the seed user")
	cmd.Flags().StringVar(&cfg.role, "role", string(domain.RoleUser), "role of the seed user (user or admin)")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", 30*time.Second, "overall timeout")

	return cmd
}

type seedHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
}

func runSeed(ctx context.Context, out io.Writer, users repository.UserRepository, policy *password.Policy, hasher seedHasher, cfg *seedConfig) error {
	role := domain.Role(cfg.role)
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return oops.Code("INVALID_ROLE").With("role", cfg.role).Errorf("role must be %q or %q", domain.RoleUser, domain.RoleAdmin)
	}
	if err := policy.Validate(cfg.password); err != nil {
		return oops.Code("INVALID_PASSWORD").Wrap(err)
	}
	email := strings.ToLower(strings.TrimSpace(cfg.email))

	hash, err := hasher.Hash(ctx, cfg.password)
	if err != nil {
		return oops.Code("HASH_FAILED").Wrap(err)
	}

	user, err := users.Create(ctx, repository.CreateUserInput{Email: email, PasswordHash: hash, Role: role})
	if errors.Is(err, domain.ErrUserAlreadyExists) {
		printf(out, "Seed user %s already exists, nothing to do\n", email)
		return nil
	}
	if err != nil {
		return oops.Code("SEED_FAILED").With("email", email).Wrap(err)
	}

	printf(out, "Seed complete\n\n")
	printf(out, "  User:    %s\n", user.Email)
	printf(out, "  User ID: %d\n", user.ID)
	printf(out, "  Role:    %s\n\n", user.Role)
	printf(out, "Log in with:\n\n")
	printf(out, "  curl -s -X POST http://localhost:3000/auth/login \\\n")
	printf(out, "    -H 'Content-Type: application/json' \\\n")
	printf(out, "    -d '{\"email\":\"%s\",\"password\":\"<password>\"}'\n", user.Email)
	return nil
}
