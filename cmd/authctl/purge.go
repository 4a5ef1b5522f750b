package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/ErlanBelekov/authgate/config"
	"github.com/ErlanBelekov/authgate/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/authgate/internal/maintenance"
)

// NewPurgeCmd creates the purge command.
func NewPurgeCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Permanently remove soft-deleted users now",
		Long: `Run one purge cycle immediately instead of waiting for the janitor's
schedule. Users soft-deleted more than PURGE_RETENTION_DAYS ago are removed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appCfg, err := config.Load()
			if err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}
			logger := newLogger(cmd, appCfg)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			pool, err := postgres.NewPool(ctx, appCfg.DatabaseURL, logger)
			if err != nil {
				return oops.Code("DB_CONNECT_FAILED").Wrap(err)
			}
			defer pool.Close()

			purger, err := maintenance.NewPurger(postgres.NewUserRepository(pool),
				appCfg.PurgeSchedule, appCfg.PurgeRetention(), logger)
			if err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}
			return runPurge(ctx, cmd.OutOrStdout(), purger)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall timeout")

	return cmd
}

type oncePurger interface {
	RunOnce(ctx context.Context) (int64, error)
}

func runPurge(ctx context.Context, out io.Writer, p oncePurger) error {
	n, err := p.RunOnce(ctx)
	if err != nil {
		return oops.Code("PURGE_FAILED").Wrap(err)
	}
	printf(out, "Purged %d user(s)\n", n)
	return nil
}

func printf(out io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(out, format, args...)
}
