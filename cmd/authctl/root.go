package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ErlanBelekov/authgate/config"
	ctxlog "github.com/ErlanBelekov/authgate/internal/log"
)

// NewRootCmd creates the root command for authctl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "authctl",
		Short:        "authgate operator tool",
		SilenceUsage: true,
	}

	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewPurgeCmd())

	return cmd
}

// newLogger sends logs to stderr so command output on stdout stays clean.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return ctxlog.New(cmd.ErrOrStderr(), cfg.Env, cfg.SlogLevel())
}
