package main

import (
	"github.com/spf13/cobra"

	"github.com/MrEthical07/credauth/internal/config"
)

// NewRootCmd creates the root command for the credauth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credauth",
		Short: "credauth - credential authority administration",
		Long: `credauth manages the user registry and session table behind a
credential authority: schema migration, seeding and health checks.`,
		SilenceUsage: true,
	}

	defaults := config.Default()
	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("log.level", defaults.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log.format", defaults.Log.Format, "log format (json, text)")
	flags.String("redis.addr", defaults.Redis.Addr, "redis address")
	flags.String("store.driver", defaults.Store.Driver, "credential store driver (postgres, sqlite)")
	flags.String("store.dsn", defaults.Store.DSN, "credential store DSN or sqlite path")

	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}
