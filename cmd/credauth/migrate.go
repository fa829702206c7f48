package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

const defaultMigrateTimeout = 30 * time.Second

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the credential store schema",
		Long:  `Create the users and claims tables in the configured credential store if they do not exist.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, timeout)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", defaultMigrateTimeout, "timeout for database operations (e.g., 30s, 1m)")

	return cmd
}

func runMigrate(cmd *cobra.Command, timeout time.Duration) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	cmd.Println("Running migrations...")
	_, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	closeStore()

	cmd.Println("Migrations completed successfully")
	return nil
}
