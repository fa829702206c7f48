package main

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/credauth"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the user registry with initial accounts",
		Long: `Registers the users listed under seed.users in the config file, or the
built-in development account when none are configured.
This command is idempotent - existing usernames are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")

	return cmd
}

func runSeed(cmd *cobra.Command, timeout time.Duration) error {
	// cmd.Context() carries SIGINT/SIGTERM cancellation.
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	cmd.Println("Connecting to credential store...")
	d, err := openDeps(ctx, cmd)
	if err != nil {
		return err
	}
	defer d.close()

	engine, err := d.engine()
	if err != nil {
		return err
	}
	defer engine.Close()

	users := d.cfg.Seed.Users
	if len(users) == 0 {
		users = credauth.DefaultSeedUsers()
	}

	report, err := engine.Seed(ctx, users)
	if err != nil {
		return err
	}

	if len(report.Created) > 0 {
		cmd.Printf("Created users: %s\n", strings.Join(report.Created, ", "))
	}
	if len(report.Skipped) > 0 {
		cmd.Printf("Already present, skipped: %s\n", strings.Join(report.Skipped, ", "))
	}
	d.logger.Info("seed complete", "created", len(report.Created), "skipped", len(report.Skipped))

	cmd.Println("Seeding complete!")
	return nil
}
