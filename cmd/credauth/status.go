package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const defaultStatusTimeout = 5 * time.Second

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the credential store and session table",
		Long:  `Connect to the configured credential store and Redis, and report Redis round-trip latency.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, timeout)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", defaultStatusTimeout, "timeout for health checks")

	return cmd
}

func runStatus(cmd *cobra.Command, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

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

	latency, err := engine.Ping(ctx)
	if err != nil {
		return fmt.Errorf("session table: %w", err)
	}

	cmd.Printf("credential store: ok (%s)\n", d.cfg.Store.Driver)
	cmd.Printf("session table: ok (%s)\n", latency.Round(time.Microsecond))
	return nil
}
