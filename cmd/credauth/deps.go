package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/credauth"
	"github.com/MrEthical07/credauth/credstore/postgres"
	"github.com/MrEthical07/credauth/credstore/sqlite"
	"github.com/MrEthical07/credauth/internal/config"
	"github.com/MrEthical07/credauth/logging"
)

// deps holds what a subcommand needs. Call close when done.
type deps struct {
	cfg    config.Config
	logger *slog.Logger
	store  credauth.CredentialStore
	redis  *redis.Client

	closers []func()
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(path, cmd.Flags())
}

func newLogger(cmd *cobra.Command, cfg config.Config) *slog.Logger {
	return logging.Setup("credauth", version, cfg.Log.Format, logging.ParseLevel(cfg.Log.Level), cmd.ErrOrStderr())
}

// openStore connects to the configured credential store and brings its
// schema up to date.
func openStore(ctx context.Context, cfg config.Config) (credauth.CredentialStore, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		store := postgres.New(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return store, pool.Close, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

func newRedis(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func openDeps(ctx context.Context, cmd *cobra.Command) (*deps, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	d := &deps{cfg: cfg, logger: newLogger(cmd, cfg)}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	d.store = store
	d.closers = append(d.closers, closeStore)

	d.redis = newRedis(cfg)
	d.closers = append(d.closers, func() { _ = d.redis.Close() })
	return d, nil
}

func (d *deps) engine() (*credauth.Engine, error) {
	engine, err := credauth.New().
		WithConfig(d.cfg.Engine()).
		WithRedis(d.redis).
		WithCredentialStore(d.store).
		WithLogger(d.logger).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	return engine, nil
}

func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}
