// Package config loads the credauth command's configuration from a YAML
// file and command-line flags. Flags override the file; both override the
// built-in defaults.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/MrEthical07/credauth"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type Redis struct {
	Addr     string `koanf:"addr"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type Store struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

type Session struct {
	Prefix     string        `koanf:"prefix"`
	ShortLived time.Duration `koanf:"short_lived"`
	LongLived  time.Duration `koanf:"long_lived"`
}

type Password struct {
	Memory      uint32 `koanf:"memory"`
	Time        uint32 `koanf:"time"`
	Parallelism uint8  `koanf:"parallelism"`
}

type Policy struct {
	MinLength              int  `koanf:"min_length"`
	RequireDigit           bool `koanf:"require_digit"`
	RequireLower           bool `koanf:"require_lower"`
	RequireUpper           bool `koanf:"require_upper"`
	RequireNonAlphanumeric bool `koanf:"require_non_alphanumeric"`
}

type Seed struct {
	Users []credauth.SeedUser `koanf:"users"`
}

// Config is the command's configuration.
type Config struct {
	Log      Log      `koanf:"log"`
	Redis    Redis    `koanf:"redis"`
	Store    Store    `koanf:"store"`
	Session  Session  `koanf:"session"`
	Password Password `koanf:"password"`
	Policy   Policy   `koanf:"policy"`
	Seed     Seed     `koanf:"seed"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	ec := credauth.DefaultConfig()
	return Config{
		Log:   Log{Level: "info", Format: "json"},
		Redis: Redis{Addr: "localhost:6379"},
		Store: Store{Driver: DriverSQLite, DSN: "credauth.db"},
		Session: Session{
			Prefix:     ec.Session.RedisPrefix,
			ShortLived: ec.Session.ShortLived,
			LongLived:  ec.Session.LongLived,
		},
		Password: Password{
			Memory:      ec.Password.Memory,
			Time:        ec.Password.Time,
			Parallelism: ec.Password.Parallelism,
		},
		Policy: Policy{
			MinLength:              ec.Policy.MinLength,
			RequireDigit:           ec.Policy.RequireDigit,
			RequireLower:           ec.Policy.RequireLower,
			RequireUpper:           ec.Policy.RequireUpper,
			RequireNonAlphanumeric: ec.Policy.RequireNonAlphanumeric,
		},
		Seed: Seed{Users: credauth.DefaultSeedUsers()},
	}
}

// Load reads path (skipped when empty) and then the flags in fs that were
// set or that name keys absent from the file.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if fs != nil {
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the engine does not validate itself.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	if c.Store.DSN == "" {
		return errors.New("store dsn must not be empty")
	}
	if c.Redis.Addr == "" {
		return errors.New("redis addr must not be empty")
	}
	return nil
}

// Engine returns the engine configuration these settings describe.
func (c Config) Engine() credauth.Config {
	ec := credauth.DefaultConfig()
	ec.Session.RedisPrefix = c.Session.Prefix
	ec.Session.ShortLived = c.Session.ShortLived
	ec.Session.LongLived = c.Session.LongLived
	ec.Password.Memory = c.Password.Memory
	ec.Password.Time = c.Password.Time
	ec.Password.Parallelism = c.Password.Parallelism
	ec.Policy.MinLength = c.Policy.MinLength
	ec.Policy.RequireDigit = c.Policy.RequireDigit
	ec.Policy.RequireLower = c.Policy.RequireLower
	ec.Policy.RequireUpper = c.Policy.RequireUpper
	ec.Policy.RequireNonAlphanumeric = c.Policy.RequireNonAlphanumeric
	return ec
}
