package credauth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/credauth/internal/audit"
	"github.com/MrEthical07/credauth/internal/hashpool"
	"github.com/MrEthical07/credauth/internal/rate"
	"github.com/MrEthical07/credauth/jwt"
	"github.com/MrEthical07/credauth/password"
	"github.com/MrEthical07/credauth/session"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Configure it during initialization and call
// Build exactly once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store     CredentialStore
	resolver  LogoutContextResolver
	auditSink AuditSink
	logger    *slog.Logger
	clock     func() time.Time

	built bool
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the session table and login throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialStore sets where user records live.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.store = store
	return b
}

// WithLogoutResolver connects the protocol layer that resolves logout ids.
// Without one, every logout falls back to the default redirect.
func (b *Builder) WithLogoutResolver(resolver LogoutContextResolver) *Builder {
	b.resolver = resolver
	return b
}

// WithAuditSink sets the audit destination. Audit must also be enabled in
// [AuditConfig].
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the operational logger. Defaults to slog.Default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock replaces the time source for session issuance and expiry.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles in-process metrics.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the hashing latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready [Engine].
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.store == nil {
		return nil, errors.New("credential store required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	hasher, err := password.NewArgon2(cfg.passwordConfig())
	if err != nil {
		return nil, err
	}

	dummyHash, err := newDummyHash(hasher)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cloneConfig(cfg),
		store:        b.store,
		resolver:     b.resolver,
		sessionStore: session.NewStore(b.redis, cfg.Session.RedisPrefix).WithClock(clock),
		hasher:       hasher,
		policy:       cfg.passwordPolicy(),
		pool:         hashpool.New(cfg.Hashing.Workers),
		dummyHash:    dummyHash,
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
			Logger:     logger,
		}, b.auditSink),
		metrics:   NewMetrics(cfg.Metrics),
		logger:    logger.With("component", "credauth"),
		clock:     clock,
		newUserID: func() string { return uuid.NewString() },
	}

	if cfg.Security.EnableLoginThrottle {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			Prefix:                cfg.Session.RedisPrefix,
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		})
	}

	if cfg.Identity.SigningMethod != "" {
		jm, err := jwt.NewManager(jwt.Config{
			SigningMethod: jwt.SigningMethod(cfg.Identity.SigningMethod),
			PrivateKey:    cloneBytes(cfg.Identity.PrivateKey),
			PublicKey:     cloneBytes(cfg.Identity.PublicKey),
			Issuer:        cfg.Identity.Issuer,
			Audience:      cfg.Identity.Audience,
			KeyID:         cfg.Identity.KeyID,
			MaxTTL:        cfg.Identity.TokenTTL,
			Now:           clock,
		})
		if err != nil {
			engine.Close()
			return nil, err
		}
		engine.jwtManager = jm
	}

	engine.flowService = engine.buildFlows()

	b.built = true

	return engine, nil
}

// newDummyHash hashes a random throwaway secret with the live parameters so
// that verifying against it costs the same as verifying a real user.
func newDummyHash(hasher *password.Argon2) ([]byte, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return hasher.Hash(base64.RawStdEncoding.EncodeToString(buf))
}
