package credauth

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/credauth/password"
)

// Config is the complete engine configuration. Start from [DefaultConfig]
// and override individual fields.
type Config struct {
	Password PasswordConfig
	Policy   PolicyConfig
	Session  SessionConfig
	Security SecurityConfig
	Hashing  HashingConfig
	Logout   LogoutConfig
	Identity IdentityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// PasswordConfig holds the argon2id cost parameters for new hashes.
type PasswordConfig struct {
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

// PolicyConfig sets the password strength rules applied at registration.
type PolicyConfig struct {
	MinLength              int
	RequireDigit           bool
	RequireLower           bool
	RequireUpper           bool
	RequireNonAlphanumeric bool
}

// SessionConfig controls session lifetimes and the Redis key namespace.
// ShortLived applies to non-persistent sessions, LongLived to persistent ones.
type SessionConfig struct {
	RedisPrefix string
	ShortLived  time.Duration
	LongLived   time.Duration
}

// SecurityConfig configures failed-login throttling. The throttle is off by
// default: a per-username window lets anyone lock a user out by failing
// logins on their behalf, so enable it only behind per-IP limits or when
// that trade-off is wanted.
type SecurityConfig struct {
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

// HashingConfig sizes the password hashing pool. Workers <= 0 means GOMAXPROCS.
type HashingConfig struct {
	Workers int
}

// LogoutConfig holds the fallback landing location and the lifetime of
// pending logout requests issued through the interaction store.
type LogoutConfig struct {
	DefaultRedirect string
	LogoutTTL       time.Duration
}

// IdentityConfig configures signed identity tokens minted from live sessions.
// Identity tokens are disabled while SigningMethod is empty.
type IdentityConfig struct {
	SigningMethod string
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	KeyID         string
	TokenTTL      time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and the hashing latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	pw := password.DefaultConfig()
	policy := password.DefaultPolicy()
	return Config{
		Password: PasswordConfig{
			Memory:         pw.Memory,
			Time:           pw.Time,
			Parallelism:    pw.Parallelism,
			SaltLength:     pw.SaltLength,
			KeyLength:      pw.KeyLength,
			UpgradeOnLogin: true,
		},
		Policy: PolicyConfig{
			MinLength:              policy.MinLength,
			RequireDigit:           policy.RequireDigit,
			RequireLower:           policy.RequireLower,
			RequireUpper:           policy.RequireUpper,
			RequireNonAlphanumeric: policy.RequireNonAlphanumeric,
		},
		Session: SessionConfig{
			RedisPrefix: "cs",
			ShortLived:  30 * time.Minute,
			LongLived:   14 * 24 * time.Hour,
		},
		Security: SecurityConfig{
			EnableLoginThrottle:   false,
			EnableIPThrottle:      false,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
		},
		Hashing: HashingConfig{
			Workers: 0,
		},
		Logout: LogoutConfig{
			DefaultRedirect: "/",
			LogoutTTL:       10 * time.Minute,
		},
		Identity: IdentityConfig{
			TokenTTL: 5 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Identity.PrivateKey = cloneBytes(cfg.Identity.PrivateKey)
	out.Identity.PublicKey = cloneBytes(cfg.Identity.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c *Config) passwordConfig() password.Config {
	return password.Config{
		Memory:      c.Password.Memory,
		Time:        c.Password.Time,
		Parallelism: c.Password.Parallelism,
		SaltLength:  c.Password.SaltLength,
		KeyLength:   c.Password.KeyLength,
	}
}

func (c *Config) passwordPolicy() password.Policy {
	return password.Policy{
		MinLength:              c.Policy.MinLength,
		RequireDigit:           c.Policy.RequireDigit,
		RequireLower:           c.Policy.RequireLower,
		RequireUpper:           c.Policy.RequireUpper,
		RequireNonAlphanumeric: c.Policy.RequireNonAlphanumeric,
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Policy
	if c.Policy.MinLength < 1 {
		return errors.New("Policy MinLength must be >= 1")
	}
	if c.Policy.MinLength > 1024 {
		return errors.New("Policy MinLength must be <= 1024")
	}

	// Session
	if strings.TrimSpace(c.Session.RedisPrefix) == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if strings.Contains(c.Session.RedisPrefix, ":") {
		return errors.New("Session RedisPrefix must not contain ':'")
	}
	if c.Session.ShortLived <= 0 {
		return errors.New("Session ShortLived must be > 0")
	}
	if c.Session.LongLived < c.Session.ShortLived {
		return errors.New("Session LongLived must be >= ShortLived")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("Security LoginCooldownDuration must be > 0")
		}
	}

	// Hashing
	if c.Hashing.Workers < 0 {
		return errors.New("Hashing Workers must be >= 0")
	}

	// Logout
	if !isLocalPath(c.Logout.DefaultRedirect) {
		return errors.New("Logout DefaultRedirect must be a local path")
	}
	if c.Logout.LogoutTTL <= 0 {
		return errors.New("Logout LogoutTTL must be > 0")
	}

	// Identity
	switch c.Identity.SigningMethod {
	case "":
	case "ed25519":
		if len(c.Identity.PrivateKey) == 0 || len(c.Identity.PublicKey) == 0 {
			return errors.New("Identity ed25519 requires PrivateKey and PublicKey")
		}
	case "hs256":
		if len(c.Identity.PrivateKey) < 32 {
			return errors.New("Identity hs256 requires a PrivateKey of at least 32 bytes")
		}
	default:
		return errors.New("unsupported Identity signing method")
	}
	if c.Identity.SigningMethod != "" && c.Identity.TokenTTL <= 0 {
		return errors.New("Identity TokenTTL must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

// isLocalPath reports whether p is an absolute path on this host, rejecting
// scheme-relative and backslash forms that browsers treat as off-site.
func isLocalPath(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	if len(p) > 1 && (p[1] == '/' || p[1] == '\\') {
		return false
	}
	u, err := url.Parse(p)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == ""
}
