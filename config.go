package authgate

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the full authgate setup. Build it with DefaultConfig, adjust, then hand it
// to the Builder; it is treated as immutable after Build.
type Config struct {
	App               AppConfig
	Google            GoogleConfig
	TrustedOrigins    []string
	Session           SessionConfig
	Cookie            CookieConfig
	EmailAndPassword  EmailAndPasswordConfig
	EmailVerification EmailVerificationConfig
	RateLimit         RateLimitConfig
	CORS              CORSConfig
	// DisabledPaths answer 404 inside the provider, e.g. "/sign-up/email".
	DisabledPaths []string
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
APP CONFIG
====================================
*/

// AppConfig identifies the deployment.
type AppConfig struct {
	Name string
	// BaseURL is the public origin, e.g. "https://api.example.com".
	BaseURL string
	// BasePath is the gateway mount point.
	BasePath string
	// Secret signs verification and OAuth state tokens. At least 32 bytes.
	Secret []byte
}

/*
====================================
SOCIAL CONFIG
====================================
*/

// GoogleConfig enables Google sign-in when both credentials are set.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
}

// Enabled reports whether both client credentials are present.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

/*
====================================
SESSION CONFIG
====================================
*/

type SessionConfig struct {
	ExpiresIn time.Duration
	// UpdateAge is how often an active session's expiry is pushed forward.
	UpdateAge   time.Duration
	RedisPrefix string
}

type CookieConfig struct {
	Prefix      string
	SameSite    string // "none" (default), "lax" or "strict"
	Secure      bool
	HTTPOnly    bool
	Partitioned bool
	MaxAge      time.Duration
}

/*
====================================
EMAIL CONFIG
====================================
*/

type EmailAndPasswordConfig struct {
	Enabled                       bool
	AutoSignIn                    bool
	MinPasswordLength             int
	MaxPasswordLength             int
	RequireEmailVerification      bool
	ResetPasswordTokenExpiresIn   time.Duration
	RevokeSessionsOnPasswordReset bool
}

type EmailVerificationConfig struct {
	SendOnSignUp                bool
	AutoSignInAfterVerification bool
	ExpiresIn                   time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig controls provider-side enforcement. DefaultMax/DefaultWindow apply
// to paths no plugin rule covers; zero disables the default rule.
type RateLimitConfig struct {
	Enabled       bool
	DefaultMax    int
	DefaultWindow time.Duration
	// IPHeader is trusted for the client address, e.g. "X-Forwarded-For".
	IPHeader    string
	RedisPrefix string
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults: email and password with required
// verification, the email sign-up path disabled, cross-site partitioned cookies and
// the local development origins trusted.
func DefaultConfig() Config {
	return Config{
		App: AppConfig{
			Name:     "authgate",
			BasePath: "/api/auth",
		},
		TrustedOrigins: []string{"http://localhost:3000"},
		Session: SessionConfig{
			ExpiresIn:   7 * 24 * time.Hour,
			UpdateAge:   24 * time.Hour,
			RedisPrefix: "as",
		},
		Cookie: CookieConfig{
			Prefix:      "authgate",
			SameSite:    "none",
			Secure:      true,
			HTTPOnly:    true,
			Partitioned: true,
			MaxAge:      14 * 24 * time.Hour,
		},
		EmailAndPassword: EmailAndPasswordConfig{
			Enabled:                     true,
			AutoSignIn:                  true,
			MinPasswordLength:           8,
			MaxPasswordLength:           20,
			RequireEmailVerification:    true,
			ResetPasswordTokenExpiresIn: time.Hour,
		},
		EmailVerification: EmailVerificationConfig{
			ExpiresIn: time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			RedisPrefix: "arl",
		},
		CORS:          DefaultCORSConfig(),
		DisabledPaths: []string{"/sign-up/email"},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.App.Secret = append([]byte(nil), cfg.App.Secret...)
	out.TrustedOrigins = append([]string(nil), cfg.TrustedOrigins...)
	out.DisabledPaths = append([]string(nil), cfg.DisabledPaths...)
	out.CORS = cfg.CORS.clone()
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first problem found, wrapped in ErrConfigInvalid.
func (c *Config) Validate() error {
	if len(c.App.Secret) < 32 {
		return invalid("App Secret must be at least 32 bytes")
	}
	if c.App.BaseURL == "" {
		return invalid("App BaseURL is required")
	}
	if u, err := url.Parse(c.App.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("App BaseURL must be an absolute URL")
	}
	if !strings.HasPrefix(c.App.BasePath, "/") {
		return invalid("App BasePath must start with /")
	}
	if (c.Google.ClientID == "") != (c.Google.ClientSecret == "") {
		return invalid("Google ClientID and ClientSecret must be set together")
	}
	for _, o := range c.TrustedOrigins {
		if u, err := url.Parse(o); err != nil || u.Scheme == "" || u.Host == "" {
			return invalid(fmt.Sprintf("trusted origin %q is not an origin", o))
		}
	}

	// Session
	if c.Session.ExpiresIn <= 0 {
		return invalid("Session ExpiresIn must be > 0")
	}
	if c.Session.UpdateAge < 0 {
		return invalid("Session UpdateAge must be >= 0")
	}

	// Cookie
	switch strings.ToLower(c.Cookie.SameSite) {
	case "", "lax", "strict":
	case "none":
		if !c.Cookie.Secure {
			return invalid("Cookie SameSite=none requires Secure")
		}
	default:
		return invalid(fmt.Sprintf("Cookie SameSite %q is not supported", c.Cookie.SameSite))
	}
	if c.Cookie.Partitioned && !c.Cookie.Secure {
		return invalid("Cookie Partitioned requires Secure")
	}

	// Email and password
	if c.EmailAndPassword.MinPasswordLength <= 0 {
		return invalid("EmailAndPassword MinPasswordLength must be > 0")
	}
	if c.EmailAndPassword.MaxPasswordLength < c.EmailAndPassword.MinPasswordLength {
		return invalid("EmailAndPassword MaxPasswordLength must be >= MinPasswordLength")
	}
	if c.EmailAndPassword.ResetPasswordTokenExpiresIn <= 0 {
		return invalid("EmailAndPassword ResetPasswordTokenExpiresIn must be > 0")
	}
	if c.EmailVerification.ExpiresIn <= 0 {
		return invalid("EmailVerification ExpiresIn must be > 0")
	}

	// Rate limit
	if c.RateLimit.DefaultMax < 0 || c.RateLimit.DefaultWindow < 0 {
		return invalid("RateLimit default rule must not be negative")
	}
	if (c.RateLimit.DefaultMax > 0) != (c.RateLimit.DefaultWindow > 0) {
		return invalid("RateLimit DefaultMax and DefaultWindow must be set together")
	}

	if err := c.CORS.validate(); err != nil {
		return err
	}

	for _, p := range c.DisabledPaths {
		if !strings.HasPrefix(p, "/") {
			return invalid(fmt.Sprintf("disabled path %q must start with /", p))
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return invalid("Audit BufferSize must be > 0 when enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return invalid("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrConfigInvalid, msg)
}
