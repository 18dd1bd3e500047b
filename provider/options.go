package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/password"
	"github.com/redis/go-redis/v9"
)

// Options configures a Provider. Zero values fall back to the defaults applied in New.
type Options struct {
	AppName string
	// BaseURL is the public origin of the server, e.g. "https://api.example.com".
	BaseURL string
	// BasePath is where the handler is mounted. Default "/api/auth".
	BasePath string
	Secret   []byte
	// TrustedOrigins are accepted for callback URLs and the Origin header of
	// cookie-bearing POSTs, in addition to BaseURL.
	TrustedOrigins []string

	Redis         redis.UniversalClient
	Users         UserStore
	Accounts      AccountStore
	Organizations OrganizationStore
	Roles         RoleLookup
	Hasher        PasswordHasher

	EmailAndPassword  EmailAndPasswordOptions
	EmailVerification EmailVerificationOptions
	Session           SessionOptions
	Cookie            CookieOptions
	RateLimit         RateLimitOptions

	SocialProviders []SocialProvider
	Plugins         []Plugin
	// UserCreateHooks run in order before every user insert.
	UserCreateHooks []UserCreateHook
	// DisabledPaths answer 404 before hooks or rate limiting.
	DisabledPaths []string

	Logger *slog.Logger
	Audit  audit.Sink
}

type EmailAndPasswordOptions struct {
	Enabled                  bool
	AutoSignIn               bool
	MinPasswordLength        int
	MaxPasswordLength        int
	RequireEmailVerification bool
	// SendResetPassword delivers the reset link. Required for /forget-password.
	SendResetPassword             func(ctx context.Context, user *User, url string) error
	ResetPasswordTokenExpiresIn   time.Duration
	RevokeSessionsOnPasswordReset bool
}

type EmailVerificationOptions struct {
	SendVerificationEmail       func(ctx context.Context, user *User, url string) error
	SendOnSignUp                bool
	AutoSignInAfterVerification bool
	ExpiresIn                   time.Duration
}

type SessionOptions struct {
	ExpiresIn time.Duration
	UpdateAge time.Duration
	// Prefix namespaces session keys in Redis.
	Prefix string
}

type CookieOptions struct {
	Prefix      string
	SameSite    string
	Secure      bool
	HTTPOnly    bool
	Partitioned bool
	MaxAge      time.Duration
}

// RateLimitOptions configures enforcement of plugin rules. Default applies to paths
// no plugin rule matches; a zero Default disables it.
type RateLimitOptions struct {
	Enabled bool
	Default RateLimitRule
	// IPHeader, when set, is read for the client address instead of RemoteAddr.
	IPHeader string
	Prefix   string
}

// DefaultOptions mirrors the production setup: email and password enabled with
// verification required, 7 day sessions, cross-site partitioned cookies.
func DefaultOptions() Options {
	policy := password.DefaultPolicy()
	return Options{
		AppName:  "authgate",
		BasePath: "/api/auth",
		EmailAndPassword: EmailAndPasswordOptions{
			Enabled:                     true,
			AutoSignIn:                  true,
			MinPasswordLength:           policy.MinLength,
			MaxPasswordLength:           policy.MaxLength,
			RequireEmailVerification:    true,
			ResetPasswordTokenExpiresIn: time.Hour,
		},
		EmailVerification: EmailVerificationOptions{
			ExpiresIn: time.Hour,
		},
		Session: SessionOptions{
			ExpiresIn: 7 * 24 * time.Hour,
			UpdateAge: 24 * time.Hour,
		},
		Cookie: CookieOptions{
			Prefix:      "authgate",
			SameSite:    "none",
			Secure:      true,
			HTTPOnly:    true,
			Partitioned: true,
			MaxAge:      14 * 24 * time.Hour,
		},
		RateLimit: RateLimitOptions{
			Enabled: true,
		},
	}
}

func (o *Options) applyDefaults() {
	d := DefaultOptions()
	if o.AppName == "" {
		o.AppName = d.AppName
	}
	if o.BasePath == "" {
		o.BasePath = d.BasePath
	}
	o.BasePath = "/" + strings.Trim(o.BasePath, "/")
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.EmailAndPassword.MinPasswordLength <= 0 {
		o.EmailAndPassword.MinPasswordLength = d.EmailAndPassword.MinPasswordLength
	}
	if o.EmailAndPassword.MaxPasswordLength <= 0 {
		o.EmailAndPassword.MaxPasswordLength = d.EmailAndPassword.MaxPasswordLength
	}
	if o.EmailAndPassword.ResetPasswordTokenExpiresIn <= 0 {
		o.EmailAndPassword.ResetPasswordTokenExpiresIn = d.EmailAndPassword.ResetPasswordTokenExpiresIn
	}
	if o.EmailVerification.ExpiresIn <= 0 {
		o.EmailVerification.ExpiresIn = d.EmailVerification.ExpiresIn
	}
	if o.Session.ExpiresIn <= 0 {
		o.Session.ExpiresIn = d.Session.ExpiresIn
	}
	if o.Cookie.Prefix == "" {
		o.Cookie.Prefix = d.Cookie.Prefix
	}
	if o.Cookie.MaxAge <= 0 {
		o.Cookie.MaxAge = d.Cookie.MaxAge
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Audit == nil {
		o.Audit = audit.NoOpSink{}
	}
}

func (o *Options) validate() error {
	if len(o.Secret) < 32 {
		return fmt.Errorf("%w: secret must be at least 32 bytes", ErrProviderMisconfigured)
	}
	if o.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrProviderMisconfigured)
	}
	if u, err := url.Parse(o.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: base URL must be absolute", ErrProviderMisconfigured)
	}
	if o.Redis == nil {
		return fmt.Errorf("%w: redis client required", ErrProviderMisconfigured)
	}
	if o.Users == nil || o.Accounts == nil {
		return fmt.Errorf("%w: user and account stores required", ErrProviderMisconfigured)
	}
	if o.EmailAndPassword.MinPasswordLength > o.EmailAndPassword.MaxPasswordLength {
		return fmt.Errorf("%w: min password length exceeds max", ErrProviderMisconfigured)
	}
	switch strings.ToLower(o.Cookie.SameSite) {
	case "", "lax", "strict", "none":
	default:
		return fmt.Errorf("%w: invalid cookie SameSite %q", ErrProviderMisconfigured, o.Cookie.SameSite)
	}
	if strings.EqualFold(o.Cookie.SameSite, "none") && !o.Cookie.Secure {
		return fmt.Errorf("%w: SameSite=None requires Secure cookies", ErrProviderMisconfigured)
	}
	seen := make(map[string]struct{}, len(o.Plugins))
	for _, p := range o.Plugins {
		if p.ID == "" {
			return fmt.Errorf("%w: plugin id required", ErrProviderMisconfigured)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: duplicate plugin id %q", ErrProviderMisconfigured, p.ID)
		}
		seen[p.ID] = struct{}{}
		for _, r := range p.RateLimit {
			if r.PathMatcher == nil || r.Max <= 0 || r.Window <= 0 {
				return fmt.Errorf("%w: plugin %q has an invalid rate-limit rule", ErrProviderMisconfigured, p.ID)
			}
		}
	}
	for _, sp := range o.SocialProviders {
		if sp == nil || sp.ID() == "" {
			return fmt.Errorf("%w: social provider id required", ErrProviderMisconfigured)
		}
	}
	return nil
}
