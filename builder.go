package authgate

import (
	"fmt"
	"log/slog"

	"github.com/MrEthical07/authgate/mail"
	"github.com/MrEthical07/authgate/provider"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

// Store is the persistence a Builder needs at minimum. Stores that also implement
// provider.OrganizationStore, provider.RoleLookup or UserExistence are used for those
// too; sqlstore.Store implements all of them.
type Store interface {
	provider.UserStore
	provider.AccountStore
}

// Builder assembles an Auth. It is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users     provider.UserStore
	accounts  provider.AccountStore
	orgs      provider.OrganizationStore
	roles     provider.RoleLookup
	existence UserExistence
	hasher    provider.PasswordHasher

	mailer      Mailer
	auditSink   AuditSink
	social      []provider.SocialProvider
	plugins     []provider.Plugin
	createHooks []provider.UserCreateHook

	logger  *slog.Logger
	headers *HeaderStore
	tracer  trace.TracerProvider

	built bool
}

// New starts a Builder from DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole config with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client shared by sessions, rate limits and reset tokens.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore registers s for every store role it implements.
func (b *Builder) WithStore(s Store) *Builder {
	b.users = s
	b.accounts = s
	if o, ok := s.(provider.OrganizationStore); ok {
		b.orgs = o
	}
	if r, ok := s.(provider.RoleLookup); ok {
		b.roles = r
	}
	if e, ok := s.(UserExistence); ok {
		b.existence = e
	}
	return b
}

// WithUserStore overrides the user store registered by WithStore.
func (b *Builder) WithUserStore(s provider.UserStore) *Builder {
	b.users = s
	return b
}

// WithAccountStore overrides the account store registered by WithStore.
func (b *Builder) WithAccountStore(s provider.AccountStore) *Builder {
	b.accounts = s
	return b
}

// WithOrganizationStore overrides the organization store registered by WithStore.
func (b *Builder) WithOrganizationStore(s provider.OrganizationStore) *Builder {
	b.orgs = s
	return b
}

// WithRoleLookup sets where session users get their role from.
func (b *Builder) WithRoleLookup(r provider.RoleLookup) *Builder {
	b.roles = r
	return b
}

// WithUserExistence sets the lookup behind LoginPlugin. Defaults to a lookup over the
// user store.
func (b *Builder) WithUserExistence(e UserExistence) *Builder {
	b.existence = e
	return b
}

// WithPasswordHasher replaces the default argon2id hasher.
func (b *Builder) WithPasswordHasher(h provider.PasswordHasher) *Builder {
	b.hasher = h
	return b
}

// WithMailer sets the transport for verification and reset mail. Defaults to
// mail.LogMailer.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithAuditSink sets the sink behind the async audit dispatcher.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithSocialProvider registers an extra social provider. A provider registered under
// "google" takes precedence over the one built from Config.Google.
func (b *Builder) WithSocialProvider(sp provider.SocialProvider) *Builder {
	b.social = append(b.social, sp)
	return b
}

// WithPlugin appends a plugin after LoginPlugin.
func (b *Builder) WithPlugin(p provider.Plugin) *Builder {
	b.plugins = append(b.plugins, p)
	return b
}

// WithUserCreateHook appends a hook after SignupPolicy.
func (b *Builder) WithUserCreateHook(h provider.UserCreateHook) *Builder {
	b.createHooks = append(b.createHooks, h)
	return b
}

// WithLogger sets the logger for every component. Defaults to slog.Default().
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithHeaderStore replaces the process-wide header cache used by the projector.
func (b *Builder) WithHeaderStore(h *HeaderStore) *Builder {
	b.headers = h
	return b
}

// WithTracerProvider sets the provider for gateway spans. Defaults to the global one.
func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.tracer = tp
	return b
}

// WithMetricsEnabled overrides Config.Metrics.Enabled.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms turns on the gateway latency histogram. It has no effect
// unless metrics are enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the provider, gateway and projector.
func (b *Builder) Build() (*Auth, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, ErrRedisRequired
	}
	if b.users == nil || b.accounts == nil {
		return nil, ErrStoreRequired
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	headers := b.headers
	if headers == nil {
		headers = Headers()
	}
	existence := b.existence
	if existence == nil {
		existence = UserStoreExistence(b.users)
	}
	var mailer Mailer = mail.NewLogMailer(logger)
	if b.mailer != nil {
		mailer = b.mailer
	}

	metrics := NewMetrics(cfg.Metrics)
	pipeline := newAuditPipeline(cfg.Audit, b.auditSink, metrics)

	social, err := socialProviders(cfg, b.social)
	if err != nil {
		pipeline.Close()
		return nil, err
	}

	sender := &EmailSender{AppName: cfg.App.Name, Mailer: mailer}
	opts := providerOptions(cfg)
	opts.Redis = b.redis
	opts.Users = b.users
	opts.Accounts = b.accounts
	opts.Organizations = b.orgs
	opts.Roles = b.roles
	opts.Hasher = b.hasher
	opts.EmailAndPassword.SendResetPassword = sender.SendResetPassword
	opts.EmailVerification.SendVerificationEmail = sender.SendVerificationEmail
	opts.SocialProviders = social
	opts.Plugins = append([]provider.Plugin{LoginPlugin(existence)}, b.plugins...)
	opts.UserCreateHooks = append([]provider.UserCreateHook{SignupPolicy(logger)}, b.createHooks...)
	opts.Logger = logger
	opts.Audit = pipeline

	p, err := provider.New(opts)
	if err != nil {
		pipeline.Close()
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	b.built = true

	gateway := NewGateway(p.Handler(), GatewayOptions{
		Metrics:        metrics,
		Logger:         logger,
		TracerProvider: b.tracer,
	})
	projector := NewProjector(p, ProjectorOptions{
		Headers: headers,
		Logger:  logger,
		Metrics: metrics,
	})

	return &Auth{
		config:    cfg,
		provider:  p,
		gateway:   gateway,
		projector: projector,
		cors:      CORSPolicy(cfg.CORS),
		headers:   headers,
		metrics:   metrics,
		audit:     pipeline,
		logger:    logger,
	}, nil
}

func providerOptions(cfg Config) provider.Options {
	opts := provider.Options{
		AppName:        cfg.App.Name,
		BaseURL:        cfg.App.BaseURL,
		BasePath:       cfg.App.BasePath,
		Secret:         cfg.App.Secret,
		TrustedOrigins: cfg.TrustedOrigins,
		DisabledPaths:  cfg.DisabledPaths,
		EmailAndPassword: provider.EmailAndPasswordOptions{
			Enabled:                       cfg.EmailAndPassword.Enabled,
			AutoSignIn:                    cfg.EmailAndPassword.AutoSignIn,
			MinPasswordLength:             cfg.EmailAndPassword.MinPasswordLength,
			MaxPasswordLength:             cfg.EmailAndPassword.MaxPasswordLength,
			RequireEmailVerification:      cfg.EmailAndPassword.RequireEmailVerification,
			ResetPasswordTokenExpiresIn:   cfg.EmailAndPassword.ResetPasswordTokenExpiresIn,
			RevokeSessionsOnPasswordReset: cfg.EmailAndPassword.RevokeSessionsOnPasswordReset,
		},
		EmailVerification: provider.EmailVerificationOptions{
			SendOnSignUp:                cfg.EmailVerification.SendOnSignUp,
			AutoSignInAfterVerification: cfg.EmailVerification.AutoSignInAfterVerification,
			ExpiresIn:                   cfg.EmailVerification.ExpiresIn,
		},
		Session: provider.SessionOptions{
			ExpiresIn: cfg.Session.ExpiresIn,
			UpdateAge: cfg.Session.UpdateAge,
			Prefix:    cfg.Session.RedisPrefix,
		},
		Cookie: provider.CookieOptions{
			Prefix:      cfg.Cookie.Prefix,
			SameSite:    cfg.Cookie.SameSite,
			Secure:      cfg.Cookie.Secure,
			HTTPOnly:    cfg.Cookie.HTTPOnly,
			Partitioned: cfg.Cookie.Partitioned,
			MaxAge:      cfg.Cookie.MaxAge,
		},
		RateLimit: provider.RateLimitOptions{
			Enabled:  cfg.RateLimit.Enabled,
			IPHeader: cfg.RateLimit.IPHeader,
			Prefix:   cfg.RateLimit.RedisPrefix,
		},
	}
	if cfg.RateLimit.DefaultMax > 0 {
		opts.RateLimit.Default = provider.RateLimitRule{
			Max:    cfg.RateLimit.DefaultMax,
			Window: cfg.RateLimit.DefaultWindow,
		}
	}
	return opts
}

// socialProviders appends a Google provider built from cfg unless one is registered.
func socialProviders(cfg Config, registered []provider.SocialProvider) ([]provider.SocialProvider, error) {
	out := append([]provider.SocialProvider(nil), registered...)
	if !cfg.Google.Enabled() {
		return out, nil
	}
	for _, sp := range out {
		if sp != nil && sp.ID() == "google" {
			return out, nil
		}
	}
	google, err := provider.NewGoogle(provider.GoogleConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.App.BaseURL + cfg.App.BasePath + "/callback/google",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: google: %v", ErrConfigInvalid, err)
	}
	return append(out, google), nil
}
