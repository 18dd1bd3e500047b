package provider

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/authgate/internal"
	"github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/internal/rate"
	"github.com/MrEthical07/authgate/internal/stores"
	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/password"
	"github.com/MrEthical07/authgate/session"
)

// Provider serves the authentication endpoints and resolves sessions.
// It is safe for concurrent use once built.
type Provider struct {
	opts     Options
	policy   password.Policy
	sessions *session.Store
	resets   *stores.PasswordResetStore
	limiter  *rate.Limiter
	tokens   *jwt.Manager
	social   map[string]SocialProvider
	disabled map[string]struct{}
	origins  map[string]struct{}
	handler  http.Handler
	now      func() time.Time
}

// New validates opts, applies defaults and builds the router.
func New(opts Options) (*Provider, error) {
	opts.applyDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	if opts.Hasher == nil {
		h, err := password.New(password.DefaultConfig())
		if err != nil {
			return nil, err
		}
		opts.Hasher = h
	}

	base, _ := url.Parse(opts.BaseURL)
	tokens, err := jwt.NewManager(jwt.Config{Secret: opts.Secret, Issuer: base.Scheme + "://" + base.Host})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderMisconfigured, err)
	}

	p := &Provider{
		opts:   opts,
		policy: password.Policy{MinLength: opts.EmailAndPassword.MinPasswordLength, MaxLength: opts.EmailAndPassword.MaxPasswordLength},
		sessions: session.NewStore(opts.Redis, session.Options{
			Prefix:    opts.Session.Prefix,
			ExpiresIn: opts.Session.ExpiresIn,
			UpdateAge: opts.Session.UpdateAge,
		}),
		resets:   stores.NewPasswordResetStore(opts.Redis, "", 0),
		limiter:  rate.New(opts.Redis, opts.RateLimit.Prefix),
		tokens:   tokens,
		social:   make(map[string]SocialProvider, len(opts.SocialProviders)),
		disabled: make(map[string]struct{}, len(opts.DisabledPaths)),
		origins:  make(map[string]struct{}, len(opts.TrustedOrigins)+1),
		now:      time.Now,
	}
	for _, sp := range opts.SocialProviders {
		p.social[sp.ID()] = sp
	}
	for _, path := range opts.DisabledPaths {
		p.disabled[path] = struct{}{}
	}
	p.origins[originOf(opts.BaseURL)] = struct{}{}
	for _, o := range opts.TrustedOrigins {
		if o = originOf(o); o != "" {
			p.origins[o] = struct{}{}
		}
	}

	p.handler = p.routes()
	return p, nil
}

// Handler returns the HTTP handler. It expects request paths that include BasePath.
func (p *Provider) Handler() http.Handler {
	return p.handler
}

// BasePath returns the normalized mount path.
func (p *Provider) BasePath() string {
	return p.opts.BasePath
}

// SessionCookieName is "<cookie prefix>.session_token".
func (p *Provider) SessionCookieName() string {
	return p.opts.Cookie.Prefix + ".session_token"
}

// GetSession resolves the session cookie or bearer token in h. It returns (nil, nil)
// when h carries no valid session; errors are reserved for store failures.
func (p *Provider) GetSession(ctx context.Context, h http.Header) (*SessionData, error) {
	raw := p.sessionToken(h)
	if raw == "" {
		return nil, nil
	}
	tok, err := internal.ParseOpaqueToken(raw)
	if err != nil {
		return nil, nil
	}

	sess, err := p.sessions.Get(ctx, tok.ID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	hash := tok.Hash()
	if subtle.ConstantTimeCompare(hash[:], sess.TokenHash[:]) != 1 {
		return nil, nil
	}

	user, err := p.opts.Users.UserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if p.opts.Roles != nil {
		role, err := p.opts.Roles.FindUserRole(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("role lookup: %w", err)
		}
		user.Role = role
	}

	return &SessionData{User: user, Session: sessionView(sess)}, nil
}

// RevokeUserSessions signs a user out everywhere.
func (p *Provider) RevokeUserSessions(ctx context.Context, userID int64) error {
	return p.sessions.DeleteAllForUser(ctx, userID)
}

// Ping checks the Redis connection.
func (p *Provider) Ping(ctx context.Context) (time.Duration, error) {
	return p.sessions.Ping(ctx)
}

func (p *Provider) sessionToken(h http.Header) string {
	r := http.Request{Header: h}
	if c, err := r.Cookie(p.SessionCookieName()); err == nil && c.Value != "" {
		return c.Value
	}
	const bearer = "Bearer "
	if v := h.Get("Authorization"); strings.HasPrefix(v, bearer) {
		return strings.TrimSpace(v[len(bearer):])
	}
	return ""
}

func (p *Provider) createSession(ctx context.Context, r *http.Request, user *User) (string, *session.Session, error) {
	tok, err := internal.NewOpaqueToken()
	if err != nil {
		return "", nil, err
	}
	now := p.now()
	sess := &session.Session{
		ID:        tok.ID,
		TokenHash: tok.Hash(),
		UserID:    user.ID,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(p.sessions.ExpiresIn()),
		IPAddress: p.clientIP(r),
		UserAgent: r.UserAgent(),
	}
	if err := p.sessions.Save(ctx, sess); err != nil {
		return "", nil, err
	}
	p.emit(ctx, audit.Event{
		EventType: audit.EventSessionCreated,
		UserID:    formatID(user.ID),
		SessionID: sess.ID,
		IP:        sess.IPAddress,
		Success:   true,
	})
	return tok.String(), sess, nil
}

// createUser runs the UserCreateHooks and inserts the user.
func (p *Provider) createUser(ctx context.Context, u *User, source string) (*User, error) {
	in := &UserCreateInput{User: u, Provider: source}
	for _, hook := range p.opts.UserCreateHooks {
		if err := hook(ctx, in); err != nil {
			p.emit(ctx, audit.Event{
				EventType: audit.EventSignupRejected,
				Error:     err.Error(),
				Metadata:  map[string]string{"provider": source},
			})
			return nil, err
		}
	}
	created, err := p.opts.Users.CreateUser(ctx, in.User)
	if err != nil {
		return nil, err
	}
	p.emit(ctx, audit.Event{
		EventType: audit.EventUserCreated,
		UserID:    formatID(created.ID),
		Success:   true,
		Metadata:  map[string]string{"provider": source},
	})
	return created, nil
}

func (p *Provider) emit(ctx context.Context, ev audit.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = p.now()
	}
	p.opts.Audit.Emit(ctx, ev)
}

func (p *Provider) clientIP(r *http.Request) string {
	if h := p.opts.RateLimit.IPHeader; h != "" {
		if v := r.Header.Get(h); v != "" {
			first, _, _ := strings.Cut(v, ",")
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// endpointURL joins BaseURL, BasePath and path.
func (p *Provider) endpointURL(path string, query url.Values) string {
	u := p.opts.BaseURL + p.opts.BasePath + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// trustedCallback accepts relative paths and absolute URLs on a trusted origin.
func (p *Provider) trustedCallback(raw string) bool {
	if raw == "" {
		return true
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return true
	}
	_, ok := p.origins[originOf(raw)]
	return ok
}

// absoluteCallback resolves a relative callback against BaseURL.
func (p *Provider) absoluteCallback(raw string) string {
	if raw == "" {
		return p.opts.BaseURL + "/"
	}
	if strings.HasPrefix(raw, "/") {
		return p.opts.BaseURL + raw
	}
	return raw
}

func originOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

func withQuery(raw string, key, value string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
