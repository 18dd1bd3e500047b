package authgate

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/authgate/provider"
)

// GuestRole is reported for users without a role descriptor.
const GuestRole = "GUEST"

// SessionResolver is the session-lookup capability of the identity provider.
// *provider.Provider satisfies it.
type SessionResolver interface {
	GetSession(ctx context.Context, h http.Header) (*provider.SessionData, error)
}

// CurrentUser is the normalized view of the (user, session) pair behind a request.
type CurrentUser struct {
	ID           int64             `json:"id"`
	Email        string            `json:"email"`
	Name         string            `json:"name"`
	Role         string            `json:"role"`
	Organization *OrganizationView `json:"organization,omitempty"`
	Session      SessionView       `json:"session"`
}

// OrganizationView is the user's home organization and the session's active one.
type OrganizationView struct {
	ID       int64 `json:"id"`
	ActiveID int64 `json:"activeId"`
}

// SessionView is the public part of the session behind a CurrentUser.
type SessionView struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expiresAt"`
	// IsValid is computed against the projector clock, not reported by the provider.
	IsValid bool `json:"isValid"`
}

// ProjectorOptions are optional collaborators of a Projector.
type ProjectorOptions struct {
	// Headers is the fallback header source. Defaults to the process-wide Headers().
	Headers *HeaderStore
	Logger  *slog.Logger
	Metrics *Metrics
	Clock   func() time.Time
}

// Projector turns request headers into a CurrentUser. It never returns an error:
// every failure is logged and reported as "no current user".
type Projector struct {
	resolver SessionResolver
	headers  *HeaderStore
	logger   *slog.Logger
	metrics  *Metrics
	now      func() time.Time
}

func NewProjector(resolver SessionResolver, opts ProjectorOptions) *Projector {
	p := &Projector{
		resolver: resolver,
		headers:  opts.Headers,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		now:      opts.Clock,
	}
	if p.headers == nil {
		p.headers = Headers()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// CurrentUser resolves the headers attached to ctx by WithRequestHeaders, or the
// process-wide header cache when ctx carries none.
func (p *Projector) CurrentUser(ctx context.Context) (cu *CurrentUser, ok bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	h, fromCtx := RequestHeadersFromContext(ctx)
	if !fromCtx {
		h = p.headers.GetHeaders()
	}

	defer func() {
		if r := recover(); r != nil {
			p.fail(ctx, fmt.Errorf("session lookup panicked: %v", r))
			cu, ok = nil, false
		}
	}()

	data, err := p.resolver.GetSession(ctx, h)
	if err != nil {
		p.fail(ctx, err)
		return nil, false
	}
	if data == nil {
		p.metrics.Inc(MetricCurrentUserAbsent)
		return nil, false
	}
	if data.User == nil || data.Session == nil {
		p.fail(ctx, fmt.Errorf("session lookup returned user=%t session=%t", data.User != nil, data.Session != nil))
		return nil, false
	}

	p.metrics.Inc(MetricCurrentUserResolved)
	return p.project(data.User, data.Session), true
}

// CurrentUserOrganizationID returns the user's organization id, when there is a
// current user and it belongs to one.
func (p *Projector) CurrentUserOrganizationID(ctx context.Context) (int64, bool) {
	cu, ok := p.CurrentUser(ctx)
	if !ok || cu.Organization == nil {
		return 0, false
	}
	return cu.Organization.ID, true
}

func (p *Projector) project(u *provider.User, s *provider.Session) *CurrentUser {
	cu := &CurrentUser{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  GuestRole,
		Session: SessionView{
			ID:        s.ID,
			ExpiresAt: s.ExpiresAt,
			IsValid:   s.ExpiresAt.After(p.now()),
		},
	}
	if u.Role != nil && u.Role.Role != "" {
		cu.Role = u.Role.Role
	}
	if u.OrganizationID != 0 {
		active := u.OrganizationID
		if s.ActiveOrganizationID != nil && *s.ActiveOrganizationID != 0 {
			active = *s.ActiveOrganizationID
		}
		cu.Organization = &OrganizationView{ID: u.OrganizationID, ActiveID: active}
	}
	return cu
}

func (p *Projector) fail(ctx context.Context, err error) {
	p.metrics.Inc(MetricCurrentUserFailed)
	p.logger.WarnContext(ctx, "current user lookup failed", slog.Any("error", err))
}
