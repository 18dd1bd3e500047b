package authgate

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/MrEthical07/authgate/provider"
)

// Auth is the built authentication stack. Safe for concurrent use.
type Auth struct {
	config    Config
	provider  *provider.Provider
	gateway   *Gateway
	projector *Projector
	cors      func(http.Handler) http.Handler
	headers   *HeaderStore
	metrics   *Metrics
	audit     *auditPipeline
	logger    *slog.Logger
}

// Handler is the gateway behind the CORS policy. Mount it on "<BasePath>/*".
func (a *Auth) Handler() http.Handler {
	return a.cors(a.gateway)
}

// CORS returns the configured CORS middleware for routes outside the auth namespace.
func (a *Auth) CORS() func(http.Handler) http.Handler {
	return a.cors
}

// Gateway is the auth namespace handler without CORS, for routers that apply
// CORS themselves.
func (a *Auth) Gateway() *Gateway {
	return a.gateway
}

func (a *Auth) Provider() *provider.Provider {
	return a.provider
}

func (a *Auth) Projector() *Projector {
	return a.projector
}

// HeaderStore is the header cache read by the projector.
func (a *Auth) HeaderStore() *HeaderStore {
	return a.headers
}

func (a *Auth) BasePath() string {
	return a.provider.BasePath()
}

// Config returns a copy of the configuration Auth was built with.
func (a *Auth) Config() Config {
	return cloneConfig(a.config)
}

// CurrentUser resolves the user behind the headers in ctx, or the header cache.
func (a *Auth) CurrentUser(ctx context.Context) (*CurrentUser, bool) {
	return a.projector.CurrentUser(ctx)
}

func (a *Auth) CurrentUserOrganizationID(ctx context.Context) (int64, bool) {
	return a.projector.CurrentUserOrganizationID(ctx)
}

// RevokeUserSessions signs a user out everywhere.
func (a *Auth) RevokeUserSessions(ctx context.Context, userID int64) error {
	return a.provider.RevokeUserSessions(ctx, userID)
}

// Ping checks Redis.
func (a *Auth) Ping(ctx context.Context) error {
	_, err := a.provider.Ping(ctx)
	return err
}

func (a *Auth) Metrics() *Metrics {
	return a.metrics
}

func (a *Auth) MetricsSnapshot() MetricsSnapshot {
	return a.metrics.Snapshot()
}

// AuditDropped is the number of audit events dropped because the buffer was full.
func (a *Auth) AuditDropped() uint64 {
	return a.audit.Dropped()
}

// Close drains the audit buffer. It does not close Redis or the stores.
func (a *Auth) Close() {
	a.audit.Close()
}
