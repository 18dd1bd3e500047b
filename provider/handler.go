package provider

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/internal/rate"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type endpointFunc func(*HookContext) (*Response, error)

func (p *Provider) routes() http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, errNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, NewAPIError(http.StatusMethodNotAllowed, "Method Not Allowed"))
	})

	r.Route(p.opts.BasePath, func(r chi.Router) {
		r.Post("/sign-up/email", p.endpoint(p.signUpEmail))
		r.Post("/sign-in/email", p.endpoint(p.signInEmail))
		r.Post("/sign-out", p.endpoint(p.signOut))
		r.Get("/get-session", p.endpoint(p.getSession))

		r.Post("/forget-password", p.endpoint(p.forgetPassword))
		r.Get("/reset-password/{token}", p.endpoint(p.resetPasswordCallback))
		r.Post("/reset-password", p.endpoint(p.resetPassword))

		r.Post("/send-verification-email", p.endpoint(p.sendVerificationEmail))
		r.Get("/verify-email", p.endpoint(p.verifyEmail))

		r.Post("/sign-in/social", p.endpoint(p.signInSocial))
		r.Get("/callback/{provider}", p.endpoint(p.socialCallback))

		r.Post("/organization/set-active", p.endpoint(p.setActiveOrganization))
		r.Get("/organization/get-full-organization", p.endpoint(p.getFullOrganization))
		r.Post("/organization/create", p.endpoint(p.createOrganization))

		r.Get("/ok", p.endpoint(func(*HookContext) (*Response, error) {
			return jsonResponse(map[string]bool{"ok": true}), nil
		}))
	})
	return r
}

// endpoint wraps fn with the request pipeline: disabled paths, origin check,
// rate limiting, before-hooks, the endpoint, after-hooks.
func (p *Provider) endpoint(fn endpointFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, p.opts.BasePath)
		if path == "" {
			path = "/"
		}

		if _, off := p.disabled[path]; off {
			writeError(w, errNotFound)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, NewAPIError(http.StatusRequestEntityTooLarge, "Request body too large"))
			return
		}
		hc := &HookContext{Request: r, Path: path, Body: body}

		if r.Method == http.MethodPost && !p.originAllowed(r) {
			writeError(w, errInvalidOrigin)
			return
		}

		if rule, ok := p.rateLimitRule(path); ok {
			if denied := p.enforceRateLimit(w, hc, rule); denied {
				return
			}
		}

		for _, plugin := range p.opts.Plugins {
			for _, hook := range plugin.Hooks.Before {
				if hook.Matcher != nil && !hook.Matcher(hc) {
					continue
				}
				if err := hook.Handler(hc); err != nil {
					p.hookFailed(hc, plugin.ID, err)
					p.writeErr(w, r, err)
					return
				}
			}
		}

		resp, err := fn(hc)
		if err != nil {
			p.writeErr(w, r, err)
			return
		}
		hc.Response = resp

		for _, plugin := range p.opts.Plugins {
			for _, hook := range plugin.Hooks.After {
				if hook.Matcher != nil && !hook.Matcher(hc) {
					continue
				}
				if err := hook.Handler(hc); err != nil {
					p.hookFailed(hc, plugin.ID, err)
					p.writeErr(w, r, err)
					return
				}
			}
		}

		writeResponse(w, r, hc.Response)
	}
}

func (p *Provider) hookFailed(hc *HookContext, pluginID string, err error) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return
	}
	p.emit(hc.Context(), audit.Event{
		EventType: audit.EventHookRejected,
		Path:      hc.Path,
		IP:        p.clientIP(hc.Request),
		Error:     apiErr.Message,
		Metadata:  map[string]string{"plugin": pluginID},
	})
}

// rateLimitRule returns the first plugin rule matching path, else the default rule.
func (p *Provider) rateLimitRule(path string) (rate.Rule, bool) {
	if !p.opts.RateLimit.Enabled {
		return rate.Rule{}, false
	}
	for _, plugin := range p.opts.Plugins {
		for _, rule := range plugin.RateLimit {
			if rule.PathMatcher(path) {
				return rate.Rule{Max: rule.Max, Window: rule.Window}, true
			}
		}
	}
	d := p.opts.RateLimit.Default
	if d.Max > 0 && d.Window > 0 && (d.PathMatcher == nil || d.PathMatcher(path)) {
		return rate.Rule{Max: d.Max, Window: d.Window}, true
	}
	return rate.Rule{}, false
}

// enforceRateLimit fails open when Redis is unreachable.
func (p *Provider) enforceRateLimit(w http.ResponseWriter, hc *HookContext, rule rate.Rule) bool {
	ip := p.clientIP(hc.Request)
	decision, err := p.limiter.Hit(hc.Context(), ip, hc.Path, rule)
	if err != nil {
		p.opts.Logger.Warn("rate limiter unavailable", slog.String("path", hc.Path), slog.Any("error", err))
		return false
	}
	if decision.Allowed {
		return false
	}

	p.emit(hc.Context(), audit.Event{
		EventType: audit.EventRateLimited,
		Path:      hc.Path,
		IP:        ip,
	})
	secs := int(decision.RetryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("X-Retry-After", strconv.Itoa(secs))
	writeError(w, errTooManyRequests)
	return true
}

// clearRateLimit drops the client's window on path. Failures only cost the
// client a longer wait, so they are logged and swallowed.
func (p *Provider) clearRateLimit(hc *HookContext, path string) {
	if _, ok := p.rateLimitRule(path); !ok {
		return
	}
	if err := p.limiter.Reset(hc.Context(), p.clientIP(hc.Request), path); err != nil {
		p.opts.Logger.Warn("rate limit reset failed", slog.String("path", path), slog.Any("error", err))
	}
}

// originAllowed rejects cookie-bearing POSTs whose Origin is not trusted.
func (p *Provider) originAllowed(r *http.Request) bool {
	if r.Header.Get("Cookie") == "" {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "null" {
		return true
	}
	_, ok := p.origins[originOf(origin)]
	return ok
}

func (p *Provider) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		writeError(w, apiErr)
		return
	}
	p.opts.Logger.Error("auth endpoint failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	writeError(w, errInternal)
}

func jsonResponse(body any) *Response {
	return &Response{Status: http.StatusOK, Body: body}
}

func redirectResponse(location string) *Response {
	return &Response{Status: http.StatusFound, Location: location}
}

func writeResponse(w http.ResponseWriter, r *http.Request, resp *Response) {
	if resp == nil {
		resp = jsonResponse(nil)
	}
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	for _, c := range resp.Cookies {
		http.SetCookie(w, c)
	}
	if resp.Location != "" {
		http.Redirect(w, r, resp.Location, resp.Status)
		return
	}
	writeJSON(w, resp.Status, resp.Body)
}

func writeError(w http.ResponseWriter, e *APIError) {
	body := map[string]string{"message": e.Message}
	if e.Code != "" {
		body["code"] = e.Code
	}
	writeJSON(w, e.Status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
