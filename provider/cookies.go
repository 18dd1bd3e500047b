package provider

import (
	"net/http"
	"strings"
	"time"
)

// StateCookieName is the cookie that ties an OAuth state to the browser that
// started the social sign-in.
func (p *Provider) StateCookieName() string {
	return p.opts.Cookie.Prefix + ".oauth_state"
}

// The provider redirects back with a cross-site top-level GET, so the state
// cookie is Lax regardless of the session cookie's SameSite.
func (p *Provider) stateCookie(nonce string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     p.StateCookieName(),
		Value:    nonce,
		Path:     p.opts.BasePath,
		MaxAge:   int(ttl.Seconds()),
		Secure:   p.opts.Cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (p *Provider) expiredStateCookie() *http.Cookie {
	c := p.stateCookie("", 0)
	c.MaxAge = -1
	return c
}

func (p *Provider) sessionCookie(token string) *http.Cookie {
	c := p.baseCookie()
	c.Value = token
	c.MaxAge = int(p.opts.Cookie.MaxAge.Seconds())
	return c
}

func (p *Provider) expiredSessionCookie() *http.Cookie {
	c := p.baseCookie()
	c.MaxAge = -1
	return c
}

func (p *Provider) baseCookie() *http.Cookie {
	return &http.Cookie{
		Name:        p.SessionCookieName(),
		Path:        "/",
		Secure:      p.opts.Cookie.Secure,
		HttpOnly:    p.opts.Cookie.HTTPOnly,
		Partitioned: p.opts.Cookie.Partitioned,
		SameSite:    sameSite(p.opts.Cookie.SameSite),
	}
}

func sameSite(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "none":
		return http.SameSiteNoneMode
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}
