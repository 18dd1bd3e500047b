package provider

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/jwt"
	"github.com/go-chi/chi/v5"
)

const oauthStateTTL = 10 * time.Minute

var errInvalidState = &APIError{Status: http.StatusBadRequest, Code: "INVALID_STATE", Message: "Invalid OAuth state"}

type signInSocialBody struct {
	Provider         string `json:"provider"`
	CallbackURL      string `json:"callbackURL"`
	ErrorCallbackURL string `json:"errorCallbackURL"`
}

func (p *Provider) signInSocial(hc *HookContext) (*Response, error) {
	var body signInSocialBody
	if err := hc.DecodeBody(&body); err != nil {
		return nil, err
	}
	sp, ok := p.social[body.Provider]
	if !ok {
		return nil, errProviderNotFound
	}
	if !p.trustedCallback(body.CallbackURL) || !p.trustedCallback(body.ErrorCallbackURL) {
		return nil, errInvalidCallbackURL
	}

	nonce := rand.Text()
	state, err := p.tokens.Issue(jwt.PurposeOAuthState, "", oauthStateTTL, map[string]string{
		"provider":         sp.ID(),
		"callbackURL":      body.CallbackURL,
		"errorCallbackURL": body.ErrorCallbackURL,
		"nonce":            nonce,
	})
	if err != nil {
		return nil, err
	}
	resp := jsonResponse(map[string]any{"url": sp.AuthCodeURL(state), "redirect": true})
	resp.Cookies = append(resp.Cookies, p.stateCookie(nonce, oauthStateTTL))
	return resp, nil
}

// stateBound reports whether the callback arrived in the browser that started
// the flow: the state's nonce must match the cookie set by signInSocial.
func (p *Provider) stateBound(r *http.Request, nonce string) bool {
	c, err := r.Cookie(p.StateCookieName())
	if err != nil || c.Value == "" || nonce == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Value), []byte(nonce)) == 1
}

// socialCallback completes the flow. Once the state is trusted, every failure
// redirects to the error callback with an ?error= code.
func (p *Provider) socialCallback(hc *HookContext) (*Response, error) {
	id := chi.URLParam(hc.Request, "provider")
	sp, ok := p.social[id]
	if !ok {
		return nil, errProviderNotFound
	}
	q := hc.Request.URL.Query()
	claims, err := p.tokens.Parse(q.Get("state"), jwt.PurposeOAuthState)
	if err != nil || claims.Data["provider"] != id {
		return nil, errInvalidState
	}

	success := p.absoluteCallback(claims.Data["callbackURL"])
	errorTarget := success
	if e := claims.Data["errorCallbackURL"]; e != "" {
		errorTarget = p.absoluteCallback(e)
	}
	fail := func(code string) (*Response, error) {
		resp := redirectResponse(withQuery(errorTarget, "error", code))
		resp.Cookies = append(resp.Cookies, p.expiredStateCookie())
		return resp, nil
	}

	if !p.stateBound(hc.Request, claims.Data["nonce"]) {
		p.opts.Logger.Warn("social callback state not bound to this browser", slog.String("provider", id))
		return fail("state_mismatch")
	}
	if e := q.Get("error"); e != "" {
		return fail(e)
	}
	code := q.Get("code")
	if code == "" {
		return fail("no_code")
	}

	ctx := hc.Context()
	profile, err := sp.Exchange(ctx, code)
	if err != nil {
		p.opts.Logger.Warn("social code exchange failed", slog.String("provider", id), slog.Any("error", err))
		return fail("oauth_code_verification_failed")
	}
	email, ok := normalizeEmail(profile.Email)
	if !ok {
		return fail("email_not_found")
	}

	user, err := p.resolveSocialUser(hc, id, email, profile)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return fail(strings.ToLower(apiErr.Code))
		}
		return nil, err
	}

	token, sess, err := p.createSession(ctx, hc.Request, user)
	if err != nil {
		return nil, err
	}
	p.emit(ctx, audit.Event{
		EventType: audit.EventSignInSuccess,
		UserID:    formatID(user.ID),
		SessionID: sess.ID,
		Path:      hc.Path,
		IP:        sess.IPAddress,
		Success:   true,
		Metadata:  map[string]string{"provider": id},
	})

	resp := redirectResponse(success)
	resp.Cookies = append(resp.Cookies, p.sessionCookie(token), p.expiredStateCookie())
	return resp, nil
}

var (
	errAccountNotLinked   = &APIError{Status: http.StatusUnauthorized, Code: "ACCOUNT_NOT_LINKED", Message: "Account not linked"}
	errUnableToCreateUser = &APIError{Status: http.StatusBadRequest, Code: "UNABLE_TO_CREATE_USER", Message: "Unable to create user"}
)

// resolveSocialUser finds the user behind profile: by linked account, then by email
// (linking only provider-verified emails), else creates one through the user hooks.
func (p *Provider) resolveSocialUser(hc *HookContext, providerID, email string, profile *SocialProfile) (*User, error) {
	ctx := hc.Context()

	account, err := p.opts.Accounts.AccountByProvider(ctx, providerID, profile.ID)
	switch {
	case err == nil:
		return p.opts.Users.UserByID(ctx, account.UserID)
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	link := &Account{
		ProviderID:   providerID,
		AccountID:    profile.ID,
		AccessToken:  profile.AccessToken,
		RefreshToken: profile.RefreshToken,
		IDToken:      profile.IDToken,
	}

	user, err := p.opts.Users.UserByEmail(ctx, email)
	switch {
	case err == nil:
		if !profile.EmailVerified {
			return nil, errAccountNotLinked
		}
		if !user.EmailVerified {
			if err := p.opts.Users.MarkEmailVerified(ctx, user.ID); err != nil {
				return nil, err
			}
			user.EmailVerified = true
		}
	case errors.Is(err, ErrNotFound):
		user, err = p.createUser(ctx, &User{
			Email:         email,
			Name:          profile.Name,
			Image:         profile.Image,
			EmailVerified: profile.EmailVerified,
		}, providerID)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				p.opts.Logger.Info("social user creation rejected", slog.String("provider", providerID), slog.String("reason", apiErr.Message))
				return nil, errUnableToCreateUser
			}
			return nil, err
		}
	default:
		return nil, err
	}

	link.UserID = user.ID
	if err := p.opts.Accounts.LinkAccount(ctx, link); err != nil {
		return nil, err
	}
	return user, nil
}
