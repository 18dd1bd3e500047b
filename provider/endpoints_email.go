package provider

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/password"
)

type signUpBody struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CallbackURL string `json:"callbackURL"`
}

type signInBody struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CallbackURL string `json:"callbackURL"`
}

type authResponse struct {
	Redirect bool    `json:"redirect"`
	Token    *string `json:"token"`
	URL      *string `json:"url"`
	User     *User   `json:"user"`
}

func normalizeEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}

func (p *Provider) checkPassword(pw string) error {
	switch err := p.policy.Check(pw); {
	case errors.Is(err, password.ErrTooShort):
		return errPasswordTooShort
	case errors.Is(err, password.ErrTooLong):
		return errPasswordTooLong
	default:
		return err
	}
}

func (p *Provider) signUpEmail(hc *HookContext) (*Response, error) {
	if !p.opts.EmailAndPassword.Enabled {
		return nil, NewAPIError(http.StatusBadRequest, "Email and password sign up is not enabled")
	}
	var body signUpBody
	if err := hc.DecodeBody(&body); err != nil {
		return nil, err
	}
	email, ok := normalizeEmail(body.Email)
	if !ok {
		return nil, errInvalidEmail
	}
	if err := p.checkPassword(body.Password); err != nil {
		return nil, err
	}
	if !p.trustedCallback(body.CallbackURL) {
		return nil, errInvalidCallbackURL
	}

	ctx := hc.Context()
	if _, err := p.opts.Users.UserByEmail(ctx, email); err == nil {
		return nil, errUserExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := p.opts.Hasher.Hash(body.Password)
	if err != nil {
		return nil, err
	}
	user, err := p.createUser(ctx, &User{Email: email, Name: body.Name, Image: body.Image}, ProviderCredential)
	if err != nil {
		return nil, err
	}
	if err := p.opts.Accounts.LinkAccount(ctx, &Account{
		UserID:       user.ID,
		ProviderID:   ProviderCredential,
		AccountID:    formatID(user.ID),
		PasswordHash: hash,
	}); err != nil {
		return nil, err
	}

	if p.opts.EmailVerification.SendOnSignUp || p.opts.EmailAndPassword.RequireEmailVerification {
		if err := p.sendVerification(ctx, user, body.CallbackURL); err != nil {
			p.opts.Logger.Error("send verification email", slog.Int64("user_id", user.ID), slog.Any("error", err))
		}
	}

	resp := jsonResponse(&authResponse{User: user})
	if p.opts.EmailAndPassword.AutoSignIn && !p.opts.EmailAndPassword.RequireEmailVerification {
		token, _, err := p.createSession(ctx, hc.Request, user)
		if err != nil {
			return nil, err
		}
		resp.Body.(*authResponse).Token = &token
		resp.Cookies = append(resp.Cookies, p.sessionCookie(token))
	}
	return resp, nil
}

func (p *Provider) signInEmail(hc *HookContext) (*Response, error) {
	if !p.opts.EmailAndPassword.Enabled {
		return nil, NewAPIError(http.StatusBadRequest, "Email and password is not enabled")
	}
	var body signInBody
	if err := hc.DecodeBody(&body); err != nil {
		return nil, err
	}
	email, ok := normalizeEmail(body.Email)
	if !ok {
		return nil, errInvalidEmail
	}
	if !p.trustedCallback(body.CallbackURL) {
		return nil, errInvalidCallbackURL
	}

	ctx := hc.Context()
	user, err := p.verifyCredentials(ctx, email, body.Password)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			p.emit(ctx, audit.Event{
				EventType: audit.EventSignInFailure,
				Path:      hc.Path,
				IP:        p.clientIP(hc.Request),
				Error:     apiErr.Message,
			})
		}
		return nil, err
	}

	if p.opts.EmailAndPassword.RequireEmailVerification && !user.EmailVerified {
		if err := p.sendVerification(ctx, user, body.CallbackURL); err != nil {
			p.opts.Logger.Error("send verification email", slog.Int64("user_id", user.ID), slog.Any("error", err))
		}
		p.emit(ctx, audit.Event{
			EventType: audit.EventSignInFailure,
			UserID:    formatID(user.ID),
			Path:      hc.Path,
			IP:        p.clientIP(hc.Request),
			Error:     errEmailNotVerified.Message,
		})
		return nil, errEmailNotVerified
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
	})

	out := &authResponse{Token: &token, User: user}
	if body.CallbackURL != "" {
		u := p.absoluteCallback(body.CallbackURL)
		out.Redirect = true
		out.URL = &u
	}
	resp := jsonResponse(out)
	resp.Cookies = append(resp.Cookies, p.sessionCookie(token))
	return resp, nil
}

// verifyCredentials checks the credential account of email. Unknown users and wrong
// passwords produce the same error. Weak stored hashes are upgraded in place.
func (p *Provider) verifyCredentials(ctx context.Context, email, pw string) (*User, error) {
	user, err := p.opts.Users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	account, err := p.opts.Accounts.CredentialAccount(ctx, user.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if account.PasswordHash == "" {
		return nil, errInvalidCredentials
	}

	ok, err := p.opts.Hasher.Verify(pw, account.PasswordHash)
	if err != nil || !ok {
		return nil, errInvalidCredentials
	}

	if upgrade, err := p.opts.Hasher.NeedsUpgrade(account.PasswordHash); err == nil && upgrade {
		if hash, err := p.opts.Hasher.Hash(pw); err == nil {
			if err := p.opts.Accounts.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
				p.opts.Logger.Warn("password rehash failed", slog.Int64("user_id", user.ID), slog.Any("error", err))
			}
		}
	}
	return user, nil
}

func (p *Provider) signOut(hc *HookContext) (*Response, error) {
	ctx := hc.Context()
	resp := jsonResponse(map[string]bool{"success": true})
	resp.Cookies = append(resp.Cookies, p.expiredSessionCookie())

	data, err := p.GetSession(ctx, hc.Request.Header)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return resp, nil
	}
	if err := p.sessions.Delete(ctx, data.Session.ID); err != nil {
		return nil, err
	}
	p.emit(ctx, audit.Event{
		EventType: audit.EventSignOut,
		UserID:    formatID(data.User.ID),
		SessionID: data.Session.ID,
		Path:      hc.Path,
		IP:        p.clientIP(hc.Request),
		Success:   true,
	})
	return resp, nil
}

func (p *Provider) getSession(hc *HookContext) (*Response, error) {
	data, err := p.GetSession(hc.Context(), hc.Request.Header)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return jsonResponse(nil), nil
	}
	return jsonResponse(data), nil
}
