package provider

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/MrEthical07/authgate/internal"
	"github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/internal/stores"
	"github.com/go-chi/chi/v5"
)

type forgetPasswordBody struct {
	Email      string `json:"email"`
	RedirectTo string `json:"redirectTo"`
}

type resetPasswordBody struct {
	NewPassword string `json:"newPassword"`
	Token       string `json:"token"`
}

// forgetPassword always answers {"status": true} for well-formed input so the endpoint
// itself does not reveal whether the email exists.
func (p *Provider) forgetPassword(hc *HookContext) (*Response, error) {
	send := p.opts.EmailAndPassword.SendResetPassword
	if send == nil {
		return nil, NewAPIError(http.StatusBadRequest, "Reset password isn't enabled")
	}
	var body forgetPasswordBody
	if err := hc.DecodeBody(&body); err != nil {
		return nil, err
	}
	email, ok := normalizeEmail(body.Email)
	if !ok {
		return nil, errInvalidEmail
	}
	if !p.trustedCallback(body.RedirectTo) {
		return nil, errInvalidCallbackURL
	}

	ctx := hc.Context()
	ok200 := jsonResponse(map[string]bool{"status": true})

	user, err := p.opts.Users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ok200, nil
		}
		return nil, err
	}

	tok, err := internal.NewOpaqueToken()
	if err != nil {
		return nil, err
	}
	ttl := p.opts.EmailAndPassword.ResetPasswordTokenExpiresIn
	record := &stores.PasswordResetRecord{
		UserID:     user.ID,
		SecretHash: tok.Hash(),
		ExpiresAt:  p.now().Add(ttl).Unix(),
	}
	if err := p.resets.Save(ctx, tok.ID, record, ttl); err != nil {
		return nil, err
	}

	q := url.Values{}
	if body.RedirectTo != "" {
		q.Set("callbackURL", body.RedirectTo)
	}
	link := p.endpointURL("/reset-password/"+tok.String(), q)
	if err := send(ctx, user, link); err != nil {
		return nil, fmt.Errorf("send reset password email: %w", err)
	}

	p.emit(ctx, audit.Event{
		EventType: audit.EventPasswordResetRequest,
		UserID:    formatID(user.ID),
		Path:      hc.Path,
		IP:        p.clientIP(hc.Request),
		Success:   true,
	})
	return ok200, nil
}

// resetPasswordCallback is the link target in the reset email. It checks the token
// without consuming it and forwards to the client callback with ?token= or ?error=.
func (p *Provider) resetPasswordCallback(hc *HookContext) (*Response, error) {
	raw := chi.URLParam(hc.Request, "token")
	callback := hc.Request.URL.Query().Get("callbackURL")
	if callback == "" {
		callback = "/"
	}
	if !p.trustedCallback(callback) {
		return nil, errInvalidCallbackURL
	}
	target := p.absoluteCallback(callback)

	tok, err := internal.ParseOpaqueToken(raw)
	if err != nil {
		return redirectResponse(withQuery(target, "error", "INVALID_TOKEN")), nil
	}
	exists, err := p.resets.Exists(hc.Context(), tok.ID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return redirectResponse(withQuery(target, "error", "INVALID_TOKEN")), nil
	}
	return redirectResponse(withQuery(target, "token", raw)), nil
}

func (p *Provider) resetPassword(hc *HookContext) (*Response, error) {
	var body resetPasswordBody
	if err := hc.DecodeBody(&body); err != nil {
		return nil, err
	}
	if err := p.checkPassword(body.NewPassword); err != nil {
		return nil, err
	}
	tok, err := internal.ParseOpaqueToken(body.Token)
	if err != nil {
		return nil, errInvalidToken
	}

	ctx := hc.Context()
	record, err := p.resets.Consume(ctx, tok.ID, tok.Hash())
	if err != nil {
		switch {
		case errors.Is(err, stores.ErrResetNotFound),
			errors.Is(err, stores.ErrResetSecretMismatch),
			errors.Is(err, stores.ErrResetAttemptsExceeded):
			return nil, errInvalidToken
		default:
			return nil, err
		}
	}

	hash, err := p.opts.Hasher.Hash(body.NewPassword)
	if err != nil {
		return nil, err
	}
	if _, err := p.opts.Accounts.CredentialAccount(ctx, record.UserID); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		err = p.opts.Accounts.LinkAccount(ctx, &Account{
			UserID:       record.UserID,
			ProviderID:   ProviderCredential,
			AccountID:    formatID(record.UserID),
			PasswordHash: hash,
		})
		if err != nil {
			return nil, err
		}
	} else if err := p.opts.Accounts.UpdatePasswordHash(ctx, record.UserID, hash); err != nil {
		return nil, err
	}

	if p.opts.EmailAndPassword.RevokeSessionsOnPasswordReset {
		if err := p.sessions.DeleteAllForUser(ctx, record.UserID); err != nil {
			return nil, err
		}
	}

	// Sign-in attempts spent on the forgotten password must not lock out the new one.
	p.clearRateLimit(hc, "/sign-in/email")

	p.emit(ctx, audit.Event{
		EventType: audit.EventPasswordResetConfirm,
		UserID:    formatID(record.UserID),
		Path:      hc.Path,
		IP:        p.clientIP(hc.Request),
		Success:   true,
	})
	return jsonResponse(map[string]bool{"status": true}), nil
}
