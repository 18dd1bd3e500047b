package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/jwt"
)

var errVerificationDisabled = errors.New("verification email sender not configured")

type sendVerificationBody struct {
	Email       string `json:"email"`
	CallbackURL string `json:"callbackURL"`
}

// sendVerification mints a verification token for user and hands the link to the sender.
func (p *Provider) sendVerification(ctx context.Context, user *User, callbackURL string) error {
	send := p.opts.EmailVerification.SendVerificationEmail
	if send == nil {
		return errVerificationDisabled
	}
	token, err := p.tokens.Issue(jwt.PurposeEmailVerification, user.Email, p.opts.EmailVerification.ExpiresIn, nil)
	if err != nil {
		return err
	}
	q := url.Values{}
	q.Set("token", token)
	if callbackURL != "" {
		q.Set("callbackURL", callbackURL)
	}
	if err := send(ctx, user, p.endpointURL("/verify-email", q)); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	p.emit(ctx, audit.Event{
		EventType: audit.EventVerificationSent,
		UserID:    formatID(user.ID),
		Success:   true,
	})
	return nil
}

func (p *Provider) sendVerificationEmail(hc *HookContext) (*Response, error) {
	if p.opts.EmailVerification.SendVerificationEmail == nil {
		return nil, NewAPIError(http.StatusBadRequest, "Verification email isn't enabled")
	}
	var body sendVerificationBody
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
	user, err := p.opts.Users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errUserNotFound
		}
		return nil, err
	}
	if user.EmailVerified {
		return nil, errAlreadyVerified
	}
	if err := p.sendVerification(ctx, user, body.CallbackURL); err != nil {
		return nil, err
	}
	return jsonResponse(map[string]bool{"status": true}), nil
}

// verifyEmail consumes a verification link. With a callbackURL it always redirects,
// carrying ?error= on failure.
func (p *Provider) verifyEmail(hc *HookContext) (*Response, error) {
	q := hc.Request.URL.Query()
	callback := q.Get("callbackURL")
	if !p.trustedCallback(callback) {
		return nil, errInvalidCallbackURL
	}
	fail := func(code string, apiErr *APIError) (*Response, error) {
		if callback != "" {
			return redirectResponse(withQuery(p.absoluteCallback(callback), "error", code)), nil
		}
		return nil, apiErr
	}

	claims, err := p.tokens.Parse(q.Get("token"), jwt.PurposeEmailVerification)
	if err != nil {
		return fail("invalid_token", errInvalidToken)
	}

	ctx := hc.Context()
	user, err := p.opts.Users.UserByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fail("user_not_found", errUserNotFound)
		}
		return nil, err
	}
	if !user.EmailVerified {
		if err := p.opts.Users.MarkEmailVerified(ctx, user.ID); err != nil {
			return nil, err
		}
		user.EmailVerified = true
		p.emit(ctx, audit.Event{
			EventType: audit.EventEmailVerified,
			UserID:    formatID(user.ID),
			Path:      hc.Path,
			IP:        p.clientIP(hc.Request),
			Success:   true,
		})
	}

	var cookies []*http.Cookie
	if p.opts.EmailVerification.AutoSignInAfterVerification {
		token, _, err := p.createSession(ctx, hc.Request, user)
		if err != nil {
			return nil, err
		}
		cookies = append(cookies, p.sessionCookie(token))
	}

	var resp *Response
	if callback != "" {
		resp = redirectResponse(p.absoluteCallback(callback))
	} else {
		resp = jsonResponse(map[string]any{"status": true, "user": user})
	}
	resp.Cookies = cookies
	return resp, nil
}
