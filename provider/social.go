package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// SocialProfile is the identity returned by a completed OAuth exchange.
type SocialProfile struct {
	ID            string
	Email         string
	EmailVerified bool
	Name          string
	Image         string
	AccessToken   string
	RefreshToken  string
	IDToken       string
}

// SocialProvider drives one OAuth authorization-code flow.
type SocialProvider interface {
	ID() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*SocialProfile, error)
}

const (
	googleIssuer  = "https://accounts.google.com"
	googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

// GoogleConfig configures the Google provider. Endpoint, Issuer and KeySet default to
// Google's production values and exist for tests.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	HTTPClient   *http.Client

	Endpoint oauth2.Endpoint
	Issuer   string
	KeySet   oidc.KeySet
}

// Google signs users in with Google and verifies the returned ID token.
type Google struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
	client   *http.Client
}

func NewGoogle(cfg GoogleConfig) (*Google, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: google client id and secret required", ErrProviderMisconfigured)
	}
	if cfg.RedirectURL == "" {
		return nil, fmt.Errorf("%w: google redirect URL required", ErrProviderMisconfigured)
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{oidc.ScopeOpenID, "email", "profile"}
	}
	if cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = endpoints.Google
	}
	if cfg.Issuer == "" {
		cfg.Issuer = googleIssuer
	}
	if cfg.KeySet == nil {
		keyCtx := context.Background()
		if cfg.HTTPClient != nil {
			keyCtx = oidc.ClientContext(keyCtx, cfg.HTTPClient)
		}
		cfg.KeySet = oidc.NewRemoteKeySet(keyCtx, googleJWKSURL)
	}

	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     cfg.Endpoint,
			Scopes:       cfg.Scopes,
		},
		verifier: oidc.NewVerifier(cfg.Issuer, cfg.KeySet, &oidc.Config{ClientID: cfg.ClientID}),
		client:   cfg.HTTPClient,
	}, nil
}

func (g *Google) ID() string { return "google" }

func (g *Google) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "select_account"))
}

func (g *Google) Exchange(ctx context.Context, code string) (*SocialProfile, error) {
	if g.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client)
	}
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google code exchange: %w", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("google token response has no id_token")
	}
	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("google id token: %w", err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("google id token claims: %w", err)
	}

	return &SocialProfile{
		ID:            idToken.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Image:         claims.Picture,
		AccessToken:   token.AccessToken,
		RefreshToken:  token.RefreshToken,
		IDToken:       rawIDToken,
	}, nil
}
