package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token purposes understood by the provider.
const (
	PurposeEmailVerification = "email-verification"
	PurposeOAuthState        = "oauth-state"
)

var (
	// ErrPurposeMismatch is returned when a valid token was minted for another purpose.
	ErrPurposeMismatch = errors.New("token purpose mismatch")
	// ErrInvalidToken wraps every other parse or validation failure.
	ErrInvalidToken = errors.New("invalid token")
)

// Config holds the signing secret and validation knobs.
type Config struct {
	Secret []byte
	Issuer string
	Leeway time.Duration
}

var (
	errShortSecret = errors.New("jwt secret must be at least 32 bytes")
	errLeeway      = errors.New("jwt leeway must be between 0 and 2m")
	errNoPurpose   = errors.New("token purpose required")
	errTTL         = errors.New("token ttl must be positive")
)

// Manager signs and verifies purpose-scoped HS256 tokens.
type Manager struct {
	secret []byte
	issuer string
	parser *jwt.Parser
	now    func() time.Time
}

// Claims carries the purpose, the subject (usually an email) and small string data.
type Claims struct {
	Purpose string            `json:"pur"`
	Data    map[string]string `json:"data,omitempty"`
	jwt.RegisteredClaims
}

func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errShortSecret
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errLeeway
	}

	m := &Manager{secret: cfg.Secret, issuer: cfg.Issuer, now: time.Now}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithTimeFunc(func() time.Time { return m.now() }),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	m.parser = jwt.NewParser(opts...)
	return m, nil
}

// Issue mints a token for purpose and subject valid for ttl.
func (m *Manager) Issue(purpose, subject string, ttl time.Duration, data map[string]string) (string, error) {
	switch {
	case purpose == "":
		return "", errNoPurpose
	case ttl <= 0:
		return "", errTTL
	}

	now := m.now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Purpose: purpose,
		Data:    data,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}).SignedString(m.secret)
}

// Parse verifies signature, expiry, issuer and purpose. Every failure other than
// a purpose mismatch wraps ErrInvalidToken.
func (m *Manager) Parse(tokenStr, purpose string) (*Claims, error) {
	var claims Claims
	_, err := m.parser.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Purpose != purpose {
		return nil, ErrPurposeMismatch
	}
	return &claims, nil
}
